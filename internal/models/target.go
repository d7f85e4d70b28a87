package models

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Target is what a backend needs to open a remote command session.
// It must not change once a session is open.
type Target struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	KeyPath  string `json:"key_path,omitempty"`
}

// Address returns host:port, defaulting the port to 22.
func (t Target) Address() string {
	port := t.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(port))
}

func (t Target) Validate() error {
	if t.Host == "" {
		return fmt.Errorf("target host is required")
	}
	if t.Port < 0 || t.Port > 65535 {
		return fmt.Errorf("invalid port %d", t.Port)
	}
	if t.Username == "" {
		return fmt.Errorf("target username is required")
	}
	if t.Password == "" && t.KeyPath == "" {
		return fmt.Errorf("target needs a password or a key path")
	}
	return nil
}

// PollResult is one incremental read of a session's output.
type PollResult struct {
	Output    string `json:"output"`
	Connected bool   `json:"connected"`
}

// Server is a machine entry from the dashboard's server inventory.
type Server struct {
	Name        string `json:"name"`
	IP          string `json:"ip"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	Description string `json:"description"`
}

// RemoteFile describes one entry of a remote directory listing.
type RemoteFile struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Mode    string    `json:"mode"`
	ModTime time.Time `json:"mod_time"`
	IsDir   bool      `json:"is_dir"`
}
