// Package sshtest runs an in-process SSH server for tests. It accepts one
// user by password or public key and supports PTY shells, SFTP and "scp -f".
package sshtest

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	User     = "tester"
	Password = "secret"
)

// Server is a running test server. The shell greets with "ready", answers
// each line with "echo:<line>" and exits on "exit".
type Server struct {
	Addr    string
	Host    string
	Port    int
	HostKey ssh.PublicKey

	clientSigner ssh.Signer
	clientPEM    []byte
	listener     net.Listener

	mu    sync.Mutex
	conns []net.Conn

	ptyRequests atomic.Int32
	shells      atomic.Int32
}

func NewServer(t testing.TB) *Server {
	t.Helper()

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	hostSigner, err := ssh.NewSignerFromKey(hostPriv)
	if err != nil {
		t.Fatalf("host signer: %v", err)
	}

	_, clientPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate client key: %v", err)
	}
	clientSigner, err := ssh.NewSignerFromKey(clientPriv)
	if err != nil {
		t.Fatalf("client signer: %v", err)
	}
	block, err := ssh.MarshalPrivateKey(clientPriv, "")
	if err != nil {
		t.Fatalf("marshal client key: %v", err)
	}

	s := &Server{
		HostKey:      hostSigner.PublicKey(),
		clientSigner: clientSigner,
		clientPEM:    pem.EncodeToMemory(block),
	}

	config := &ssh.ServerConfig{
		PasswordCallback: func(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if conn.User() == User && string(password) == Password {
				return &ssh.Permissions{}, nil
			}
			return nil, fmt.Errorf("password rejected for %q", conn.User())
		},
		PublicKeyCallback: func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if conn.User() == User && ssh.FingerprintSHA256(key) == ssh.FingerprintSHA256(clientSigner.PublicKey()) {
				return &ssh.Permissions{}, nil
			}
			return nil, fmt.Errorf("unknown public key")
		},
	}
	config.AddHostKey(hostSigner)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s.listener = listener
	s.Addr = listener.Addr().String()
	tcpAddr := listener.Addr().(*net.TCPAddr)
	s.Host = tcpAddr.IP.String()
	s.Port = tcpAddr.Port

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			netConn, err := listener.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.conns = append(s.conns, netConn)
			s.mu.Unlock()
			go s.handleConnection(netConn, config)
		}
	}()

	t.Cleanup(func() {
		listener.Close()
		<-done
		s.mu.Lock()
		for _, c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()
	})
	return s
}

// WriteClientKey writes the accepted private key (unencrypted) into dir.
func (s *Server) WriteClientKey(t testing.TB, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "id_ed25519")
	if err := os.WriteFile(path, s.clientPEM, 0600); err != nil {
		t.Fatalf("write client key: %v", err)
	}
	return path
}

// KnownHostsLine is the known_hosts entry for this server.
func (s *Server) KnownHostsLine() string {
	return knownhosts.Line([]string{knownhosts.Normalize(s.Addr)}, s.HostKey)
}

// PTYRequests counts pty-req requests seen so far.
func (s *Server) PTYRequests() int {
	return int(s.ptyRequests.Load())
}

// Shells counts shells started so far.
func (s *Server) Shells() int {
	return int(s.shells.Load())
}

func (s *Server) handleConnection(netConn net.Conn, config *ssh.ServerConfig) {
	sshConn, chans, reqs, err := ssh.NewServerConn(netConn, config)
	if err != nil {
		netConn.Close()
		return
	}
	defer sshConn.Close()

	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			newChan.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		ch, requests, err := newChan.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(ch, requests)
	}
}

func (s *Server) handleSession(ch ssh.Channel, requests <-chan *ssh.Request) {
	for req := range requests {
		switch req.Type {
		case "pty-req":
			s.ptyRequests.Add(1)
			reply(req, true)

		case "window-change", "env":
			reply(req, true)

		case "shell":
			s.shells.Add(1)
			reply(req, true)
			go serveShell(ch)

		case "exec":
			command := parseString(req.Payload)
			path, ok := strings.CutPrefix(command, "scp -f ")
			if !ok {
				reply(req, false)
				continue
			}
			reply(req, true)
			go serveSCP(ch, unquote(path))

		case "subsystem":
			if parseString(req.Payload) != "sftp" {
				reply(req, false)
				continue
			}
			reply(req, true)
			go serveSFTP(ch)

		default:
			reply(req, false)
		}
	}
}

func serveShell(ch ssh.Channel) {
	defer ch.Close()
	io.WriteString(ch, "ready\n")

	r := bufio.NewReader(ch)
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "exit" {
			io.WriteString(ch, "logout\n")
			exit(ch, 0)
			return
		}
		if line != "" {
			io.WriteString(ch, "echo:"+line+"\n")
		}
		if err != nil {
			return
		}
	}
}

// serveSCP implements the source side of "scp -f" for a single file.
func serveSCP(ch ssh.Channel, path string) {
	defer ch.Close()

	ack := make([]byte, 1)
	if _, err := io.ReadFull(ch, ack); err != nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(ch, "\x01scp: %s: %v\n", path, err)
		exit(ch, 1)
		return
	}
	fmt.Fprintf(ch, "C0644 %d %s\n", len(data), filepath.Base(path))
	if _, err := io.ReadFull(ch, ack); err != nil {
		return
	}
	ch.Write(data)
	ch.Write([]byte{0})

	// Wait briefly for the sink's final ack before hanging up.
	acked := make(chan struct{})
	go func() {
		io.ReadFull(ch, ack)
		close(acked)
	}()
	select {
	case <-acked:
	case <-time.After(200 * time.Millisecond):
	}
	exit(ch, 0)
}

func serveSFTP(ch ssh.Channel) {
	defer ch.Close()
	server, err := sftp.NewServer(ch)
	if err != nil {
		return
	}
	server.Serve()
	server.Close()
}

func exit(ch ssh.Channel, status uint32) {
	ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
}

func reply(req *ssh.Request, ok bool) {
	if req.WantReply {
		req.Reply(ok, nil)
	}
}

// parseString decodes an SSH wire string payload.
func parseString(payload []byte) string {
	var msg struct{ Value string }
	if err := ssh.Unmarshal(payload, &msg); err != nil {
		return ""
	}
	return msg.Value
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return strings.Trim(s, "'")
}
