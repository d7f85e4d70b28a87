package models

import (
	"errors"
)

// Key points at a private key file readable by the session gateway.
type Key struct {
	Description string `json:"description"`
	Path        string `json:"path"`
}

func NewKey(description, path string) (*Key, error) {
	k := &Key{Description: description, Path: path}
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *Key) Validate() error {
	if k.Description == "" {
		return errors.New("description cannot be empty")
	}
	if k.Path == "" {
		return errors.New("key path cannot be empty")
	}
	return nil
}
