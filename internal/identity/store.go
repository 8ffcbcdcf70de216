// Package identity persists the remote id assigned to each logical health check
// name, together with the creation token used to create it.
package identity

import (
	"context"
	"errors"
	"path/filepath"
)

// Identity is what is remembered about a created health check.
type Identity struct {
	RemoteID      string `json:"remote_id" yaml:"remote_id"`
	CreationToken string `json:"creation_token" yaml:"creation_token"`
}

// Store maps logical names to identities across runs.
type Store interface {
	// Read returns the identity for name and whether one exists.
	Read(ctx context.Context, name string) (Identity, bool, error)
	Write(ctx context.Context, name string, id Identity) error
	// Remove deletes the identity for name. Removing a missing name is not an error.
	Remove(ctx context.Context, name string) error
	List(ctx context.Context) (map[string]Identity, error)
}

var errEmptyName = errors.New("identity: empty name")

func validate(name string, id Identity) error {
	if name == "" {
		return errEmptyName
	}
	if id.RemoteID == "" {
		return errors.New("identity: empty remote id for " + name)
	}
	return nil
}

// Open returns the store for path: a bbolt database for ".db" and ".bolt" files,
// a YAML file otherwise. The returned function releases the store.
func Open(path string) (Store, func() error, error) {
	switch filepath.Ext(path) {
	case ".db", ".bolt":
		b, err := OpenBolt(path)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	}
	return NewFile(path), func() error { return nil }, nil
}
