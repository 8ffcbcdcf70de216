package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var identityBucketName = []byte("healthcheck-identities")

// Bolt is a Store backed by a bbolt database.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) the database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening identity database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(identityBucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing identity database: %w", err)
	}
	return &Bolt{db: db}, nil
}

// Close releases the database file lock.
func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) Read(_ context.Context, name string) (Identity, bool, error) {
	var (
		id    Identity
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(identityBucketName).Get([]byte(name))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &id)
	})
	if err != nil {
		return Identity{}, false, fmt.Errorf("reading identity %q: %w", name, err)
	}
	return id, found, nil
}

func (b *Bolt) Write(_ context.Context, name string, id Identity) error {
	if err := validate(name, id); err != nil {
		return err
	}
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encoding identity %q: %w", name, err)
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(identityBucketName).Put([]byte(name), data)
	})
	if err != nil {
		return fmt.Errorf("writing identity %q: %w", name, err)
	}
	return nil
}

func (b *Bolt) Remove(_ context.Context, name string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(identityBucketName).Delete([]byte(name))
	})
	if err != nil {
		return fmt.Errorf("removing identity %q: %w", name, err)
	}
	return nil
}

func (b *Bolt) List(_ context.Context) (map[string]Identity, error) {
	entries := make(map[string]Identity)
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(identityBucketName).ForEach(func(k, v []byte) error {
			var id Identity
			if err := json.Unmarshal(v, &id); err != nil {
				return fmt.Errorf("decoding identity %q: %w", k, err)
			}
			entries[string(k)] = id
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing identities: %w", err)
	}
	return entries, nil
}
