package sink

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	boltGroupsBucket = []byte("groups")
	boltAttrsBucket  = []byte("attrs")
)

// Bolt stores each group as a nested bucket under "groups" and each dataset
// as a key in its group's bucket. Attributes live in the "attrs" bucket.
type Bolt struct {
	db   *bolt.DB
	path string
}

// OpenBolt creates a bolt sink at path, truncating any existing file
func OpenBolt(path string) (Sink, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, writeErr("open", path, err)
	}

	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, writeErr("open", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(boltGroupsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(boltAttrsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, writeErr("open", path, err)
	}

	return &Bolt{db: db, path: path}, nil
}

func (b *Bolt) CreateGroup(name string) error {
	return writeErr("create group", name, b.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.Bucket(boltGroupsBucket).CreateBucketIfNotExists([]byte(name))
		return err
	}))
}

func (b *Bolt) WriteDataset(group, name string, data []float32) error {
	return writeErr("write dataset", group+"/"+name, b.db.Update(func(tx *bolt.Tx) error {
		g := tx.Bucket(boltGroupsBucket).Bucket([]byte(group))
		if g == nil {
			return fmt.Errorf("group %q does not exist", group)
		}
		// Get cannot tell an empty value from a missing key
		if k, _ := g.Cursor().Seek([]byte(name)); bytes.Equal(k, []byte(name)) {
			return errors.New("dataset already exists")
		}
		return g.Put([]byte(name), encodeFloat32s(data))
	}))
}

func (b *Bolt) SetAttribute(key, value string) error {
	return writeErr("set attribute", key, b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltAttrsBucket).Put([]byte(key), []byte(value))
	}))
}

func (b *Bolt) Close() error {
	return writeErr("close", b.path, b.db.Close())
}

// ReadBolt loads a bolt output file back into memory
func ReadBolt(path string) (*Memory, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer db.Close()

	m := NewMemory()
	err = db.View(func(tx *bolt.Tx) error {
		groups := tx.Bucket(boltGroupsBucket)
		if groups == nil {
			return errors.New("not a converted LAGER file: missing groups bucket")
		}
		err := groups.ForEach(func(k, v []byte) error {
			if v != nil {
				return nil
			}
			group := string(k)
			if err := m.CreateGroup(group); err != nil {
				return err
			}
			return groups.Bucket(k).ForEach(func(name, data []byte) error {
				values, err := decodeFloat32s(data)
				if err != nil {
					return err
				}
				return m.WriteDataset(group, string(name), values)
			})
		})
		if err != nil {
			return err
		}

		if attrs := tx.Bucket(boltAttrsBucket); attrs != nil {
			return attrs.ForEach(func(k, v []byte) error {
				return m.SetAttribute(string(k), string(v))
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
