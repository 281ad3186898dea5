package sink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// key prefixes; every string component is length-prefixed so names may contain any byte
const (
	pebbleGroupKey   byte = 'g'
	pebbleDatasetKey byte = 'd'
	pebbleAttrKey    byte = 'a'
)

// Pebble stores the container in a pebble directory
type Pebble struct {
	db   *pebble.DB
	path string
}

// OpenPebble creates a pebble sink in the directory at path. An existing
// pebble store there is replaced; any other existing directory is refused.
func OpenPebble(path string) (Sink, error) {
	if err := clearPebbleDir(path); err != nil {
		return nil, writeErr("open", path, err)
	}

	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, writeErr("open", path, err)
	}
	return &Pebble{db: db, path: path}, nil
}

func clearPebbleDir(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists and is not a directory", path)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	if _, err := os.Stat(filepath.Join(path, "CURRENT")); err != nil {
		return fmt.Errorf("refusing to replace %s: not a pebble store", path)
	}
	return os.RemoveAll(path)
}

func pebbleKey(kind byte, parts ...string) []byte {
	buf := []byte{kind}
	for _, p := range parts {
		buf = binary.AppendUvarint(buf, uint64(len(p)))
		buf = append(buf, p...)
	}
	return buf
}

func splitPebbleKey(key []byte) (byte, []string, error) {
	if len(key) == 0 {
		return 0, nil, errors.New("empty key")
	}
	kind, rest := key[0], key[1:]
	var parts []string
	for len(rest) > 0 {
		n, w := binary.Uvarint(rest)
		if w <= 0 || uint64(len(rest)-w) < n {
			return 0, nil, fmt.Errorf("malformed key %x", key)
		}
		parts = append(parts, string(rest[w:w+int(n)]))
		rest = rest[w+int(n):]
	}
	return kind, parts, nil
}

func (p *Pebble) CreateGroup(name string) error {
	return writeErr("create group", name, p.db.Set(pebbleKey(pebbleGroupKey, name), nil, pebble.NoSync))
}

func (p *Pebble) WriteDataset(group, name string, data []float32) error {
	path := group + "/" + name
	_, closer, err := p.db.Get(pebbleKey(pebbleGroupKey, group))
	if errors.Is(err, pebble.ErrNotFound) {
		return writeErr("write dataset", path, fmt.Errorf("group %q does not exist", group))
	}
	if err != nil {
		return writeErr("write dataset", path, err)
	}
	closer.Close()

	key := pebbleKey(pebbleDatasetKey, group, name)
	_, closer, err = p.db.Get(key)
	if err == nil {
		closer.Close()
		return writeErr("write dataset", path, errors.New("dataset already exists"))
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return writeErr("write dataset", path, err)
	}

	return writeErr("write dataset", path, p.db.Set(key, encodeFloat32s(data), pebble.NoSync))
}

func (p *Pebble) SetAttribute(key, value string) error {
	return writeErr("set attribute", key, p.db.Set(pebbleKey(pebbleAttrKey, key), []byte(value), pebble.NoSync))
}

// Close flushes the memtable so the output is complete on disk
func (p *Pebble) Close() error {
	if err := p.db.Flush(); err != nil {
		p.db.Close()
		return writeErr("flush", p.path, err)
	}
	return writeErr("close", p.path, p.db.Close())
}

// ReadPebble loads a pebble output directory back into memory
func ReadPebble(path string) (*Memory, error) {
	db, err := pebble.Open(path, &pebble.Options{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer db.Close()

	iter, err := db.NewIter(nil)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	m := NewMemory()
	// dataset keys sort before group keys, so datasets are attached after the scan
	type dataset struct {
		group, name string
		data        []float32
	}
	var datasets []dataset

	for iter.First(); iter.Valid(); iter.Next() {
		kind, parts, err := splitPebbleKey(iter.Key())
		if err != nil {
			return nil, err
		}
		switch {
		case kind == pebbleGroupKey && len(parts) == 1:
			if err := m.CreateGroup(parts[0]); err != nil {
				return nil, err
			}
		case kind == pebbleDatasetKey && len(parts) == 2:
			values, err := decodeFloat32s(iter.Value())
			if err != nil {
				return nil, err
			}
			datasets = append(datasets, dataset{group: parts[0], name: parts[1], data: values})
		case kind == pebbleAttrKey && len(parts) == 1:
			if err := m.SetAttribute(parts[0], string(iter.Value())); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unexpected key %x", iter.Key())
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	for _, d := range datasets {
		if err := m.WriteDataset(d.group, d.name, d.data); err != nil {
			return nil, err
		}
	}
	return m, nil
}
