package sink

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed sink
var ErrClosed = errors.New("sink closed")

// Memory is an in-process sink. It keeps groups in creation order.
type Memory struct {
	Groups     []string
	Datasets   map[string]map[string][]float32
	Attributes map[string]string
	closed     bool
	closeCount int
}

// NewMemory creates an empty in-memory sink
func NewMemory() *Memory {
	return &Memory{
		Datasets:   make(map[string]map[string][]float32),
		Attributes: make(map[string]string),
	}
}

func (m *Memory) CreateGroup(name string) error {
	if m.closed {
		return writeErr("create group", name, ErrClosed)
	}
	if _, ok := m.Datasets[name]; ok {
		return nil
	}
	m.Groups = append(m.Groups, name)
	m.Datasets[name] = make(map[string][]float32)
	return nil
}

func (m *Memory) WriteDataset(group, name string, data []float32) error {
	path := group + "/" + name
	if m.closed {
		return writeErr("write dataset", path, ErrClosed)
	}
	g, ok := m.Datasets[group]
	if !ok {
		return writeErr("write dataset", path, fmt.Errorf("group %q does not exist", group))
	}
	if _, exists := g[name]; exists {
		return writeErr("write dataset", path, errors.New("dataset already exists"))
	}
	out := make([]float32, len(data))
	copy(out, data)
	g[name] = out
	return nil
}

func (m *Memory) SetAttribute(key, value string) error {
	if m.closed {
		return writeErr("set attribute", key, ErrClosed)
	}
	m.Attributes[key] = value
	return nil
}

func (m *Memory) Close() error {
	m.closeCount++
	m.closed = true
	return nil
}

// Closed reports whether Close has been called
func (m *Memory) Closed() bool {
	return m.closed
}

// CloseCount returns how many times Close was called
func (m *Memory) CloseCount() int {
	return m.closeCount
}
