package sink

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

// LayoutMetadataKey holds the group/dataset hierarchy, including empty
// datasets, as JSON in the parquet key/value metadata
const LayoutMetadataKey = "lager.layout"

// ParquetRow is one value of one dataset. The file is a long table: the
// hierarchy is carried by the group and dataset columns.
type ParquetRow struct {
	Group   string  `parquet:"group,dict"`
	Dataset string  `parquet:"dataset,dict"`
	Index   int64   `parquet:"index"`
	Value   float32 `parquet:"value"`
}

// LayoutGroup lists the datasets of one group in write order
type LayoutGroup struct {
	Name     string   `json:"name"`
	Datasets []string `json:"datasets"`
}

// Parquet writes every dataset into a single parquet file
type Parquet struct {
	file     *os.File
	writer   *parquet.GenericWriter[ParquetRow]
	path     string
	layout   []LayoutGroup
	groups   map[string]int
	datasets map[[2]string]struct{}
}

// OpenParquet creates a parquet sink at path, truncating any existing file
func OpenParquet(path string) (Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, writeErr("open", path, err)
	}
	return &Parquet{
		file:     f,
		writer:   parquet.NewGenericWriter[ParquetRow](f),
		path:     path,
		groups:   make(map[string]int),
		datasets: make(map[[2]string]struct{}),
	}, nil
}

func (p *Parquet) CreateGroup(name string) error {
	if _, ok := p.groups[name]; ok {
		return nil
	}
	p.groups[name] = len(p.layout)
	p.layout = append(p.layout, LayoutGroup{Name: name, Datasets: []string{}})
	return nil
}

func (p *Parquet) WriteDataset(group, name string, data []float32) error {
	path := group + "/" + name
	i, ok := p.groups[group]
	if !ok {
		return writeErr("write dataset", path, fmt.Errorf("group %q does not exist", group))
	}
	id := [2]string{group, name}
	if _, exists := p.datasets[id]; exists {
		return writeErr("write dataset", path, errors.New("dataset already exists"))
	}

	rows := make([]ParquetRow, len(data))
	for j, v := range data {
		rows[j] = ParquetRow{Group: group, Dataset: name, Index: int64(j), Value: v}
	}
	if len(rows) > 0 {
		if _, err := p.writer.Write(rows); err != nil {
			return writeErr("write dataset", path, err)
		}
	}

	p.datasets[id] = struct{}{}
	p.layout[i].Datasets = append(p.layout[i].Datasets, name)
	return nil
}

func (p *Parquet) SetAttribute(key, value string) error {
	if key == LayoutMetadataKey {
		return writeErr("set attribute", key, fmt.Errorf("%q is reserved", key))
	}
	p.writer.SetKeyValueMetadata(key, value)
	return nil
}

func (p *Parquet) Close() error {
	layout, err := json.Marshal(p.layout)
	if err != nil {
		p.file.Close()
		return writeErr("close", p.path, err)
	}
	p.writer.SetKeyValueMetadata(LayoutMetadataKey, string(layout))

	if err := p.writer.Close(); err != nil {
		p.file.Close()
		return writeErr("close", p.path, err)
	}
	return writeErr("close", p.path, p.file.Close())
}

// ReadParquet loads a parquet output file back into memory
func ReadParquet(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, err
	}

	m := NewMemory()
	raw, ok := pf.Lookup(LayoutMetadataKey)
	if !ok {
		return nil, fmt.Errorf("%s: missing %s metadata", path, LayoutMetadataKey)
	}
	var layout []LayoutGroup
	if err := json.Unmarshal([]byte(raw), &layout); err != nil {
		return nil, fmt.Errorf("%s: bad layout metadata: %w", path, err)
	}
	for _, kv := range pf.Metadata().KeyValueMetadata {
		if kv.Key != LayoutMetadataKey {
			m.Attributes[kv.Key] = kv.Value
		}
	}

	rows, err := parquet.ReadFile[ParquetRow](path)
	if err != nil {
		return nil, err
	}
	columns := make(map[[2]string][]float32)
	for _, r := range rows {
		k := [2]string{r.Group, r.Dataset}
		columns[k] = append(columns[k], r.Value)
	}

	for _, g := range layout {
		if err := m.CreateGroup(g.Name); err != nil {
			return nil, err
		}
		for _, name := range g.Datasets {
			if err := m.WriteDataset(g.Name, name, columns[[2]string{g.Name, name}]); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}
