package api

import (
	"math"
	"strconv"

	"github.com/ssargent/lagerconv/pkg/stream"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind           string
	Port           int
	APIKey         string // empty disables authentication
	MaxUploadBytes int64
}

// ConvertResponse is the body of a successful conversion
type ConvertResponse struct {
	ConversionID string            `json:"conversion_id"`
	Version      uint16            `json:"version"`
	Groups       []GroupResponse   `json:"groups"`
	Attributes   map[string]string `json:"attributes"`
	Stats        stream.Stats      `json:"stats"`
}

// GroupResponse holds the datasets of one group
type GroupResponse struct {
	Name     string            `json:"name"`
	Datasets []DatasetResponse `json:"datasets"`
}

// DatasetResponse is one converted column
type DatasetResponse struct {
	Name   string   `json:"name"`
	Values Float32s `json:"values"`
}

// Float32s encodes non-finite values as null, which plain JSON cannot carry
type Float32s []float32

func (f Float32s) MarshalJSON() ([]byte, error) {
	out := make([]byte, 0, 2+len(f)*8)
	out = append(out, '[')
	for i, v := range f {
		if i > 0 {
			out = append(out, ',')
		}
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			out = append(out, "null"...)
			continue
		}
		out = strconv.AppendFloat(out, float64(v), 'g', -1, 32)
	}
	return append(out, ']'), nil
}
