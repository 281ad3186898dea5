package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/ssargent/lagerconv/pkg/codec"
	"github.com/ssargent/lagerconv/pkg/convert"
	"github.com/ssargent/lagerconv/pkg/schema"
	"github.com/ssargent/lagerconv/pkg/sink"
	"github.com/ssargent/lagerconv/pkg/stream"
)

// uploadSource is the source attribute of conversions made from request bodies
const uploadSource = "upload"

// Server holds the API server state
type Server struct {
	config  ServerConfig
	metrics *Metrics
	logger  *zap.Logger
}

// NewServer creates a new API server
func NewServer(config ServerConfig, metrics *Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleInspect returns the header and schema of the uploaded file
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	data, ok := s.readBody(w, r)
	if !ok {
		return
	}

	summary, err := convert.Inspect(data)
	s.metrics.RecordConversion("inspect", false, err == nil, len(data), time.Since(start))
	if err != nil {
		s.sendDecodeError(w, err)
		return
	}
	sendSuccess(w, summary)
}

// handleConvert decodes the uploaded file and returns every column.
// ?legacy=true selects the legacy scan mode.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	legacy := false
	if v := r.URL.Query().Get("legacy"); v != "" {
		var err error
		if legacy, err = strconv.ParseBool(v); err != nil {
			sendError(w, fmt.Sprintf("invalid legacy parameter %q", v), http.StatusBadRequest)
			return
		}
	}

	data, ok := s.readBody(w, r)
	if !ok {
		return
	}

	decoded, err := convert.Decode(data, legacy)
	s.metrics.RecordConversion("convert", legacy, err == nil, len(data), time.Since(start))
	if err != nil {
		s.sendDecodeError(w, err)
		return
	}
	s.metrics.RecordRecords(decoded.Stats.Records-decoded.Stats.Unmatched, decoded.Stats.Unmatched)

	id := ksuid.New().String()
	out := sink.NewMemory()
	err = convert.Emit(decoded, out, map[string]string{
		convert.AttrConversionID: id,
		convert.AttrSource:       uploadSource,
	})
	if err != nil {
		s.logger.Error("emit failed", zap.String("conversion_id", id), zap.Error(err))
		sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.logger.Info("converted upload",
		zap.String("conversion_id", id),
		zap.Bool("legacy", legacy),
		zap.Int("records", decoded.Stats.Records),
		zap.Int("columns", decoded.Columns.Len()))

	sendSuccess(w, buildConvertResponse(id, decoded, out))
}

// readBody reads the whole request body, decompressing zstd uploads. On
// failure it writes the error response and returns false.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if s.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return nil, false
	}
	if len(data) == 0 {
		sendError(w, "Request body is empty", http.StatusBadRequest)
		return nil, false
	}

	data, err = convert.Decompress(data, s.config.MaxUploadBytes)
	if errors.Is(err, convert.ErrInputTooLarge) {
		sendError(w, fmt.Sprintf("decompressed body exceeds %d bytes", s.config.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return nil, false
	}
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return data, true
}

// sendDecodeError maps the conversion error taxonomy onto HTTP statuses
func (s *Server) sendDecodeError(w http.ResponseWriter, err error) {
	var (
		truncated *stream.TruncatedInputError
		parse     *schema.SchemaParseError
		decode    *codec.DecodeError
	)
	switch {
	case errors.As(err, &truncated), errors.As(err, &parse), errors.As(err, &decode):
		s.logger.Debug("rejected upload", zap.Error(err))
		sendError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		s.logger.Error("decode failed", zap.Error(err))
		sendError(w, err.Error(), http.StatusInternalServerError)
	}
}

func buildConvertResponse(id string, d *convert.Decoded, out *sink.Memory) ConvertResponse {
	resp := ConvertResponse{
		ConversionID: id,
		Version:      d.Header.Version,
		Groups:       make([]GroupResponse, 0, len(out.Groups)),
		Attributes:   out.Attributes,
		Stats:        d.Stats,
	}

	index := make(map[string]int, len(out.Groups))
	for _, g := range out.Groups {
		index[g] = len(resp.Groups)
		resp.Groups = append(resp.Groups, GroupResponse{Name: g, Datasets: []DatasetResponse{}})
	}
	for _, key := range d.Columns.Keys() {
		i, ok := index[key.Group]
		if !ok {
			continue
		}
		resp.Groups[i].Datasets = append(resp.Groups[i].Datasets, DatasetResponse{
			Name:   key.Name,
			Values: Float32s(out.Datasets[key.Group][key.Name]),
		})
	}
	return resp
}
