package convert

import (
	"fmt"

	"github.com/segmentio/ksuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ssargent/lagerconv/pkg/sink"
)

// Options configures one conversion
type Options struct {
	Input     string
	OutputDir string       // empty writes next to the input
	Backend   sink.Backend // zero value uses sink.DefaultBackend
	Legacy    bool
	Logger    *zap.Logger
}

// Result describes a finished conversion
type Result struct {
	Output       string
	ConversionID string
	*Decoded
}

// Run converts opts.Input. The whole file is decoded before the sink is
// opened; the sink is closed exactly once whether or not emission succeeds.
func Run(opts Options) (result *Result, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	backend := opts.Backend
	if backend.Open == nil {
		if backend, err = sink.Lookup(sink.DefaultBackend); err != nil {
			return nil, err
		}
	}

	data, err := ReadInput(opts.Input)
	if err != nil {
		return nil, err
	}

	decoded, err := Decode(data, opts.Legacy)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", opts.Input, err)
	}
	logDecoded(logger, decoded)

	output := OutputPath(opts.Input, opts.OutputDir, backend.Extension)
	id := ksuid.New().String()

	out, err := backend.Open(output)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, out.Close())
		if err != nil {
			result = nil
		}
	}()

	attrs := map[string]string{
		AttrConversionID: id,
		AttrSource:       opts.Input,
	}
	if err := Emit(decoded, out, attrs); err != nil {
		return nil, err
	}

	logger.Info("wrote output",
		zap.String("path", output),
		zap.String("format", backend.Name),
		zap.String("conversion_id", id))

	return &Result{Output: output, ConversionID: id, Decoded: decoded}, nil
}
