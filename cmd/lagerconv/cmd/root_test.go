package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ssargent/lagerconv/pkg/api"
	"github.com/ssargent/lagerconv/pkg/codec"
	"github.com/ssargent/lagerconv/pkg/config"
	"github.com/ssargent/lagerconv/pkg/di"
	"github.com/ssargent/lagerconv/pkg/sink"
	"github.com/ssargent/lagerconv/pkg/stream/lagertest"
)

const tempID = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"

// execute runs the root command with fresh flag state and captures its output
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, c := range []*cobra.Command{rootCmd, inspectCmd, serveCmd, initCmd} {
		reset := func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// workspace writes a LAGER file and a quiet config into a temp dir
func workspace(t *testing.T) (input, configPath string) {
	t.Helper()
	dir := t.TempDir()

	f := lagertest.New(lagertest.Format{UUID: tempID, Key: "grpA", Fields: []lagertest.Field{
		{Name: "temp", Type: "float32"},
	}})
	f.Record(tempID, 1, codec.Float32Value(10.0))
	input = filepath.Join(dir, "flight.lgr")
	require.NoError(t, os.WriteFile(input, f.Bytes(), 0644))

	cfg := config.DefaultConfig()
	cfg.Logging.Level = "error"
	configPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, config.SaveConfig(cfg, configPath))
	return input, configPath
}

func TestConvertCommand(t *testing.T) {
	SetContainer(di.NewContainer())
	input, cfg := workspace(t)

	out, err := execute(t, "--config", cfg, input)
	require.NoError(t, err)

	expected := filepath.Join(filepath.Dir(input), "flight_converted.bolt")
	assert.Contains(t, out, expected)

	got, err := sink.ReadBolt(expected)
	require.NoError(t, err)
	assert.Equal(t, []float32{10.0}, got.Datasets["grpA"]["temp"])
}

func TestConvertCommand_FlagsOverrideConfig(t *testing.T) {
	SetContainer(di.NewContainer())
	input, cfg := workspace(t)
	outDir := t.TempDir()

	_, err := execute(t, "--config", cfg, "--format", "parquet", "--out-dir", outDir, input)
	require.NoError(t, err)

	got, err := sink.ReadParquet(filepath.Join(outDir, "flight_converted.parquet"))
	require.NoError(t, err)
	assert.Equal(t, []float32{10.0}, got.Datasets["grpA"]["temp"])
}

func TestConvertCommand_Errors(t *testing.T) {
	SetContainer(di.NewContainer())
	input, cfg := workspace(t)

	t.Run("no arguments", func(t *testing.T) {
		_, err := execute(t, "--config", cfg)
		assert.Error(t, err)
	})

	t.Run("two arguments", func(t *testing.T) {
		_, err := execute(t, "--config", cfg, input, input)
		assert.Error(t, err)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := execute(t, "--config", cfg, "--format", "hdf5", input)
		assert.ErrorContains(t, err, "unknown output format")
	})

	t.Run("missing input", func(t *testing.T) {
		_, err := execute(t, "--config", cfg, filepath.Join(t.TempDir(), "none.lgr"))
		assert.Error(t, err)
	})

	t.Run("nil container", func(t *testing.T) {
		SetContainer(nil)
		defer SetContainer(di.NewContainer())
		_, err := execute(t, "--config", cfg, input)
		assert.ErrorContains(t, err, "dependency container not initialized")
	})
}

func TestInspectCommand(t *testing.T) {
	input, _ := workspace(t)

	out, err := execute(t, "inspect", input)
	require.NoError(t, err)
	assert.Contains(t, out, "data_offset: 38")
	assert.Contains(t, out, "key: grpA")

	out, err = execute(t, "inspect", "--json", input)
	require.NoError(t, err)
	assert.Contains(t, out, `"record_size": 28`)
}

type recordingStarter struct {
	config *api.ServerConfig
}

func (s recordingStarter) StartServer(_ context.Context, cfg api.ServerConfig, _ *zap.Logger) error {
	*s.config = cfg
	return nil
}

type recordingFactory struct {
	config *api.ServerConfig
}

func (f recordingFactory) CreateServerStarter() api.ServerStarter {
	return recordingStarter{config: f.config}
}

func TestServeCommand(t *testing.T) {
	_, cfg := workspace(t)

	var got api.ServerConfig
	c := di.NewContainer()
	c.SetServerFactory(recordingFactory{config: &got})
	SetContainer(c)
	defer SetContainer(di.NewContainer())

	_, err := execute(t, "serve", "--config", cfg, "--port", "9400", "--api-key", "k")
	require.NoError(t, err)

	assert.Equal(t, api.ServerConfig{
		Bind:           "127.0.0.1",
		Port:           9400,
		APIKey:         "k",
		MaxUploadBytes: 64 << 20,
	}, got)
}
