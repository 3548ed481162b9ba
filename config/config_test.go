package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	return Parse(fs, args)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := parse(t, "-pid", "1")
	require.NoError(t, err)
	require.Equal(t, 1, cfg.PID)
	require.Equal(t, 6, cfg.Threads)
	require.Equal(t, 1, cfg.Repeat)
	require.Equal(t, "127.0.0.1", cfg.Topology.Host[0])
	require.Equal(t, 10000, cfg.Topology.Port[0])
	require.Equal(t, 10002, cfg.Topology.Port[2])
	require.Nil(t, cfg.TLS)
}

func TestParseRejectsMissingPID(t *testing.T) {
	_, err := parse(t)
	require.ErrorIs(t, err, ErrConfig)
}

func TestParseRejectsOutOfRangePID(t *testing.T) {
	_, err := parse(t, "-pid", "3")
	require.ErrorIs(t, err, ErrConfig)
}

func TestParseRejectsConflictingTopologyFlags(t *testing.T) {
	_, err := parse(t, "-pid", "0", "-localhost", "-net-config", "x.json")
	require.ErrorIs(t, err, ErrConfig)
}

func TestParseNetConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "net.json")
	require.NoError(t, os.WriteFile(path, []byte(`["10.0.0.1","10.0.0.2","10.0.0.3"]`), 0o644))

	cfg, err := parse(t, "-pid", "2", "-port", "20000", "-net-config", path)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1", cfg.Topology.Host[0])
	require.Equal(t, "10.0.0.3", cfg.Topology.Host[2])
	require.Equal(t, 20002, cfg.Topology.Port[2])
}

func TestParseNetConfigWrongCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "net.json")
	require.NoError(t, os.WriteFile(path, []byte(`["10.0.0.1","10.0.0.2"]`), 0o644))

	_, err := parse(t, "-pid", "0", "-net-config", path)
	require.ErrorIs(t, err, ErrConfig)
}

func TestParseTLSRequiresAllThree(t *testing.T) {
	_, err := parse(t, "-pid", "0", "-cert", "c.pem")
	require.ErrorIs(t, err, ErrConfig)
}

func TestParseTLSComplete(t *testing.T) {
	cfg, err := parse(t, "-pid", "0", "-cert", "c.pem", "-key", "k.pem", "-ca", "ca.pem")
	require.NoError(t, err)
	require.NotNil(t, cfg.TLS)
	require.Equal(t, "c.pem", cfg.TLS.CertificatePath)
}

func TestParseSeedWords(t *testing.T) {
	cfg, err := parse(t, "-pid", "1", "-seed-self-hi", "7", "-seed-12-lo", "42")
	require.NoError(t, err)
	require.Equal(t, uint64(7), cfg.Seeds.SelfHi)
	require.Equal(t, uint64(42), cfg.Seeds.P12Lo)
}
