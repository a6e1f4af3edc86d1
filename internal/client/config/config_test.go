package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()
	want := &Config{ServerEndpointAddr: "127.0.0.1:50051", Timeout: 90 * time.Second}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFlags(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()

	rest, err := parseFlags(c, []string{"-a", "pool:9000", "-k", "tok", "-t", "5s", "assign", "guest", "2026-04-01"})
	require.NoError(t, err)
	assert.Equal(t, []string{"assign", "guest", "2026-04-01"}, rest)
	assert.Equal(t, "pool:9000", c.ServerEndpointAddr)
	assert.Equal(t, "tok", c.AccessToken)
	assert.Equal(t, 5*time.Second, c.Timeout)
}

func TestParseFlags_Unknown(t *testing.T) {
	c := &Config{}
	_, err := parseFlags(c, []string{"-zzz", "list"})
	assert.Error(t, err)
}

func TestParseEnv(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()
	env := map[string]string{envAddr: "env:1", envToken: "envtok"}
	parseEnv(c, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	assert.Equal(t, "env:1", c.ServerEndpointAddr)
	assert.Equal(t, "envtok", c.AccessToken)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "poolctl.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server_endpoint_addr":"json:1","access_token":"jsontok","timeout":"10s"}`), 0o600))

	t.Setenv(envAddr, "")
	t.Setenv(envToken, "envtok")

	cfg, rest, err := LoadConfig([]string{"-c", path, "-a", "flag:1", "list"})
	require.NoError(t, err)
	assert.Equal(t, []string{"list"}, rest)
	assert.Equal(t, "flag:1", cfg.ServerEndpointAddr)
	assert.Equal(t, "envtok", cfg.AccessToken)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestLoadConfig_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, _, err := LoadConfig([]string{"-c", path, "list"})
	assert.ErrorContains(t, err, "parse config")
}
