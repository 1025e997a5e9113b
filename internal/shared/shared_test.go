package shared

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsMatch(t *testing.T) {
	c := Credentials{Username: "apiuser", Password: "apipass"}

	assert.True(t, c.Match("apiuser", "apipass"))
	assert.False(t, c.Match("apiuser", "apipas"))
	assert.False(t, c.Match("apiuse", "apipass"))
	assert.False(t, c.Match("", ""))
	assert.False(t, c.Match("apipass", "apiuser"))

	assert.True(t, c.MatchHeader(BasicHeader("apiuser", "apipass")))
	assert.True(t, c.MatchHeader("basic YXBpdXNlcjphcGlwYXNz"))
	assert.False(t, c.MatchHeader("Bearer abc"))
	assert.False(t, c.MatchHeader("Basic !!!"))
	assert.False(t, c.MatchHeader("Basic YXBpdXNlcg=="), "no colon")
}

func TestParseBasicPasswordWithColon(t *testing.T) {
	user, pass, ok := ParseBasic(BasicHeader("u", "p:a:ss"))
	require.True(t, ok)
	assert.Equal(t, "u", user)
	assert.Equal(t, "p:a:ss", pass)
}

func TestCoerceID(t *testing.T) {
	cases := []struct {
		in   any
		want int64
		ok   bool
	}{
		{json.Number("7"), 7, true},
		{json.Number("7.0"), 7, true},
		{json.Number("7.5"), 0, false},
		{float64(3), 3, true},
		{float64(3.2), 0, false},
		{int(4), 4, true},
		{int64(9), 9, true},
		{" 12 ", 12, true},
		{"abc", 0, false},
		{json.Number("0"), 0, false},
		{json.Number("-1"), 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, c := range cases {
		got, ok := CoerceID(c.in)
		assert.Equal(t, c.ok, ok, "%#v", c.in)
		assert.Equal(t, c.want, got, "%#v", c.in)
	}
}

func TestRecordClone(t *testing.T) {
	r := Record{"id": int64(1), "amount": 5}
	c := r.Clone()
	c["amount"] = 6
	assert.Equal(t, 5, r["amount"])
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"HOST":               "0.0.0.0",
		"PORT":               "9001",
		"API_USER":           "fallback",
		"API_BASIC_USERNAME": "primary",
		"API_PASS":           "secret",
		"STORE_DRIVER":       "SQLite",
		"RESPONSE_ENVELOPE":  "data",
		"SEED_SAMPLE":        "true",
		"MAX_CONNS":          "8",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	c := NewDefaultServerConfig()
	require.NoError(t, c.applyEnv(lookup))
	require.NoError(t, c.Validate())

	assert.Equal(t, "0.0.0.0:9001", c.Addr())
	assert.Equal(t, "primary", c.Username)
	assert.Equal(t, "secret", c.Password)
	assert.Equal(t, DriverSQLite, c.StoreDriver)
	assert.Equal(t, EnvelopeData, c.Envelope)
	assert.True(t, c.SeedSample)
	assert.Equal(t, 8, c.MaxConns)

	env["PORT"] = "eighty"
	assert.Error(t, NewDefaultServerConfig().applyEnv(lookup))
}

func TestValidate(t *testing.T) {
	c := NewDefaultServerConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, "127.0.0.1:8000", c.Addr())
	assert.Equal(t, "apiuser", c.Username)
	assert.Equal(t, "apipass", c.Password)

	c.StoreDriver = "postgres"
	assert.Error(t, c.Validate())

	c = NewDefaultServerConfig()
	c.Envelope = "xml"
	assert.Error(t, c.Validate())

	c = NewDefaultServerConfig()
	c.Port = 70000
	assert.Error(t, c.Validate())
}

func TestLoadServerConfigFromTOML(t *testing.T) {
	for _, k := range []string{"HOST", "PORT", "DATA_FILE", "STORE_DRIVER", "API_BASIC_USERNAME", "API_USER"} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), "momo.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = 8100
data_file = "data/sms_records.json"
username = "ops"
`), 0o644))

	c, err := LoadServerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8100, c.Port)
	assert.Equal(t, "data/sms_records.json", c.DataFile)
	assert.Equal(t, "ops", c.Username)
	assert.Equal(t, DriverJSON, c.StoreDriver)

	t.Setenv("PORT", "8200")
	c, err = LoadServerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8200, c.Port, "environment overrides the file")

	_, err = LoadServerConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("warn")
	require.NoError(t, err)
	assert.False(t, log.Desugar().Core().Enabled(-1))

	log, err = NewLogger("nonsense")
	require.NoError(t, err)
	assert.True(t, log.Desugar().Core().Enabled(0))
}
