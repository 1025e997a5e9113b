package shared

import (
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"

	EnvelopeBare = "bare"
	EnvelopeData = "data"
)

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`

	StoreDriver string `toml:"store_driver"`
	DataFile    string `toml:"data_file"`
	DBPath      string `toml:"db_path"`
	SeedSample  bool   `toml:"seed_sample"`

	Envelope string `toml:"response_envelope"`
	MaxConns int    `toml:"max_conns"`
	LogLevel string `toml:"log_level"`
}

func NewDefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:        "127.0.0.1",
		Port:        8000,
		Username:    "apiuser",
		Password:    "apipass",
		StoreDriver: DriverJSON,
		DataFile:    "data/processed/transactions.json",
		DBPath:      "data/transactions.db",
		Envelope:    EnvelopeBare,
		MaxConns:    64,
		LogLevel:    "info",
	}
}

// LoadServerConfig layers, lowest precedence first: defaults, the optional TOML
// file at path, a .env file in the working directory, then the process environment.
func LoadServerConfig(path string) (*ServerConfig, error) {
	c := NewDefaultServerConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, errors.Wrapf(err, "decode config %s", path)
		}
	}
	// a missing .env is normal outside development
	_ = godotenv.Load()

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ServerConfig) applyEnv(lookup func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	num := func(dst *int, key string) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", key)
		}
		*dst = n
		return nil
	}

	str(&c.Host, "HOST")
	str(&c.Username, "API_BASIC_USERNAME", "API_USER")
	str(&c.Password, "API_BASIC_PASSWORD", "API_PASS")
	str(&c.StoreDriver, "STORE_DRIVER")
	str(&c.DataFile, "DATA_FILE")
	str(&c.DBPath, "DB_PATH")
	str(&c.Envelope, "RESPONSE_ENVELOPE")
	str(&c.LogLevel, "LOG_LEVEL")
	if err := num(&c.Port, "PORT"); err != nil {
		return err
	}
	if err := num(&c.MaxConns, "MAX_CONNS"); err != nil {
		return err
	}
	if v, ok := lookup("SEED_SAMPLE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "invalid SEED_SAMPLE")
		}
		c.SeedSample = b
	}
	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("port %d out of range", c.Port)
	}
	c.StoreDriver = strings.ToLower(c.StoreDriver)
	switch c.StoreDriver {
	case DriverJSON, DriverSQLite, DriverMemory:
	default:
		return errors.Errorf("unknown store driver %q", c.StoreDriver)
	}
	c.Envelope = strings.ToLower(c.Envelope)
	if c.Envelope != EnvelopeBare && c.Envelope != EnvelopeData {
		return errors.Errorf("unknown response envelope %q", c.Envelope)
	}
	if c.DataFile == "" {
		return errors.New("data file path is empty")
	}
	if c.MaxConns <= 0 {
		c.MaxConns = 64
	}
	return nil
}

func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ClientConfig is what momo-cli needs to reach a running server.
type ClientConfig struct {
	ServerURL      string `toml:"server_url"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

func LoadClientConfig(path string) (*ClientConfig, error) {
	c := &ClientConfig{}
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, errors.Wrapf(err, "decode config %s", path)
		}
	}
	_ = godotenv.Load()

	if v := os.Getenv("MOMO_SERVER_URL"); v != "" {
		c.ServerURL = v
	}
	if v := firstEnv("API_BASIC_USERNAME", "API_USER"); v != "" {
		c.Username = v
	}
	if v := firstEnv("API_BASIC_PASSWORD", "API_PASS"); v != "" {
		c.Password = v
	}
	if c.ServerURL == "" {
		c.ServerURL = "http://127.0.0.1:8000"
	}
	if c.Username == "" {
		c.Username = "apiuser"
	}
	if c.Password == "" {
		c.Password = "apipass"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 20
	}
	return c, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
