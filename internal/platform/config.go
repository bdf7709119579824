package platform

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/aretw0/moss/pkg/core"
)

// Config is the flat, user-facing configuration read from MOSS_* variables
// and CLI flags. Options converts it into functional options.
type Config struct {
	Dir           string        `validate:"required_unless=Store memory"`
	Store         string        `validate:"oneof=fs sqlite memory"`
	Codec         string        `validate:"oneof=json yaml"`
	Remote        string        `validate:"oneof=stub couch"`
	CouchURL      string        `validate:"required_if=Remote couch,omitempty,url"`
	CouchDB       string        `validate:"omitempty,max=238"`
	StubDelay     time.Duration `validate:"gte=0"`
	Online        string        `validate:"oneof=auto true false"`
	ProbeInterval time.Duration `validate:"gte=0"`
	EventBuffer   int           `validate:"gte=0"`
	Watch         bool
	DevSafety     bool
	Addr          string `validate:"omitempty,hostname_port"`
	LogFile       string
	LogLevel      string `validate:"oneof=debug info warn error"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Store:     StoreFS,
		Codec:     "json",
		Remote:    RemoteStub,
		StubDelay: 1500 * time.Millisecond,
		Online:    OnlineAuto,
		DevSafety: true,
		Addr:      "127.0.0.1:7717",
		LogLevel:  "info",
	}
}

// LoadConfig reads a .env file from the working directory when present and
// overlays MOSS_* environment variables on the defaults.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	c := DefaultConfig()
	c.Dir = getEnv("MOSS_DIR", c.Dir)
	c.Store = getEnv("MOSS_STORE", c.Store)
	c.Codec = getEnv("MOSS_CODEC", c.Codec)
	c.Remote = getEnv("MOSS_REMOTE", c.Remote)
	c.CouchURL = getEnv("MOSS_COUCH_URL", c.CouchURL)
	c.CouchDB = getEnv("MOSS_COUCH_DB", c.CouchDB)
	c.Online = getEnv("MOSS_ONLINE", c.Online)
	c.Addr = getEnv("MOSS_ADDR", c.Addr)
	c.LogFile = getEnv("MOSS_LOG_FILE", c.LogFile)
	c.LogLevel = getEnv("MOSS_LOG_LEVEL", c.LogLevel)
	c.Watch = getEnvAsBool("MOSS_WATCH", c.Watch)
	c.DevSafety = getEnvAsBool("MOSS_DEV_SAFETY", c.DevSafety)
	c.EventBuffer = getEnvAsInt("MOSS_EVENT_BUFFER", c.EventBuffer)

	var err error
	if c.StubDelay, err = getEnvAsDuration("MOSS_STUB_DELAY", c.StubDelay); err != nil {
		return c, err
	}
	if c.ProbeInterval, err = getEnvAsDuration("MOSS_PROBE_INTERVAL", c.ProbeInterval); err != nil {
		return c, err
	}
	return c, nil
}

// Validate checks the configuration. Errors wrap core.ErrInvalidConfig.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
	}
	return nil
}

// Options converts the configuration into functional options.
func (c Config) Options() []Option {
	opts := []Option{
		WithStore(c.Store),
		WithCodec(c.Codec),
		WithRemoteName(c.Remote),
		WithStubDelay(c.StubDelay),
		WithOnline(c.Online),
		WithProbeInterval(c.ProbeInterval),
		WithEventBuffer(c.EventBuffer),
		WithWatch(c.Watch),
		WithDevSafety(c.DevSafety),
	}
	if c.Remote == RemoteCouch {
		opts = append(opts, WithCouch(c.CouchURL, c.CouchDB))
	}
	return opts
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue, fmt.Errorf("%w: invalid %s: %v", core.ErrInvalidConfig, key, err)
	}
	return d, nil
}
