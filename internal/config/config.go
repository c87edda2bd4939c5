// Package config loads ChatDraw settings from flags, CHATDRAW_* environment
// variables, an optional config file and an optional .env file, in that order
// of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"ChatDraw/internal/state"
	"ChatDraw/internal/wire"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// EnvPrefix prefixes every environment variable read by viper.
const EnvPrefix = "CHATDRAW"

// Configuration keys.
const (
	KeyAddr         = "addr"
	KeyTransport    = "transport"
	KeySocketPath   = "ws_path"
	KeyLogLevel     = "log_level"
	KeyEcho         = "echo"
	KeyWriteTimeout = "write_timeout"
	KeyIdleTimeout  = "idle_timeout"
	KeyAdvertise    = "advertise"
	KeyInstance     = "instance"
	KeyServer       = "server"
	KeyName         = "name"
	KeyColor        = "color"
	KeyWidth        = "width"
)

// DefaultPort is the port the server listens on when none is configured.
const DefaultPort = 12345

var (
	ErrInvalidTransport = errors.New("transport must be tcp or websocket")
	ErrNegativeTimeout  = errors.New("timeouts must not be negative")
	ErrMissingAddr      = errors.New("address must not be empty")
)

// Server configures the session server.
type Server struct {
	Addr         string
	Transport    string
	SocketPath   string
	Echo         bool
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Advertise    bool
	Instance     string
}

// Client configures the headless client.
type Client struct {
	Server     string
	Transport  string
	SocketPath string
	Name       string
	Color      string
	Width      float32
}

// New returns a viper instance with defaults and environment binding in place.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyAddr, fmt.Sprintf(":%d", DefaultPort))
	v.SetDefault(KeyTransport, wire.TransportTCP)
	v.SetDefault(KeySocketPath, wire.DefaultSocketPath)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyEcho, true)
	v.SetDefault(KeyWriteTimeout, 10*time.Second)
	v.SetDefault(KeyIdleTimeout, time.Duration(0))
	v.SetDefault(KeyAdvertise, false)
	v.SetDefault(KeyInstance, defaultInstance())
	v.SetDefault(KeyServer, fmt.Sprintf("localhost:%d", DefaultPort))
	v.SetDefault(KeyName, "")
	v.SetDefault(KeyColor, state.ColorBlack)
	v.SetDefault(KeyWidth, 2.0)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadEnv loads variables from a .env file into the process environment. An
// empty path means ".env" in the working directory, which may be missing.
func LoadEnv(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil {
			logger.Debug("no .env file found, using environment variables")
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "load env file %s failed", path)
	}
	return nil
}

// ReadFile merges a config file (yaml, toml, json, ...) into v.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "read config file %s failed", path)
	}
	return nil
}

// ServerFrom extracts and validates the server settings.
func ServerFrom(v *viper.Viper) (Server, error) {
	cfg := Server{
		Addr:         v.GetString(KeyAddr),
		Transport:    strings.ToLower(v.GetString(KeyTransport)),
		SocketPath:   v.GetString(KeySocketPath),
		Echo:         v.GetBool(KeyEcho),
		WriteTimeout: v.GetDuration(KeyWriteTimeout),
		IdleTimeout:  v.GetDuration(KeyIdleTimeout),
		Advertise:    v.GetBool(KeyAdvertise),
		Instance:     v.GetString(KeyInstance),
	}
	if cfg.Addr == "" {
		return Server{}, ErrMissingAddr
	}
	if err := validateTransport(cfg.Transport); err != nil {
		return Server{}, err
	}
	if cfg.WriteTimeout < 0 || cfg.IdleTimeout < 0 {
		return Server{}, ErrNegativeTimeout
	}
	return cfg, nil
}

// ClientFrom extracts and validates the client settings.
func ClientFrom(v *viper.Viper) (Client, error) {
	cfg := Client{
		Server:     v.GetString(KeyServer),
		Transport:  strings.ToLower(v.GetString(KeyTransport)),
		SocketPath: v.GetString(KeySocketPath),
		Name:       strings.TrimSpace(v.GetString(KeyName)),
		Color:      v.GetString(KeyColor),
		Width:      float32(v.GetFloat64(KeyWidth)),
	}
	if cfg.Server == "" {
		return Client{}, ErrMissingAddr
	}
	if err := validateTransport(cfg.Transport); err != nil {
		return Client{}, err
	}
	if _, err := state.ParseColor(cfg.Color); err != nil {
		return Client{}, errors.Wrap(err, "invalid pen color")
	}
	if cfg.Width <= 0 {
		return Client{}, state.ErrInvalidWidth
	}
	return cfg, nil
}

func validateTransport(transport string) error {
	switch transport {
	case wire.TransportTCP, wire.TransportWebSocket:
		return nil
	}
	return errors.Wrapf(ErrInvalidTransport, "got %q", transport)
}

func defaultInstance() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "chatdraw"
	}
	return host
}
