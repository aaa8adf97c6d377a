// Package config loads sigrelay settings from defaults, an optional YAML file,
// a .env file, SIGRELAY_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. SIGRELAY_LISTEN_ADDR.
const EnvPrefix = "SIGRELAY"

const (
	KeyListenAddr        = "listen_addr"
	KeyPath              = "path"
	KeyPingInterval      = "ping_interval"
	KeyPingTimeout       = "ping_timeout"
	KeyMaxPayload        = "max_payload"
	KeyAllowedOrigins    = "allowed_origins"
	KeyAllowedMethods    = "allowed_methods"
	KeyLogLevel          = "log_level"
	KeyLogFormat         = "log_format"
	KeyShutdownTimeout   = "shutdown_timeout"
	KeyMaxRoomNameLength = "max_room_name_length"
)

type Config struct {
	ListenAddr        string        `mapstructure:"listen_addr" validate:"required,hostname_port"`
	Path              string        `mapstructure:"path" validate:"required,startswith=/"`
	PingInterval      time.Duration `mapstructure:"ping_interval" validate:"gt=0"`
	PingTimeout       time.Duration `mapstructure:"ping_timeout" validate:"gt=0"`
	MaxPayload        int           `mapstructure:"max_payload" validate:"gt=0"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins" validate:"min=1,dive,required"`
	AllowedMethods    []string      `mapstructure:"allowed_methods" validate:"min=1,dive,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS"`
	LogLevel          string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat         string        `mapstructure:"log_format" validate:"oneof=text json"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	MaxRoomNameLength int           `mapstructure:"max_room_name_length" validate:"gt=0"`
}

// Default returns the settings used when no source overrides them.
func Default() Config {
	return Config{
		ListenAddr:        ":3000",
		Path:              "/socket.io/",
		PingInterval:      25 * time.Second,
		PingTimeout:       20 * time.Second,
		MaxPayload:        1_000_000,
		AllowedOrigins:    []string{"*"},
		AllowedMethods:    []string{"GET", "POST"},
		LogLevel:          "info",
		LogFormat:         "text",
		ShutdownTimeout:   10 * time.Second,
		MaxRoomNameLength: 128,
	}
}

// Options selects the files Load reads besides the environment.
type Options struct {
	// ConfigFile is an optional YAML file. It must exist when set.
	ConfigFile string
	// EnvFile is loaded into the environment if it exists. Variables that are
	// already set win.
	EnvFile string
}

// SetDefaults registers Default() on v so that every key is known to viper,
// which AutomaticEnv needs for Unmarshal to see environment overrides.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyListenAddr, d.ListenAddr)
	v.SetDefault(KeyPath, d.Path)
	v.SetDefault(KeyPingInterval, d.PingInterval)
	v.SetDefault(KeyPingTimeout, d.PingTimeout)
	v.SetDefault(KeyMaxPayload, d.MaxPayload)
	v.SetDefault(KeyAllowedOrigins, d.AllowedOrigins)
	v.SetDefault(KeyAllowedMethods, d.AllowedMethods)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogFormat, d.LogFormat)
	v.SetDefault(KeyShutdownTimeout, d.ShutdownTimeout)
	v.SetDefault(KeyMaxRoomNameLength, d.MaxRoomNameLength)
}

// RegisterFlags defines the server flags on flags and binds them to v.
func RegisterFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	d := Default()
	flags.String("listen", d.ListenAddr, "address to listen on")
	flags.String("path", d.Path, "HTTP path of the Socket.IO endpoint")
	flags.Duration("ping-interval", d.PingInterval, "interval between server pings")
	flags.Duration("ping-timeout", d.PingTimeout, "time to wait for a pong before closing a session")
	flags.Int("max-payload", d.MaxPayload, "maximum inbound frame size in bytes")
	flags.StringSlice("allowed-origins", d.AllowedOrigins, "browser origins allowed to connect, * for any")
	flags.StringSlice("allowed-methods", d.AllowedMethods, "HTTP methods advertised to CORS preflight requests")
	flags.String("log-level", d.LogLevel, "log level: debug, info, warn or error")
	flags.String("log-format", d.LogFormat, "log format: text or json")
	flags.Duration("shutdown-timeout", d.ShutdownTimeout, "grace period for open connections on shutdown")
	flags.Int("max-room-name-length", d.MaxRoomNameLength, "longest accepted room name")

	bindings := map[string]string{
		KeyListenAddr:        "listen",
		KeyPath:              "path",
		KeyPingInterval:      "ping-interval",
		KeyPingTimeout:       "ping-timeout",
		KeyMaxPayload:        "max-payload",
		KeyAllowedOrigins:    "allowed-origins",
		KeyAllowedMethods:    "allowed-methods",
		KeyLogLevel:          "log-level",
		KeyLogFormat:         "log-format",
		KeyShutdownTimeout:   "shutdown-timeout",
		KeyMaxRoomNameLength: "max-room-name-length",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Load resolves the configuration from, by increasing precedence, defaults,
// the config file, the environment (including the env file) and flags bound
// to v.
func Load(v *viper.Viper, opts Options) (Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
		}
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", opts.ConfigFile, err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.AllowedMethods = normalizeMethods(cfg.AllowedMethods)
	if !strings.HasSuffix(cfg.Path, "/") {
		cfg.Path += "/"
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against its field rules.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func normalizeMethods(methods []string) []string {
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			out = append(out, m)
		}
	}
	return out
}
