// Package config loads client settings from defaults, an optional config
// file, LIVETRACE_* environment variables, a .env file and bound flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "LIVETRACE"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	PageURL      string        `mapstructure:"page_url" validate:"required,url"`
	IdentityFile string        `mapstructure:"identity_file" validate:"required"`
	RetryDelay   time.Duration `mapstructure:"retry_delay" validate:"gt=0"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ReadLimit    int64         `mapstructure:"read_limit" validate:"gt=0"`
	SendBuffer   int           `mapstructure:"send_buffer" validate:"gt=0"`
	ViewAddr     string        `mapstructure:"view_addr"`
	NatsURL      string        `mapstructure:"nats_url"`
	NatsSubject  string        `mapstructure:"nats_subject" validate:"required"`
	LogLevel     string        `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	Sim          SimConfig     `mapstructure:"sim"`
}

type SimConfig struct {
	Lat      float64       `mapstructure:"lat" validate:"min=-90,max=90"`
	Lng      float64       `mapstructure:"lng" validate:"min=-180,max=180"`
	Spread   float64       `mapstructure:"spread" validate:"min=0"`
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
	Seed     int64         `mapstructure:"seed"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("page_url", "http://localhost:8080")
	v.SetDefault("identity_file", "livetrace-identity.json")
	v.SetDefault("retry_delay", time.Second)
	v.SetDefault("dial_timeout", 5*time.Second)
	v.SetDefault("write_timeout", 5*time.Second)
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("send_buffer", 64)
	v.SetDefault("view_addr", "localhost:3334")
	v.SetDefault("nats_url", "")
	v.SetDefault("nats_subject", "livetrace.status")
	v.SetDefault("log_level", "info")
	v.SetDefault("sim.lat", 35.6892)
	v.SetDefault("sim.lng", 51.3890)
	v.SetDefault("sim.spread", 0.02)
	v.SetDefault("sim.interval", time.Second)
	v.SetDefault("sim.seed", 0)
}

// Load reads the configuration into a Config. The dotenv files (".env" when
// none are given) are optional and never override variables already set.
func Load(v *viper.Viper, file string, dotenv ...string) (*Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, f := range dotenv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.New().Struct(c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return c, nil
}
