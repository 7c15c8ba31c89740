package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

const envPrefix = "CARDDAV_"

type Config struct {
	// URL is the address book collection, also used as the discovery root.
	URL      string `env:"URL,expand"`
	Username string `env:"USERNAME,expand"`
	Password string `env:"PASSWORD,expand"`

	WellKnown     bool          `env:"WELL_KNOWN" envDefault:"false"`
	NoneETagQuirk bool          `env:"NONE_ETAG_QUIRK" envDefault:"true"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"30s"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Parse reads the configuration from the process environment.
func Parse() (*Config, error) {
	return parse(env.Options{Prefix: envPrefix})
}

// ParseEnvironment reads the configuration from environ instead of the
// process environment.
func ParseEnvironment(environ map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: envPrefix, Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	conf, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if conf.Timeout < 0 {
		return nil, errors.Errorf("invalid timeout %v", conf.Timeout)
	}

	return &conf, nil
}
