// Package config holds the process-wide settings read once at startup.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// Config is immutable after Load.
type Config struct {
	Addr string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8431"`

	// JWTSecret signs session tokens. Rotation requires a restart.
	JWTSecret   string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL    time.Duration `env:"JWT_TTL" envDefault:"2h"`
	TokenIssuer string        `env:"JWT_ISSUER" envDefault:"bookshelf"`

	BcryptCost       int  `env:"BCRYPT_COST" envDefault:"10"`
	UnifyLoginErrors bool `env:"AUTH_UNIFY_LOGIN_ERRORS" envDefault:"false"`

	SnowflakeNode int64 `env:"SNOWFLAKE_NODE" envDefault:"1"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cfg.BcryptCost)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("JWT_TTL must be positive, got %s", cfg.TokenTTL)
	}
	return cfg, nil
}
