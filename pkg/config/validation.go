package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/dittobox/pkg/registry"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks struct tags and the cross-field rules tags cannot express.
// Field errors are reported as "<namespace>: failed '<tag>' validation".
func Validate(cfg *Config) error {
	if err := getValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed '%s' validation", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	switch cfg.Registry.Type {
	case registry.TypeBadger, registry.TypeSQLite:
		if cfg.Registry.Path == "" {
			return fmt.Errorf("Config.Registry.Path: %s registry requires a path", cfg.Registry.Type)
		}
	case registry.TypePostgres:
		pg := cfg.Registry.Postgres
		if pg.Host == "" || pg.Database == "" || pg.User == "" {
			return errors.New("Config.Registry.Postgres: host, database and user are required")
		}
	}
	if cfg.API.Enabled && cfg.Server.Port != 0 && cfg.API.Port == cfg.Server.Port &&
		cfg.API.BindAddress == cfg.Server.BindAddress {
		return fmt.Errorf("Config.API.Port: %d is already used by the BOX listener", cfg.API.Port)
	}
	return nil
}
