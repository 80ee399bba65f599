package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Validator interface {
	Validate(cfg *Config) error
}

type structValidator struct {
	validate *validator.Validate
}

func NewValidator() Validator {
	return &structValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *structValidator) Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if err := v.validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Database.Driver == "postgres" && cfg.Database.Host == "" {
		return errors.New("database.host is required for the postgres driver")
	}

	if !cfg.Qpay.TestMode && len(cfg.Qpay.AllowlistHosts) == 0 {
		return errors.New("qpay.allowlist_hosts must not be empty outside test mode")
	}

	return nil
}
