package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/localix/preloadd/pkg/source"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration after defaults have been applied.
//
// Struct tags cover value ranges; the checks that depend on the backend type
// or span several sections are done here.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	if err := validateResources(cfg); err != nil {
		return err
	}

	if cfg.API.JWT.Secret != "" && len(cfg.API.JWT.Secret) < 32 {
		return errors.New("api.jwt.secret must be at least 32 characters")
	}

	return nil
}

func validateResources(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Resources))
	for i, r := range cfg.Resources {
		if seen[r.Key] {
			return fmt.Errorf("resources[%d]: duplicate key %q", i, r.Key)
		}
		seen[r.Key] = true

		switch cfg.Backend.Type {
		case source.TypeHTTP:
			if r.Path == "" {
				return fmt.Errorf("resources[%d] (%s): path is required for the http backend", i, r.Key)
			}
		case source.TypeSQL:
			if r.Query == "" {
				return fmt.Errorf("resources[%d] (%s): query is required for the sql backend", i, r.Key)
			}
		case source.TypeS3:
			if r.ObjectKey == "" {
				return fmt.Errorf("resources[%d] (%s): object_key is required for the s3 backend", i, r.Key)
			}
		}
	}

	for key := range cfg.Preload.Priorities {
		if !seen[key] {
			return fmt.Errorf("preload.priorities: unknown resource %q", key)
		}
	}

	switch cfg.Backend.Type {
	case source.TypeHTTP:
		if cfg.Backend.HTTP.BaseURL == "" {
			return errors.New("backend.http.base_url is required")
		}
	case source.TypeSQL:
		sqlCfg := cfg.Backend.SQL.toSource(nil)
		if err := sqlCfg.Validate(); err != nil {
			return fmt.Errorf("backend.sql: %w", err)
		}
	case source.TypeS3:
		if cfg.Backend.S3.Bucket == "" {
			return errors.New("backend.s3.bucket is required")
		}
	}

	return nil
}

// formatValidationErrors turns validator errors into one readable error that
// names each failing field and rule, e.g. "Logging.Level: oneof".
func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s=%s' (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s'", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
