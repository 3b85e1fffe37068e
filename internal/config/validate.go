package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/charliek/respawn/internal/domain"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors, reporting all of them at once
func Validate(config *Config) error {
	var errs []string

	if strings.TrimSpace(config.Target) == "" {
		errs = append(errs, "target: a target executable is required")
	}

	if d, err := config.RestartDelayDuration(); err != nil {
		errs = append(errs, err.Error())
	} else if d < 0 {
		errs = append(errs, "restart_delay: must be non-negative")
	}

	if d, err := config.ShutdownTimeoutDuration(); err != nil {
		errs = append(errs, err.Error())
	} else if d <= 0 {
		errs = append(errs, "shutdown_timeout: must be positive")
	}

	if config.API.Addr != "" {
		if err := validateAddr(config.API.Addr); err != nil {
			errs = append(errs, err.Error())
		}
	}

	for key := range config.Env {
		if err := ValidateEnvKey(key); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

func validateAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return &ValidationError{Field: "api.addr", Message: fmt.Sprintf("invalid address %q", addr)}
	}
	if port == "" {
		return &ValidationError{Field: "api.addr", Message: "port is required"}
	}
	return nil
}

// ValidateEnvKey checks that an environment variable name is usable
func ValidateEnvKey(key string) error {
	if key == "" {
		return &ValidationError{Field: "env", Message: "variable name cannot be empty"}
	}
	if strings.ContainsAny(key, "= \t\n") {
		return &ValidationError{Field: "env." + key, Message: "variable name cannot contain '=' or whitespace"}
	}
	return nil
}

// IsValidationError reports whether err came from configuration validation
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, domain.ErrInvalidConfig)
}
