package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for _, err := range e {
		fmt.Fprintf(&sb, "  %s: %s\n", err.Field, err.Message)
	}
	return sb.String()
}

// Validate checks field values of cfg.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if cfg.GitLab.Host != "" {
		u, err := url.Parse(cfg.GitLab.Host)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "gitlab.host",
				Message: "must be an http(s) URL such as https://gitlab.com",
			})
		}
	}

	switch cfg.Registry.Backend {
	case "", BackendGitLab:
	case BackendS3:
		if cfg.Registry.S3.Bucket == "" {
			errs = append(errs, ValidationError{
				Field:   "registry.s3.bucket",
				Message: "is required when registry.backend is s3",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "registry.backend",
			Message: fmt.Sprintf("unknown backend %q (valid: gitlab, s3)", cfg.Registry.Backend),
		})
	}

	switch cfg.Engine {
	case "", EnginePodman, EngineDocker:
	default:
		errs = append(errs, ValidationError{
			Field:   "engine",
			Message: fmt.Sprintf("unknown engine %q (valid: podman, docker)", cfg.Engine),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateFile strictly decodes the file at path, rejecting unknown keys,
// then validates the values.
func ValidateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return ValidationErrors{{Field: "file", Message: err.Error()}}
	}

	return Validate(&cfg)
}
