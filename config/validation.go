package config

import (
	"fmt"
	"strings"
)

// ValidateConfig checks that the configuration is usable for the current
// environment. Development and test get lax defaults so the service can come
// up against a local database; production requires every sensitive value.
func ValidateConfig(cfg *Config) error {
	var errors []string

	if cfg.ServerPort == "" {
		errors = append(errors, "server port is not set")
	}
	if cfg.DBHost == "" {
		errors = append(errors, "database host is not set")
	}
	if cfg.DBName == "" {
		errors = append(errors, "database name is not set")
	}
	if cfg.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is not set")
	}

	if IsProduction() {
		if cfg.DBPassword == "" {
			errors = append(errors, "db_password secret is required in production")
		}
		if cfg.DBSSLMode == "disable" {
			errors = append(errors, "DB_SSL_MODE must not be disable in production")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}
