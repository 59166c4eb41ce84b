package sapb1

import (
	"fmt"
	"strings"
	"time"
)

// Config holds SAP Business One Service Layer connection settings
type Config struct {
	// BaseURL is the Service Layer root, e.g. https://b1host:50000/b1s/v1
	BaseURL   string
	Username  string
	Password  string
	CompanyDB string

	RequestTimeout time.Duration
	// SessionTTL bounds how long a login session is reused before a fresh
	// login. The Service Layer expires sessions after 30 minutes of
	// inactivity, so this should stay below that.
	SessionTTL time.Duration
	// InsecureSkipVerify disables TLS verification. On-premise B1 installs
	// commonly run with self-signed certificates.
	InsecureSkipVerify bool
}

// Validate checks that the configuration is complete
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("sapb1: base URL is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("sapb1: base URL must start with http:// or https://")
	}
	if c.Username == "" {
		return fmt.Errorf("sapb1: username is required")
	}
	if c.Password == "" {
		return fmt.Errorf("sapb1: password is required")
	}
	if c.CompanyDB == "" {
		return fmt.Errorf("sapb1: company database is required")
	}
	return nil
}

func (c *Config) requestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return c.RequestTimeout
}

func (c *Config) sessionTTL() time.Duration {
	if c.SessionTTL <= 0 {
		return 25 * time.Minute
	}
	return c.SessionTTL
}
