package database

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/veithly/PolyAlpha/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config.
// An explicit URL wins over the discrete fields.
func BuildConnString(cfg config.DBConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	if cfg.Password == "" {
		u.User = url.User(cfg.User)
	}
	return u.String()
}

// Redacted returns the connection target without credentials, for logging.
func Redacted(cfg config.DBConfig) string {
	if cfg.URL != "" {
		u, err := url.Parse(cfg.URL)
		if err != nil {
			return "postgres://<invalid>"
		}
		return fmt.Sprintf("postgres://%s%s", u.Host, u.Path)
	}
	return fmt.Sprintf("postgres://%s/%s", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)), cfg.Name)
}
