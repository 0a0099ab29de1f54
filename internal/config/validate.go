package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *ServerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	if err := validateURL("feed.url", c.Feed.URL, "ws", "wss"); err != nil {
		return err
	}
	if c.Feed.ReconnectDelay <= 0 {
		return errors.New("feed.reconnect_delay must be > 0")
	}
	if c.Feed.PingInterval <= 0 {
		return errors.New("feed.ping_interval must be > 0")
	}

	if err := validateURL("api.clob_url", c.API.CLOBURL, "http", "https"); err != nil {
		return err
	}
	if err := validateURL("api.gamma_url", c.API.GammaURL, "http", "https"); err != nil {
		return err
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}
	if c.API.RatePerSecond < 0 {
		return errors.New("api.rate_per_second must be >= 0")
	}

	if c.Stream.RingSize < 1 {
		return errors.New("stream.ring_size must be >= 1")
	}
	if c.Stream.PulseWindow < 1 {
		return errors.New("stream.pulse_window must be >= 1")
	}
	if c.Stream.PulseWindow > c.Stream.RingSize {
		return fmt.Errorf("stream.pulse_window (%d) cannot exceed ring_size (%d)", c.Stream.PulseWindow, c.Stream.RingSize)
	}
	if c.Stream.TickBuffer < 1 {
		return errors.New("stream.tick_buffer must be >= 1")
	}
	if c.Stream.RefreshInterval <= 0 {
		return errors.New("stream.refresh_interval must be > 0")
	}
	if c.Stream.HeartbeatInterval <= 0 {
		return errors.New("stream.heartbeat_interval must be > 0")
	}
	if c.Stream.DetailMaxPushes < 0 {
		return errors.New("stream.detail_max_pushes must be >= 0")
	}

	if c.Database.Enabled {
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
		if c.Writers.BatchSize < 1 {
			return errors.New("writers.batch_size must be >= 1")
		}
		if c.Writers.BufferSize < 1 {
			return errors.New("writers.buffer_size must be >= 1")
		}
	}

	if c.Cache.Enabled && c.Cache.Addr == "" {
		return errors.New("cache.addr is required when cache is enabled")
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.URL != "" {
		if _, err := url.Parse(db.URL); err != nil {
			return fmt.Errorf("%s.url is invalid: %w", prefix, err)
		}
	} else {
		if db.Host == "" {
			return fmt.Errorf("%s.host is required", prefix)
		}
		if db.Name == "" {
			return fmt.Errorf("%s.name is required", prefix)
		}
		if db.User == "" {
			return fmt.Errorf("%s.user is required", prefix)
		}
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is invalid: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s must use %s, got %q", field, strings.Join(schemes, " or "), raw)
}

// ParseLevel maps logging.level onto a slog level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("logging.level %q is invalid", level)
	}
	return l, nil
}
