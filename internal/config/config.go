package config

import "time"

// ServerConfig is the top-level configuration for the signal server.
type ServerConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	HTTP     HTTPConfig     `yaml:"http"`
	Feed     FeedConfig     `yaml:"feed"`
	API      APIConfig      `yaml:"api"`
	Stream   StreamConfig   `yaml:"stream"`
	Database DatabaseConfig `yaml:"database"`
	Writers  WritersConfig  `yaml:"writers"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InstanceConfig identifies this server instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// HTTPConfig configures the HTTP listener.
type HTTPConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// FeedConfig configures the upstream realtime trade feed.
type FeedConfig struct {
	URL              string        `yaml:"url"`
	ReconnectDelay   time.Duration `yaml:"reconnect_delay"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	PingTimeout      time.Duration `yaml:"ping_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	BufferSize       int           `yaml:"buffer_size"`
}

// APIConfig configures the Polymarket REST endpoints.
type APIConfig struct {
	CLOBURL       string        `yaml:"clob_url"`
	GammaURL      string        `yaml:"gamma_url"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
}

// StreamConfig configures per-client streaming sessions.
type StreamConfig struct {
	// Enabled gates the realtime stream endpoint.
	Enabled           bool          `yaml:"enabled"`
	RingSize          int           `yaml:"ring_size"`
	PulseWindow       int           `yaml:"pulse_window"`
	TickBuffer        int           `yaml:"tick_buffer"`
	RefreshInterval   time.Duration `yaml:"refresh_interval"`
	RefreshTimeout    time.Duration `yaml:"refresh_timeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	DetailInterval    time.Duration `yaml:"detail_interval"`
	DetailMaxPushes   int           `yaml:"detail_max_pushes"`
}

// DatabaseConfig holds the optional session audit store.
type DatabaseConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds connection parameters for a single database.
type DBConfig struct {
	URL            string        `yaml:"url"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Name           string        `yaml:"name"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	SSLMode        string        `yaml:"ssl_mode"`
	MaxConns       int           `yaml:"max_conns"`
	MinConns       int           `yaml:"min_conns"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// WritersConfig holds batch writer settings.
type WritersConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// CacheConfig holds the optional Redis orderbook cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
