package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultInstanceID        = "polyalpha"
	DefaultHTTPPort          = 8080
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultFeedURL           = "wss://ws-live-data.polymarket.com"
	DefaultReconnectDelay    = 2 * time.Second
	DefaultPingInterval      = 15 * time.Second
	DefaultPingTimeout       = 90 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultFeedBufferSize    = 1000
	DefaultCLOBURL           = "https://clob.polymarket.com"
	DefaultGammaURL          = "https://gamma-api.polymarket.com"
	DefaultAPITimeout        = 6 * time.Second
	DefaultMaxRetries        = 1
	DefaultRatePerSecond     = 5
	DefaultBurst             = 10
	DefaultRingSize          = 100
	DefaultPulseWindow       = 50
	DefaultTickBuffer        = 256
	DefaultRefreshInterval   = 20 * time.Second
	DefaultRefreshTimeout    = 10 * time.Second
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultDetailInterval    = 15 * time.Second
	DefaultDetailMaxPushes   = 10
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 0
	DefaultConnectTimeout    = 5 * time.Second
	DefaultBatchSize         = 100
	DefaultFlushInterval     = 5 * time.Second
	DefaultBufferSize        = 1024
	DefaultCacheAddr         = "localhost:6379"
	DefaultCacheTTL          = 10 * time.Second
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

func (c *ServerConfig) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	// HTTP defaults
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}
	if c.HTTP.ReadHeaderTimeout == 0 {
		c.HTTP.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Feed defaults
	if c.Feed.URL == "" {
		c.Feed.URL = DefaultFeedURL
	}
	if c.Feed.ReconnectDelay == 0 {
		c.Feed.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = DefaultPingInterval
	}
	if c.Feed.PingTimeout == 0 {
		c.Feed.PingTimeout = DefaultPingTimeout
	}
	if c.Feed.HandshakeTimeout == 0 {
		c.Feed.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = DefaultFeedBufferSize
	}

	// API defaults
	if c.API.CLOBURL == "" {
		c.API.CLOBURL = DefaultCLOBURL
	}
	if c.API.GammaURL == "" {
		c.API.GammaURL = DefaultGammaURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RatePerSecond == 0 {
		c.API.RatePerSecond = DefaultRatePerSecond
	}
	if c.API.Burst == 0 {
		c.API.Burst = DefaultBurst
	}

	// Stream defaults
	if c.Stream.RingSize == 0 {
		c.Stream.RingSize = DefaultRingSize
	}
	if c.Stream.PulseWindow == 0 {
		c.Stream.PulseWindow = DefaultPulseWindow
	}
	if c.Stream.TickBuffer == 0 {
		c.Stream.TickBuffer = DefaultTickBuffer
	}
	if c.Stream.RefreshInterval == 0 {
		c.Stream.RefreshInterval = DefaultRefreshInterval
	}
	if c.Stream.RefreshTimeout == 0 {
		c.Stream.RefreshTimeout = DefaultRefreshTimeout
	}
	if c.Stream.HeartbeatInterval == 0 {
		c.Stream.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Stream.DetailInterval == 0 {
		c.Stream.DetailInterval = DefaultDetailInterval
	}
	if c.Stream.DetailMaxPushes == 0 {
		c.Stream.DetailMaxPushes = DefaultDetailMaxPushes
	}

	// Database defaults
	applyDBDefaults(&c.Database.Postgres)

	// Writers defaults
	if c.Writers.BatchSize == 0 {
		c.Writers.BatchSize = DefaultBatchSize
	}
	if c.Writers.FlushInterval == 0 {
		c.Writers.FlushInterval = DefaultFlushInterval
	}
	if c.Writers.BufferSize == 0 {
		c.Writers.BufferSize = DefaultBufferSize
	}

	// Cache defaults
	if c.Cache.Addr == "" {
		c.Cache.Addr = DefaultCacheAddr
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
	if db.ConnectTimeout == 0 {
		db.ConnectTimeout = DefaultConnectTimeout
	}
}
