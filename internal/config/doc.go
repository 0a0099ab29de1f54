// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// A handful of deployment variables (PORT, POLYMARKET_WS_ENABLED, POLYMARKET_WS_URL,
// POLYMARKET_API_BASE) override the file after it is parsed.
package config
