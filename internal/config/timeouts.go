package config

import (
	"os"
	"time"
)

// Timeouts bounds every external call of a run.
type Timeouts struct {
	Download time.Duration // Binary and install-script downloads
	Command  time.Duration // Single external command (systemctl, docker, wg, ufw)
	Install  time.Duration // Long-running installers (get.docker.com, apt-get, docker pull)
	IPLookup time.Duration // Each public IP provider
	Health   time.Duration // Waiting for the service to become healthy
	Cloud    time.Duration // Hetzner Cloud and S3 API calls
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - VPSGATE_TIMEOUT_DOWNLOAD (default: 5m)
//   - VPSGATE_TIMEOUT_COMMAND (default: 2m)
//   - VPSGATE_TIMEOUT_INSTALL (default: 15m)
//   - VPSGATE_TIMEOUT_IP_LOOKUP (default: 5s)
//   - VPSGATE_TIMEOUT_HEALTH (default: 60s)
//   - VPSGATE_TIMEOUT_CLOUD (default: 2m)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Download: parseDuration("VPSGATE_TIMEOUT_DOWNLOAD", 5*time.Minute),
		Command:  parseDuration("VPSGATE_TIMEOUT_COMMAND", 2*time.Minute),
		Install:  parseDuration("VPSGATE_TIMEOUT_INSTALL", 15*time.Minute),
		IPLookup: parseDuration("VPSGATE_TIMEOUT_IP_LOOKUP", 5*time.Second),
		Health:   parseDuration("VPSGATE_TIMEOUT_HEALTH", 60*time.Second),
		Cloud:    parseDuration("VPSGATE_TIMEOUT_CLOUD", 2*time.Minute),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set, invalid or not positive, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}

	return d
}
