// Package config defines the provisioning configuration for vpsgate.
//
// The [Config] struct holds every tunable of a provisioning run: the
// variant (frp or WireGuard+Caddy), the install directory, port layout,
// container images, public IP providers, firewall and backup settings.
// Values come from built-in defaults, an optional YAML file and finally
// command-line flags applied by the handlers. Timeouts for external calls
// are loaded separately from the environment via [LoadTimeouts].
package config
