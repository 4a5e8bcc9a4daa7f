// Package provisioning turns a VPS into the public entry point of a
// Kubernetes cluster.
//
// A run is a fixed sequence of phases sharing one [Context]:
//
//   - preflight: privileges, configuration and the install-directory lock
//   - dependencies: frp binaries or Docker, Compose and images
//   - state: the .env of a previous run and the update confirmation
//   - parameters: domain, token and public IP from flags, env, prompts or detection
//   - keys: WireGuard key pairs and the frp dashboard password
//   - render: configuration files, backups of replaced files
//   - firewall: ufw rules and the optional Hetzner Cloud firewall
//   - service: systemd unit or Compose project start and health check
//   - report: terminal summary, connection-info.txt and the peer Secret
//
// Each phase moves the run through the [Stage] sequence Fresh,
// DependenciesReady, ConfigReady, ServiceRunning, Reported. The pipeline
// refuses to skip a stage. Failures are [Error] values classified by
// [ErrorKind]; [ErrDeclined] ends a run early without failing it.
package provisioning
