// Package service starts, restarts and health-checks the gateway service.
//
// The frp variant runs under systemd, the WireGuard variant under Docker
// Compose. Both are driven through the [Manager] interface and the
// command runner, so the decision logic in [Applier] is the same for both.
package service
