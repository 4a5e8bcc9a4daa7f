// Package hcloud wraps the Hetzner Cloud API for the parts vpsgate uses:
// keeping a cloud firewall in sync with the gateway ports and attaching it
// to the VPS.
//
// Resources are handled with get-or-create semantics through
// [EnsureOperation], so repeated runs converge on the same state.
// Calls are bounded by the cloud timeout (VPSGATE_TIMEOUT_CLOUD).
package hcloud
