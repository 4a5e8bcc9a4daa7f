// Package dns sends single DNS queries to a chosen nameserver.
//
// It backs the DNS based public IP providers and the post-install probe
// that checks whether the configured domain points at the VPS.
package dns
