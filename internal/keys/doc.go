// Package keys creates and persists the secret material of an installation:
// the WireGuard key pairs and the frp dashboard password.
//
// Key material is generated once. [EnsureKeyPair] and [EnsureSecret] reuse
// whatever already exists on disk byte for byte, because regenerating a
// server key silently would invalidate every peer configured with the old
// public key.
package keys
