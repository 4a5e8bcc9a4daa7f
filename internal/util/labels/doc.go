// Package labels provides consistent labeling for Hetzner Cloud resources.
//
// Labels use the vpsgate.io domain prefix and are built with a small
// builder carrying the variant, the domain and the managing tool.
package labels
