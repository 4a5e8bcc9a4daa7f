// Package params resolves the operator supplied parameters of a run.
//
// Values come from an ordered list of sources. Earlier sources win: a
// source only fills fields that are still empty. The default order is
// command-line flags and environment, the .env of a previous run,
// interactive prompts and finally public IP detection.
package params
