// Package deps makes sure the programs a variant needs are installed.
//
// Every dependency is a [Capability]: a presence check plus an install
// action. [Ensure] checks, installs when absent and checks again, so a
// second run against a provisioned host installs nothing.
package deps
