// Package report tells the operator what a run produced.
//
// It prints a terminal summary, persists connection-info.txt (KEY=VALUE
// lines, readable by shell scripts and by `vpsgate status`) and emits a
// Kubernetes Secret manifest carrying the cluster-side configuration.
package report
