// Package state holds the persisted provisioning state of an install
// directory and the file primitives every writer in vpsgate goes through.
//
// [ProvisioningState] is the single value threaded through a run. It is
// persisted as a dotenv file (.env) that docker compose can read as well.
// Writes are atomic (temp file + rename) and a run holds an exclusive
// lock on the install directory for its whole duration.
package state
