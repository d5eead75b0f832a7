// Package state persists the host's storage-pool configuration and resolves
// which backend the appliance runs. The pool file is JSON written atomically;
// the backend comes from a key=value file with an environment override.
package state
