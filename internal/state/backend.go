package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hashicorp/go-envparse"

	"platter/internal/disk"
)

// BackendEnvVar overrides the backend-selection file when set.
const BackendEnvVar = "PLATTER_BACKEND"

const backendKey = "backend"

// LoadBackend resolves the storage backend for this host. Precedence:
// PLATTER_BACKEND environment variable, then the backend key in the
// key=value file at path, then the parity-pool default.
func LoadBackend(path string) (disk.Backend, error) {
	if value := os.Getenv(BackendEnvVar); value != "" {
		backend, err := disk.ParseBackend(value)
		if err != nil {
			return "", fmt.Errorf("%s: %w", BackendEnvVar, err)
		}
		return backend, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return disk.BackendParityPool, nil
		}
		return "", fmt.Errorf("open backend file: %w", err)
	}
	defer file.Close()

	values, err := envparse.Parse(file)
	if err != nil {
		return "", fmt.Errorf("parse backend file %s: %w", path, err)
	}

	backend, err := disk.ParseBackend(values[backendKey])
	if err != nil {
		return "", fmt.Errorf("backend file %s: %w", path, err)
	}
	return backend, nil
}
