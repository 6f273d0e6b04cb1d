// internal/security/permissions.go
package security

import (
	"fmt"
	"os"
)

// EnsurePrivateDir creates dir with mode 0700 when missing and then checks
// that an existing directory is not writable by group or others.
func EnsurePrivateDir(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return ValidateDirectoryPermissions(dir)
}

// ValidateDirectoryPermissions returns an error when the data directory is
// writable by group or others. The state database lives there.
func ValidateDirectoryPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking directory permissions: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	mode := info.Mode().Perm()
	if mode&0022 != 0 {
		return fmt.Errorf("directory %s is writable by group or others (mode %04o), expected 0700 or 0750", path, mode)
	}
	return nil
}

// ValidateFilePermissions returns an error when a config file is world-writable.
func ValidateFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking file permissions: %w", err)
	}

	mode := info.Mode().Perm()
	if mode&0002 != 0 {
		return fmt.Errorf("file %s is world-writable (mode %04o)", path, mode)
	}
	return nil
}
