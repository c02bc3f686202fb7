package internal

import (
	"os"
	"path/filepath"
)

// DefaultDBPath returns the artifact store location under the user's home
// directory
func DefaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".speechaxis", "data", "speechaxis.db"), nil
}
