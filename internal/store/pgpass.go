package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jackc/pgpassfile"

	"github.com/oonisim/ml-credit-risk/internal/config"
)

// ErrNoPassword is returned when no pgpass entry matches the connection
var ErrNoPassword = errors.New("no matching pgpass entry")

// DefaultPassFile returns $PGPASSFILE, or ~/.pgpass when it is unset
func DefaultPassFile() string {
	if path := os.Getenv("PGPASSFILE"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".pgpass")
}

// LookupPassword returns the password of the first entry in the pgpass file
// at path matching cfg's host, port, database and user. Each field of an
// entry may be "*"; blank lines and lines starting with "#" are skipped. An
// empty path uses DefaultPassFile.
func LookupPassword(path string, cfg config.PostgresConfig) (string, error) {
	if path == "" {
		path = DefaultPassFile()
	}

	pf, err := pgpassfile.ReadPassfile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read pgpass file: %w", err)
	}

	password := pf.FindPassword(cfg.Host, strconv.Itoa(cfg.Port), cfg.Database, cfg.User)
	if password == "" {
		return "", fmt.Errorf("%w for %s@%s:%d/%s", ErrNoPassword, cfg.User, cfg.Host, cfg.Port, cfg.Database)
	}
	return password, nil
}
