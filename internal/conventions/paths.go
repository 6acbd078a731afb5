package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default geotask data directory name (relative to home).
	DefaultDataDir = ".geotask"
	// DBFile is the SQLite database filename inside the data directory.
	DBFile = "geotask.db"
	// ConfigFile is the workflow configuration filename inside the data directory.
	ConfigFile = "config.yaml"
)

// DBPath returns the path of the database inside a data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// ConfigPath returns the path of the workflow configuration inside a data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFile)
}
