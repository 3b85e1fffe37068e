package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"

	"github.com/charliek/respawn/internal/domain"
)

// configCandidates are searched in order by FindConfigFile
var configCandidates = []string{
	"respawn.yaml",
	"respawn.yml",
	".respawn.yaml",
	".respawn.yml",
}

// LoadEnvFile reads a .env file and returns the variables as a map
func LoadEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("env file not found: %s", path)
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}

	return env, nil
}

// MergeEnv merges multiple environment maps in order, with later maps taking precedence
func MergeEnv(envMaps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, env := range envMaps {
		for k, v := range env {
			result[k] = v
		}
	}
	return result
}

// LoadProcessEnv loads the child's extra environment.
// Inline variables override those from the env file.
func LoadProcessEnv(envFile string, inline map[string]string, baseDir string) (map[string]string, error) {
	var fileEnv map[string]string
	if envFile != "" {
		var err error
		fileEnv, err = LoadEnvFile(resolvePath(envFile, baseDir))
		if err != nil {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	}

	return MergeEnv(fileEnv, inline), nil
}

// resolvePath resolves a potentially relative path against a base directory
func resolvePath(path, baseDir string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// FindConfigFile searches the working directory for a config file
func FindConfigFile() (string, error) {
	for _, name := range configCandidates {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}

	return "", fmt.Errorf("%w (tried: %v)", domain.ErrConfigNotFound, configCandidates)
}

// CheckFilePermissions rejects world-writable files on Unix-like systems
func CheckFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking file permissions: %w", err)
	}

	if info.Mode().Perm()&0002 != 0 {
		return fmt.Errorf("config file %s has insecure permissions: world-writable files can be modified by any user. Please run: chmod o-w %s", path, path)
	}

	return nil
}
