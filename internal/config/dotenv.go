package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DotEnvFile is read from the config directory and the working directory.
const DotEnvFile = ".env"

// LoadDotEnv exports variables from .env files next to the config file and
// in the working directory. Variables already set in the environment win,
// so the process environment can always override a file. It returns the
// files that were read.
//
// Load already does this before interpolating ${VAR} references; calling it
// again is harmless and reports which files exist.
func LoadDotEnv(cfg *Config) ([]string, error) {
	sourcePath := ""
	if cfg != nil {
		sourcePath = cfg.SourcePath
	}
	return loadDotEnvFiles(dotEnvCandidates(sourcePath))
}

func dotEnvCandidates(sourcePath string) []string {
	var candidates []string
	if sourcePath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(sourcePath), DotEnvFile))
	}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, DotEnvFile))
	}
	return candidates
}

func loadDotEnvFiles(candidates []string) ([]string, error) {
	seen := make(map[string]bool)
	var loaded []string
	for _, path := range candidates {
		if seen[path] {
			continue
		}
		seen[path] = true
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("failed to load %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}
