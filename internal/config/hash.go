package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// ChecksumFile is the manifest written next to a locked config file.
const ChecksumFile = ".checksums"

// ChecksumManifest records the expected BLAKE3 hash of each locked file.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// LockReport captures the outcome of a config lock.
type LockReport struct {
	ConfigPath   string
	ChecksumPath string
	Hash         string
	Written      bool
}

// ComputeBlake3Hash computes the BLAKE3 hash of a file.
func ComputeBlake3Hash(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// VerifyFileHash verifies a file against an expected BLAKE3 hash.
func VerifyFileHash(filePath, expectedHash string) error {
	actualHash, err := ComputeBlake3Hash(filePath)
	if err != nil {
		return fmt.Errorf("failed to compute hash: %w", err)
	}

	if actualHash != expectedHash {
		return fmt.Errorf("hash mismatch for %s: expected %s, got %s",
			filepath.Base(filePath), expectedHash, actualHash)
	}

	return nil
}

// Lock hashes configPath and records it in the .checksums manifest in the
// same directory, keeping entries for other files. With dryRun the hash is
// computed and reported but nothing is written.
func Lock(configPath string, dryRun bool) (*LockReport, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}
	dir := filepath.Dir(absPath)

	hash, err := ComputeBlake3Hash(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", filepath.Base(absPath), err)
	}

	report := &LockReport{
		ConfigPath:   absPath,
		ChecksumPath: filepath.Join(dir, ChecksumFile),
		Hash:         hash,
	}
	if dryRun {
		return report, nil
	}

	manifest, err := LoadChecksums(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		manifest = &ChecksumManifest{Version: 1, Hashes: make(map[string]string)}
	}
	manifest.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	manifest.Hashes[filepath.Base(absPath)] = hash

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checksums: %w", err)
	}

	// Restrictive permissions: the manifest is the trust anchor for the config.
	if err := os.WriteFile(report.ChecksumPath, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write checksums: %w", err)
	}
	report.Written = true

	return report, nil
}

// LoadChecksums reads the .checksums file from a config directory. A missing
// manifest returns an error satisfying os.IsNotExist.
func LoadChecksums(configDir string) (*ChecksumManifest, error) {
	checksumPath := filepath.Join(configDir, ChecksumFile)

	data, err := os.ReadFile(checksumPath)
	if err != nil {
		return nil, err
	}

	var manifest ChecksumManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse checksums: %w", err)
	}

	if manifest.Version != 1 {
		return nil, fmt.Errorf("unsupported checksums version: %d", manifest.Version)
	}
	if manifest.Hashes == nil {
		manifest.Hashes = make(map[string]string)
	}

	return &manifest, nil
}

// verifyConfigHash checks path against its directory's manifest. Unlocked
// directories (no manifest) pass.
func verifyConfigHash(path string) error {
	dir := filepath.Dir(path)
	manifest, err := LoadChecksums(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	basename := filepath.Base(path)
	expectedHash, ok := manifest.Hashes[basename]
	if !ok {
		return fmt.Errorf("config file %s has no hash in %s\n"+
			"Run: oneguard-gw config lock --config %s", basename, filepath.Join(dir, ChecksumFile), path)
	}

	if err := VerifyFileHash(path, expectedHash); err != nil {
		return fmt.Errorf("config verification failed for %s: %w\n"+
			"This indicates tampering or unauthorized modification.\n"+
			"If you edited this file intentionally, run: oneguard-gw config lock --config %s", path, err, path)
	}
	return nil
}
