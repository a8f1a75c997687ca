package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// GetPath retrieves a value from the configuration using a dot-notation path
// such as "webhook.signature_header". An empty path returns the whole tree.
func (c *Config) GetPath(path string) (any, error) {
	m, err := toMap(c)
	if err != nil {
		return nil, err
	}
	return getValue(m, path)
}

func toMap(c *Config) (map[string]any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return m, nil
}

func getValue(m map[string]any, path string) (any, error) {
	parts := strings.Split(path, ".")
	var current any = m

	for _, part := range parts {
		if part == "" {
			continue
		}

		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path %q breaks at %q (not a map)", path, part)
		}

		val, exists := m[part]
		if !exists {
			return nil, fmt.Errorf("path %q: key %q not found", path, part)
		}
		current = val
	}

	return current, nil
}

func findNode(node *yaml.Node, path string, create bool) (*yaml.Node, error) {
	parts := strings.Split(path, ".")
	current := node

	for _, part := range parts {
		if current.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%q is not a mapping", part)
		}

		found := false
		for i := 0; i < len(current.Content); i += 2 {
			if current.Content[i].Value == part {
				current = current.Content[i+1]
				found = true
				break
			}
		}
		if found {
			continue
		}
		if !create {
			return nil, fmt.Errorf("key %q not found", part)
		}

		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: part}
		// Intermediate keys are mappings; the leaf is overwritten by the caller.
		valueNode := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		current.Content = append(current.Content, keyNode, valueNode)
		current = valueNode
	}

	return current, nil
}

// SetPath changes one scalar in the config file this Config was loaded from.
// The edited document must still load and validate, and path must name a
// known setting. With persist the file is rewritten (comments and ordering
// kept) and c is replaced by the new configuration; without it nothing
// changes.
func (c *Config) SetPath(path, value string, persist bool) error {
	if c.SourcePath == "" {
		return fmt.Errorf("no config file to modify (running on built-in defaults)")
	}
	if strings.Trim(path, ".") == "" {
		return fmt.Errorf("path is required")
	}

	original, err := os.ReadFile(c.SourcePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.SourcePath, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(original, &root); err != nil {
		return fmt.Errorf("failed to parse %s: %w", c.SourcePath, err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		root = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}

	target, err := findNode(root.Content[0], path, true)
	if err != nil {
		return fmt.Errorf("failed to navigate/create path %q: %w", path, err)
	}
	target.Kind = yaml.ScalarNode
	target.Value = value
	target.Tag = guessTag(value)
	target.Content = nil

	candidate, err := yaml.Marshal(&root)
	if err != nil {
		return err
	}

	next := Defaults()
	if err := yaml.Unmarshal([]byte(interpolateEnv(string(candidate))), next); err != nil {
		return fmt.Errorf("value rejected for %q: %w", path, err)
	}
	if _, err := next.GetPath(path); err != nil {
		return fmt.Errorf("unknown setting %q", path)
	}
	if err := validate(next); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if !persist {
		return nil
	}

	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(c.SourcePath); statErr == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(c.SourcePath, candidate, mode); err != nil {
		return fmt.Errorf("failed to persist config change: %w", err)
	}

	next.SourcePath = c.SourcePath
	*c = *next
	return nil
}

// Locked reports whether the config file is recorded in a .checksums
// manifest, in which case edits need a fresh config lock.
func (c *Config) Locked() bool {
	if c.SourcePath == "" {
		return false
	}
	manifest, err := LoadChecksums(filepath.Dir(c.SourcePath))
	if err != nil {
		return false
	}
	_, ok := manifest.Hashes[filepath.Base(c.SourcePath)]
	return ok
}

// guessTag types booleans; every other setting is a string on the Go side
// (durations and sizes are parsed from text).
func guessTag(v string) string {
	if v == "true" || v == "false" {
		return "!!bool"
	}
	return "!!str"
}
