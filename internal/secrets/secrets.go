// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of
// plain-text files. Each file in the directory represents one secret: the
// filename is the key name and the file contents (trimmed) are the value.
//
// Supported key files: openai-api-key, ncbi-api-key, ncbi-email.
package secrets

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Key file names.
const (
	OpenAIAPIKey = "openai-api-key"
	NCBIAPIKey   = "ncbi-api-key"
	NCBIEmail    = "ncbi-email"
)

// warnings receives non-fatal problems found while loading.
var warnings io.Writer = os.Stderr

// Secrets maps key file names to their values.
type Secrets map[string]string

// Get returns the secret stored under key, or else the first non-empty
// environment variable among envs.
func (s Secrets) Get(key string, envs ...string) string {
	if v := s[key]; v != "" {
		return v
	}
	for _, name := range envs {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// Keys returns the loaded key names in sorted order.
func (s Secrets) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load reads every regular file in dir. A missing directory yields empty
// Secrets. Dotfiles, subdirectories, and empty files are ignored. A file
// that cannot be read, or that other users can read, produces a warning;
// the unreadable one is skipped.
func Load(dir string) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return Secrets{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(Secrets)
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}

		if info, err := entry.Info(); err == nil && info.Mode().Perm()&0o077 != 0 {
			fmt.Fprintf(warnings, "warning: secret %s is readable by other users (mode %04o)\n", name, info.Mode().Perm())
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(warnings, "warning: could not read secret %s: %v\n", name, err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}
	return out, nil
}
