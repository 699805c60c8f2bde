// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files.
// Each file holds one secret: the filename is the key name and the trimmed
// file contents are the value.
//
// Recognized key files: openai-api-key, azure-openai-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-ranker/pkg/types"
)

// DefaultDir is the secrets directory read when none is configured.
const DefaultDir = ".secrets"

// Key file names.
const (
	KeyOpenAI      = "openai-api-key"
	KeyAzureOpenAI = "azure-openai-api-key"
)

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error. Unreadable files are
// logged at warn and skipped.
func Load(dir string, log zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// KeyFor returns the secret file name holding the API key of provider, or
// "" for providers that need none.
func KeyFor(provider types.EmbedderProvider) string {
	switch provider {
	case types.ProviderOpenAI:
		return KeyOpenAI
	case types.ProviderAzure:
		return KeyAzureOpenAI
	}
	return ""
}

// ApplyAPIKey fills cfg.APIKey from secrets when it is not already set.
func ApplyAPIKey(cfg *types.EmbedderConfig, secrets map[string]string) {
	if cfg.APIKey != "" {
		return
	}
	if key := KeyFor(cfg.Provider); key != "" {
		cfg.APIKey = secrets[key]
	}
}
