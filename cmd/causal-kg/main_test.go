// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/causal-kg/internal/secrets"
	"github.com/pdiddy/causal-kg/pkg/types"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetEnvPrefix("CAUSAL_KG")
	v.SetEnvKeyReplacer(envKeys)
	v.AutomaticEnv()
	require.NoError(t, setDefaults(v, types.DefaultPipelineConfig()))
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("NCBI_API_KEY", "")
	t.Setenv("NCBI_EMAIL", "")

	cfg, err := loadConfig(newTestViper(t), nil)
	require.NoError(t, err)

	def := types.DefaultPipelineConfig()
	assert.Equal(t, def.Search, cfg.Search)
	assert.Equal(t, def.Extraction, cfg.Extraction)
	assert.Equal(t, def.Acquisition.Timeout, cfg.Acquisition.Timeout)
	assert.Equal(t, types.DefaultModel, cfg.Generation.Model)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "causal-kg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
generation:
  model: gpt-4o
  temperature: 0.2
search:
  top_k: 8
acquisition:
  timeout: 45s
  download_delay: 250ms
extraction:
  concurrency: 4
  dedup_types: true
`), 0o644))

	v := newTestViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v, nil)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Generation.Model)
	assert.InDelta(t, 0.2, cfg.Generation.Temperature, 1e-6)
	assert.Equal(t, 8, cfg.Search.TopK)
	assert.Equal(t, types.DefaultMaxResults, cfg.Search.MaxResults)
	assert.Equal(t, 45*time.Second, cfg.Acquisition.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Acquisition.DownloadDelay)
	assert.Equal(t, 4, cfg.Extraction.Concurrency)
	assert.True(t, cfg.Extraction.DedupTypes)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("CAUSAL_KG_EXTRACTION_CHUNK_SIZE", "900")
	t.Setenv("CAUSAL_KG_GENERATION_MODEL", "local-llama")

	cfg, err := loadConfig(newTestViper(t), nil)
	require.NoError(t, err)
	assert.Equal(t, 900, cfg.Extraction.ChunkSize)
	assert.Equal(t, "local-llama", cfg.Generation.Model)
}

func TestLoadConfig_Secrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_API_BASE_URL", "http://localhost:8000/v1")
	t.Setenv("NCBI_API_KEY", "")
	t.Setenv("NCBI_EMAIL", "env@example.org")

	s := map[string]string{
		secrets.OpenAIAPIKey: "file-key",
		secrets.NCBIAPIKey:   "ncbi-file",
	}
	cfg, err := loadConfig(newTestViper(t), s)
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.Generation.APIKey)
	assert.Equal(t, "http://localhost:8000/v1", cfg.Generation.BaseURL)
	assert.Equal(t, "ncbi-file", cfg.Search.NCBIAPIKey)
	assert.Equal(t, "env@example.org", cfg.Search.Email)
}

func TestBindFlags(t *testing.T) {
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("papers-dir", "papers", "")
	flags.Int("top-k", 5, "")
	require.NoError(t, flags.Parse([]string{"--papers-dir", "/data/papers"}))

	v := newTestViper(t)
	require.NoError(t, bindFlags(v, flags, map[string]string{
		"acquisition.papers_dir": "papers-dir",
		"extraction.papers_dir":  "papers-dir",
		"search.top_k":           "top-k",
	}))

	cfg, err := loadConfig(v, nil)
	require.NoError(t, err)
	assert.Equal(t, "/data/papers", cfg.Acquisition.PapersDir)
	assert.Equal(t, "/data/papers", cfg.Extraction.PapersDir)
	assert.Equal(t, types.DefaultPapersDir, cfg.Conversion.PapersDir)
	assert.Equal(t, 5, cfg.Search.TopK)
}

func TestBindFlags_Unknown(t *testing.T) {
	flags := pflag.NewFlagSet("x", pflag.ContinueOnError)
	err := bindFlags(viper.New(), flags, map[string]string{"search.top_k": "top-k"})
	assert.ErrorContains(t, err, `unknown flag "top-k"`)
}

func TestRunIdentifiers(t *testing.T) {
	dir := t.TempDir()
	run := `id: r1
question: q
strategy: s
candidates:
  - pmid: "1"
    pmcid: PMC1
  - pmid: "2"
selected: ["2", "1"]
created_at: 2026-01-01T00:00:00Z
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r1.yaml"), []byte(run), 0o644))

	ids, err := runIdentifiers("", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "PMC1"}, ids)

	_, err = runIdentifiers("", t.TempDir())
	assert.ErrorContains(t, err, "run search first")
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "causal-kg dev\n", buf.String())
}
