// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the causal-kg CLI.
// Implements: search, acquire, convert, extract, run (CLI surface);
//
//	configuration from causal-kg.yaml, CAUSAL_KG_* env, .env, .secrets/.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/causal-kg/internal/secrets"
	"github.com/pdiddy/causal-kg/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// envKeys maps config keys to environment variable suffixes
// (extraction.chunk_size becomes CAUSAL_KG_EXTRACTION_CHUNK_SIZE).
var envKeys = strings.NewReplacer(".", "_")

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the causal-kg CLI.
var rootCmd = &cobra.Command{
	Use:   "causal-kg",
	Short: "Mine biomedical literature into a causal knowledge graph",
	Long: `causal-kg turns a research question into causal triples. The model drafts
a PubMed search strategy and selects the most relevant reviews; their full
text is downloaded from Europe PMC, converted to plain text, and mined for
cause-effect relationships chunk by chunk.

Each stage is a subcommand: search, acquire, convert, and extract. The run
subcommand chains all four.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", s.Keys())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./causal-kg.yaml or ~/.config/causal-kg/causal-kg.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of secret files (openai-api-key, ncbi-api-key, ncbi-email)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("causal-kg")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "causal-kg"))
		}
	}

	viper.SetEnvPrefix("CAUSAL_KG")
	viper.SetEnvKeyReplacer(envKeys)
	viper.AutomaticEnv()

	if err := setDefaults(viper.GetViper(), types.DefaultPipelineConfig()); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every field of def as a viper default so that
// config keys and CAUSAL_KG_* variables resolve even when absent from the
// config file.
func setDefaults(v *viper.Viper, def types.PipelineConfig) error {
	data, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("decoding default config: %w", err)
	}
	walkDefaults(v, "", tree)
	return nil
}

func walkDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			walkDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// bindFlags binds config keys to flags of the running command, keyed by
// config key. Binding happens when the command runs so that flags shared
// by several subcommands bind to the one being executed. One flag may
// feed several keys.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, flag := range keys {
		f := flags.Lookup(flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q", flag)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// loadConfig decodes the pipeline configuration from v and fills API keys
// from secrets and the environment. Config values win over secrets.
func loadConfig(v *viper.Viper, s secrets.Secrets) (types.PipelineConfig, error) {
	cfg := types.DefaultPipelineConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}

	if cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = s.Get(secrets.OpenAIAPIKey, "OPENAI_API_KEY")
	}
	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = strings.TrimSpace(os.Getenv("OPENAI_API_BASE_URL"))
	}
	if cfg.Search.NCBIAPIKey == "" {
		cfg.Search.NCBIAPIKey = s.Get(secrets.NCBIAPIKey, "NCBI_API_KEY")
	}
	if cfg.Search.Email == "" {
		cfg.Search.Email = s.Get(secrets.NCBIEmail, "NCBI_EMAIL")
	}
	return cfg, nil
}

// commandConfig binds keys for cmd and loads the configuration.
func commandConfig(cmd *cobra.Command, keys map[string]string) (types.PipelineConfig, error) {
	if err := bindFlags(viper.GetViper(), cmd.Flags(), keys); err != nil {
		return types.PipelineConfig{}, err
	}
	return loadConfig(viper.GetViper(), loadedSecrets)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
