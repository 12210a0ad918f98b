// Package cli wires the imgbridge commands: the stdio tool server, the HTTP
// server, the retention sweep, and the model listing.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"imgbridge/internal/config"
	"imgbridge/internal/db"
	"imgbridge/internal/ledger"
	"imgbridge/internal/provider"
	"imgbridge/internal/storage"
	"imgbridge/internal/workflow"
	"imgbridge/pkg/logger"
)

// version is stamped by the build; Execute overrides it when given one.
var version = "dev"

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "imgbridge",
	Short: "Image generation tool server with durable selection and spend tracking",
	Long: `imgbridge lets an agent generate candidate images through pluggable
providers, preview them locally, promote one to durable blob storage, and
track spend against a monthly budget.`,
	SilenceUsage: true,
}

func Execute(v string) {
	if v != "" {
		version = v
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: configs/config.yaml)")
}

// app is the assembled service graph every command runs against.
type app struct {
	cfg   *config.Config
	log   *slog.Logger
	svc   *workflow.Service
	store storage.BlobStore
	reg   *provider.Registry
}

func buildApp() (*app, error) {
	// .env is optional and loses to real environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	gdb, err := db.Connect(cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	reg := newRegistry(cfg)

	store, err := storage.NewS3Store(storage.S3Options{
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Region:          cfg.Storage.Region,
		Bucket:          cfg.Storage.Bucket,
		PublicURL:       cfg.Storage.PublicURL,
		PathTemplate:    cfg.Storage.PathTemplate,
	})
	if err != nil {
		return nil, fmt.Errorf("init blob store: %w", err)
	}

	svc := workflow.NewService(cfg, ledger.NewRepo(gdb), reg, store, log)
	return &app{cfg: cfg, log: log, svc: svc, store: store, reg: reg}, nil
}

func newRegistry(cfg *config.Config) *provider.Registry {
	reg := provider.NewRegistry()
	reg.Register("openai", func() (provider.Provider, error) {
		pc := cfg.Providers.OpenAI
		if pc.APIKey == "" {
			return nil, fmt.Errorf("providers.openai.api_key is not set")
		}
		return provider.NewOpenAIProvider(pc.BaseURL, pc.APIKey, pc.Model, pc.Timeout), nil
	})
	reg.Register("gemini", func() (provider.Provider, error) {
		pc := cfg.Providers.Gemini
		if pc.APIKey == "" {
			return nil, fmt.Errorf("providers.gemini.api_key is not set")
		}
		return provider.NewGeminiProvider(pc.BaseURL, pc.APIKey, pc.Model, pc.Timeout), nil
	})
	return reg
}
