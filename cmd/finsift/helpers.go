package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/finsift/finsift/internal/breaker"
	"github.com/finsift/finsift/internal/common"
	"github.com/finsift/finsift/internal/config"
	"github.com/finsift/finsift/internal/dedup"
	"github.com/finsift/finsift/internal/engine"
	"github.com/finsift/finsift/internal/extract"
	"github.com/finsift/finsift/internal/llm"
	"github.com/finsift/finsift/internal/rules"
	"github.com/finsift/finsift/internal/storage"
)

// openStorage opens the SQLite store and brings the schema up to date.
func openStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// createExtractor builds the AI extraction tier from configuration.
// This function is shared by every command that needs AI functionality.
func createExtractor(cfg *config.Config) (*llm.Extractor, error) {
	llmCfg := llm.Config{
		Provider:      cfg.AI.Provider,
		APIKey:        cfg.AI.APIKey,
		Model:         cfg.AI.Model,
		MinInterval:   cfg.AI.MinInterval,
		Temperature:   cfg.AI.Temperature,
		MaxTokens:     cfg.AI.MaxTokens,
		MinConfidence: cfg.AI.MinConfidence,
		Retry: common.RetryOptions{
			MaxAttempts: cfg.AI.RetryAttempts,
			BaseDelay:   cfg.AI.RetryBase,
			MaxDelay:    cfg.AI.RetryMax,
		},
	}

	if llmCfg.APIKey == "" {
		switch cfg.AI.Provider {
		case "anthropic":
			return nil, common.NewUserError("anthropic API key not found in config or ANTHROPIC_API_KEY environment variable", common.ErrMissingConfig)
		default:
			return nil, common.NewUserError("OpenAI API key not found in config or OPENAI_API_KEY environment variable", common.ErrMissingConfig)
		}
	}

	return llm.NewExtractor(llmCfg, common.NewSystemClock(), slog.Default())
}

// buildPipeline wires the full extraction pipeline: text adapters, circuit
// breaker, AI and rule tiers, duplicate detector, storage and review sink.
// Each instance owns its own breaker; construct once per process.
func buildPipeline(cfg *config.Config, store *storage.SQLiteStorage) (*engine.Pipeline, error) {
	clock := common.NewSystemClock()

	extractor, err := createExtractor(cfg)
	if err != nil {
		return nil, err
	}

	ruleAnalyzer, err := rules.NewAnalyzer(rules.Config{Confidence: cfg.RuleConfidence}, clock)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule analyzer: %w", err)
	}

	router := extract.NewRouter(
		extract.NewPDFExtractor(),
		extract.NewOCRExtractor(cfg.OCRLanguages),
	)

	brk := breaker.New("ai", breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		OpenTimeout:      cfg.Breaker.OpenTimeout,
	}, clock)

	cascade := engine.NewCascade(router, extractor, ruleAnalyzer, brk, slog.Default())
	detector := dedup.New(store, dedup.Config{
		AmountTolerance: cfg.Dedup.AmountTolerance,
		DateWindowDays:  cfg.Dedup.DateWindowDays,
	})

	return engine.NewPipeline(cascade, detector, store, store, clock, slog.Default()), nil
}

// readAttachment loads one document from disk.
func readAttachment(path string) ([]byte, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-supplied document path
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
