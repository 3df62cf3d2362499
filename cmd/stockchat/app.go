/*-------------------------------------------------------------------------
 *
 * stockchat - Natural Language Inventory Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"

	"github.com/spf13/cobra"

	"stockchat/internal/chat"
	"stockchat/internal/config"
	"stockchat/internal/corpus"
	"stockchat/internal/database"
	"stockchat/internal/embedding"
	"stockchat/internal/llm"
	"stockchat/internal/logging"
	"stockchat/internal/pipeline"
)

// app holds the constructed collaborators for one session.
type app struct {
	cfg      *config.Config
	db       *database.Client
	pipeline *pipeline.Pipeline
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

// buildApp performs all construction-time setup: configuration,
// database connection and introspection, corpus loading, embedding and
// LLM clients, and the similarity index. Any failure here means the
// system is not ready.
func buildApp(ctx context.Context, cmd *cobra.Command, ui *chat.UI) (*app, error) {
	cfg, err := config.Load(configFile, collectFlags(cmd))
	if err != nil {
		return nil, pipeline.NewConstructionError("configuration", err)
	}

	// Prompt for the database password when nothing supplied it.
	if cfg.Database.Password == "" && cfg.Database.Driver != "sqlite" {
		password, err := ui.PromptForPassword(ctx)
		if err != nil {
			return nil, pipeline.NewConstructionError("configuration", err)
		}
		cfg.Database.Password = password
	}

	db, err := database.NewClient(cfg.Database)
	if err != nil {
		return nil, pipeline.NewConstructionError("database", err)
	}
	if err := db.Connect(ctx); err != nil {
		return nil, pipeline.NewConstructionError("database", err)
	}

	schema, err := db.IntrospectSchema(ctx)
	if err != nil {
		_ = db.Close()
		return nil, pipeline.NewConstructionError("database", err)
	}

	examples := corpus.Default()
	if cfg.CorpusFile != "" {
		examples, err = corpus.LoadFile(cfg.CorpusFile)
		if err != nil {
			_ = db.Close()
			return nil, pipeline.NewConstructionError("example corpus", err)
		}
	}

	embedder, err := embedding.NewProvider(embedding.Config{
		Provider:     cfg.Embedding.Provider,
		Model:        cfg.Embedding.Model,
		OpenAIAPIKey: cfg.Embedding.OpenAIAPIKey,
		VoyageAPIKey: cfg.Embedding.VoyageAPIKey,
		OllamaURL:    cfg.Embedding.OllamaURL,
	})
	if err != nil {
		_ = db.Close()
		return nil, pipeline.NewConstructionError("embeddings", err)
	}
	logging.Info("Embedding provider ready",
		"provider", embedder.ProviderName(),
		"model", embedder.ModelName(),
		"dimensions", embedder.Dimensions())

	model, err := llm.NewClient(llm.Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.GeminiAPIKey,
		BaseURL:     llmBaseURL(cfg),
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		_ = db.Close()
		return nil, pipeline.NewConstructionError("language model", err)
	}

	callTimeout, err := cfg.Pipeline.CallTimeoutDuration()
	if err != nil {
		_ = db.Close()
		return nil, pipeline.NewConstructionError("configuration", err)
	}
	queryTimeout, err := cfg.Pipeline.QueryTimeoutDuration()
	if err != nil {
		_ = db.Close()
		return nil, pipeline.NewConstructionError("configuration", err)
	}

	p, err := pipeline.New(ctx, model, embedder, db, pipeline.Options{
		Examples:      examples,
		ExampleCount:  cfg.Pipeline.ExampleCount,
		SchemaSummary: schema.Summary(),
		TableNames:    schema.TableNames(),
		Driver:        db.Driver(),
		ResultLimit:   cfg.Pipeline.ResultLimit,
		CallTimeout:   callTimeout,
		QueryTimeout:  queryTimeout,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &app{cfg: cfg, db: db, pipeline: p}, nil
}

// llmBaseURL picks the provider-appropriate base URL from config.
func llmBaseURL(cfg *config.Config) string {
	if cfg.LLM.Provider == "ollama" {
		return cfg.LLM.OllamaURL
	}
	return ""
}
