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
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"stockchat/internal/chat"
	"stockchat/internal/config"
	"stockchat/internal/corpus"
	"stockchat/internal/logging"
)

const version = "1.0.0"

var (
	configFile        string
	dbDriver          string
	dbHost            string
	dbPort            int
	dbName            string
	dbUser            string
	llmProvider       string
	llmModel          string
	embeddingProvider string
	embeddingModel    string
	exampleCount      int
	corpusFile        string
	historyFile       string
	noColor           bool
	noMarkdown        bool
	showVersion       bool
)

var rootCmd = &cobra.Command{
	Use:   "stockchat",
	Short: "Ask natural-language questions about a retail inventory database",
	Long: `stockchat answers plain-language questions about a retail inventory
stored in a relational database. It selects similar worked examples with
embeddings, asks a language model to write SQL, runs the query, and asks
the model to phrase the result as an answer.

Run without arguments for an interactive session, or use 'stockchat ask'
for a single question.`,
	RunE: runChat,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	// A .env file supplies API keys in development; missing is fine.
	_ = godotenv.Load()

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Path to configuration file")
	flags.StringVar(&dbDriver, "db-driver", "", "Database driver: mysql, postgres, or sqlite")
	flags.StringVar(&dbHost, "db-host", "", "Database host")
	flags.IntVar(&dbPort, "db-port", 0, "Database port")
	flags.StringVar(&dbName, "db-name", "", "Database name (or file path for sqlite)")
	flags.StringVar(&dbUser, "db-user", "", "Database user")
	flags.StringVar(&llmProvider, "llm-provider", "", "LLM provider: gemini or ollama")
	flags.StringVar(&llmModel, "llm-model", "", "LLM model name")
	flags.StringVar(&embeddingProvider, "embedding-provider", "", "Embedding provider: openai, ollama, or voyage")
	flags.StringVar(&embeddingModel, "embedding-model", "", "Embedding model name")
	flags.IntVarP(&exampleCount, "examples", "k", 0, "Few-shot examples retrieved per question")
	flags.StringVar(&corpusFile, "corpus", "", "YAML file with few-shot examples")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.Flags().StringVar(&historyFile, "history-file", defaultHistoryFile(), "Question history file")
	rootCmd.Flags().BoolVar(&noMarkdown, "no-markdown", false, "Disable markdown rendering of answers")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version and exit")

	rootCmd.AddCommand(askCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.stockchat_history"
}

// collectFlags translates cobra flag state into the config layer's
// flag set, tracking which flags were explicitly given.
func collectFlags(cmd *cobra.Command) config.CLIFlags {
	changed := cmd.Flags().Changed
	return config.CLIFlags{
		ConfigFile: configFile, ConfigFileSet: changed("config"),
		DBDriver: dbDriver, DBDriverSet: changed("db-driver"),
		DBHost: dbHost, DBHostSet: changed("db-host"),
		DBPort: dbPort, DBPortSet: changed("db-port"),
		DBName: dbName, DBNameSet: changed("db-name"),
		DBUser: dbUser, DBUserSet: changed("db-user"),
		LLMProvider: llmProvider, LLMProviderSet: changed("llm-provider"),
		LLMModel: llmModel, LLMModelSet: changed("llm-model"),
		EmbeddingProvider: embeddingProvider, EmbeddingProviderSet: changed("embedding-provider"),
		EmbeddingModel: embeddingModel, EmbeddingModelSet: changed("embedding-model"),
		ExampleCount: exampleCount, ExampleCountSet: changed("examples"),
		CorpusFile: corpusFile, CorpusFileSet: changed("corpus"),
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	if showVersion {
		fmt.Printf("stockchat v%s\n", version)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui := chat.NewUI(noColor, !noMarkdown)

	app, err := buildApp(ctx, cmd, ui)
	if err != nil {
		return err
	}
	defer app.Close()

	// Hot-reload the example corpus while the session runs.
	if app.cfg.CorpusFile != "" {
		watcher, err := corpus.NewWatcher(app.cfg.CorpusFile, func() error {
			examples, err := corpus.LoadFile(app.cfg.CorpusFile)
			if err != nil {
				return err
			}
			return app.pipeline.ReplaceExamples(ctx, examples)
		})
		if err != nil {
			logging.Warn("Corpus watcher unavailable", "error", err.Error())
		} else {
			watcher.Start()
			defer watcher.Stop()
		}
	}

	session := chat.NewSession(app.pipeline, ui, historyFile)
	return session.Run(ctx, app.cfg.Database.Database)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui := chat.NewUI(noColor, false)

	app, err := buildApp(ctx, cmd, ui)
	if err != nil {
		return err
	}
	defer app.Close()

	question := strings.Join(args, " ")

	result, err := app.pipeline.Ask(ctx, question)
	if err != nil {
		return err
	}

	if result.Degraded {
		fmt.Fprintln(os.Stderr, "warning: the query did not run cleanly; this answer may not reflect real data")
	}
	fmt.Println(result.Answer)
	return nil
}
