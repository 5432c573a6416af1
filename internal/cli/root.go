// Package cli provides the command-line interface for yakgwan.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joonhokim/yakgwan/internal/blob"
	"github.com/joonhokim/yakgwan/internal/config"
	"github.com/joonhokim/yakgwan/internal/db"
	"github.com/joonhokim/yakgwan/internal/extract"
	"github.com/joonhokim/yakgwan/internal/llm"
	"github.com/joonhokim/yakgwan/internal/parser"
	"github.com/joonhokim/yakgwan/internal/service"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configPath string

	// Global config, logger and db client
	cfg       config.Config
	logger    *slog.Logger
	logClose  func() error
	dbClient  *db.Client
	blobStore blob.Store

	// Lazy-initialized LLM components
	embedder *llm.Embedder
	model    *llm.Model
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "yakgwan",
	Short: "Insurance policy knowledge graph",
	Long: `Yakgwan ingests Korean insurance policy documents (약관) into a
knowledge graph: articles, benefit amounts, waiting periods, disease
codes and their relationships, searchable by text and by meaning.

Submit a policy PDF with 'ingest', watch the job with 'jobs', then
query the graph with 'ask' and 'search'.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if configPath != "" {
			var err error
			cfg, err = config.LoadFile(cfg, configPath)
			if err != nil {
				return fmt.Errorf("load config file: %w", err)
			}
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger, logClose = config.SetupLogger(cfg.LogFile, cfg.LogLevel)

		ctx := context.Background()
		dbCfg := db.Config{
			URL:                cfg.SurrealDBURL,
			Namespace:          cfg.SurrealDBNamespace,
			Database:           cfg.SurrealDBDatabase,
			Username:           cfg.SurrealDBUser,
			Password:           cfg.SurrealDBPass,
			EmbeddingDimension: cfg.EmbeddingDimension,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		blobStore, err = openBlobStore(ctx)
		if err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if logClose != nil {
			_ = logClose()
		}
	},
}

// openBlobStore selects Azure when a connection string is configured,
// otherwise an in-process store. The in-process store cannot resume
// jobs across restarts.
func openBlobStore(ctx context.Context) (blob.Store, error) {
	if cfg.Blob.ConnectionString == "" {
		logger.Warn("no blob connection string configured, documents held in memory only")
		return blob.NewMemory(), nil
	}
	store, err := blob.NewAzure(cfg.Blob, logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// initLLM lazily creates the embedder and, when wanted, the model.
// Commands that work rule-only pass withModel=false.
func initLLM(ctx context.Context, withModel bool) error {
	if embedder == nil {
		var err error
		embedder, err = llm.NewEmbedder(cfg)
		if err != nil {
			return fmt.Errorf("init embedder: %w", err)
		}
	}
	if withModel && model == nil {
		var err error
		model, err = llm.NewModel(ctx, cfg)
		if err != nil {
			return fmt.Errorf("init model: %w", err)
		}
	}
	return nil
}

// newIngestService wires the full pipeline from the global components.
// A nil generator keeps extraction rule-only.
func newIngestService(generator service.Generator) *service.IngestService {
	return service.NewIngestService(
		dbClient,
		blobStore,
		service.NewJobManager(dbClient, logger),
		embedder,
		generator,
		service.IngestConfig{
			ParserConfig:     parser.Config{DegradedThreshold: cfg.DegradedThreshold},
			ExtractConfig:    extract.Config{MaxAmount: cfg.MaxAmountWon},
			MaxDocumentBytes: cfg.MaxDocumentBytes,
			LinkSimilarity:   cfg.LinkSimilarity,
		},
		logger,
	)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
