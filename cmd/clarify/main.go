package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AryaShetye/clarify-md/internal/config"
	"github.com/AryaShetye/clarify-md/internal/logging"
	"github.com/AryaShetye/clarify-md/internal/ontology"
	"github.com/AryaShetye/clarify-md/internal/override"
	"github.com/AryaShetye/clarify-md/internal/pipeline"
	"github.com/AryaShetye/clarify-md/internal/reasoning"
	"github.com/AryaShetye/clarify-md/internal/types"
)

var (
	// Global flags
	configPath string
	auditLog   string
	offline    bool
	timeout    time.Duration
	jsonOut    bool
	lightMode  bool

	// Resolved in PersistentPreRunE, shared by all subcommands
	cfg       *config.Config
	logger    *zap.Logger
	auditSink logging.Sink
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "clarify",
	Short: "clarify-md - patient narrative interpretation pipeline",
	Long: `clarify reads a patient's own words and produces a cautious,
plain-language interpretation a clinician can act on.

Three extractors run in parallel over the narrative (figurative language,
emotional signals, risk), a deterministic pattern table enforces a risk
floor the language model cannot lower, and a safety validator scrubs
diagnostic phrasing before anything is shown.

The model proposes; the safety rules dispose.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// version needs no config, no logger, and must not touch the audit log
		if cmd.Name() == "version" {
			return nil
		}

		// .env is optional; a missing file is not an error
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if auditLog != "" {
			cfg.Audit.Path = auditLog
		}
		if cmd.Flags().Changed("timeout") {
			cfg.Pipeline.Timeout = timeout.String()
		}

		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if cfg.Audit.Path != "" {
			sink, err := logging.NewFileSink(cfg.Audit.Path)
			if err != nil {
				return fmt.Errorf("failed to open audit log: %w", err)
			}
			auditSink = sink
		} else {
			auditSink = logging.NopSink{}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		if auditSink != nil {
			_ = auditSink.Close()
		}
	},
}

// versionCmd prints the binary name and version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the clarify version",
	Run: func(cmd *cobra.Command, args []string) {
		def := config.DefaultConfig()
		fmt.Printf("%s %s\n", def.Name, def.Version)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "clarify.yaml", "Config file path (missing file uses defaults)")
	rootCmd.PersistentFlags().StringVar(&auditLog, "audit-log", "", "Audit JSONL path (overrides config; empty keeps config value)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Use the deterministic offline port instead of Gemini")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Pipeline deadline for one narrative")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Emit the raw interpretation document as JSON")
	rootCmd.PersistentFlags().BoolVar(&lightMode, "light", false, "Render markdown for light terminal backgrounds")

	// Interpret flags
	interpretCmd.Flags().StringVar(&narrativeFile, "file", "", "Read the narrative from a file instead of arguments")

	// What-if flags
	whatifCmd.Flags().StringVar(&baselineText, "baseline", "", "Narrative as the patient phrased it (required)")
	whatifCmd.Flags().StringVar(&hypotheticalText, "hypothetical", "", "Reworded narrative to compare against (required)")
	whatifCmd.MarkFlagRequired("baseline")
	whatifCmd.MarkFlagRequired("hypothetical")

	// Ontology flags
	ontologyCmd.Flags().IntVar(&ontologyLimit, "limit", 5, "Maximum matches to print")

	// Add commands to root
	rootCmd.AddCommand(interpretCmd)
	rootCmd.AddCommand(whatifCmd)
	rootCmd.AddCommand(ontologyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildPort assembles the reasoning port with its middleware chain. The fake
// port serves --offline runs so the full pipeline works without a key.
func buildPort(ctx context.Context) (types.ReasoningPort, error) {
	var base types.ReasoningPort
	if offline {
		base = reasoning.NewFakePort()
	} else {
		gemini, err := reasoning.NewGeminiPort(ctx, cfg.Reasoning, logger)
		if err != nil {
			return nil, err
		}
		base = gemini
	}

	return reasoning.Wrap(base,
		reasoning.WithLogging(logger),
		reasoning.WithRetry(cfg.Retry.Attempts, cfg.GetRetryBaseDelay()),
		reasoning.WithCache(cfg.Cache.Size, auditSink),
		reasoning.WithAudit(auditSink),
	), nil
}

// buildEngine compiles the override pattern table, from file when configured.
func buildEngine() (*override.Engine, error) {
	if cfg.Override.TablePath == "" {
		return override.MustDefault(), nil
	}
	table, err := override.LoadTable(cfg.Override.TablePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load override table: %w", err)
	}
	return override.NewEngine(table)
}

// buildIndex loads the vocabulary file when configured; nil keeps the
// built-in vocabulary.
func buildIndex() (*ontology.Index, error) {
	if cfg.Ontology.VocabPath == "" {
		return nil, nil
	}
	idx, err := ontology.LoadFile(cfg.Ontology.VocabPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	return idx, nil
}

// buildPipeline wires port, engine and optional table watcher into a ready
// pipeline. The returned cleanup stops the watcher and closes the port.
func buildPipeline(ctx context.Context) (*pipeline.Pipeline, func(), error) {
	port, err := buildPort(ctx)
	if err != nil {
		return nil, nil, err
	}

	engine, err := buildEngine()
	if err != nil {
		_ = port.Close()
		return nil, nil, err
	}

	index, err := buildIndex()
	if err != nil {
		_ = port.Close()
		return nil, nil, err
	}

	var watcher *override.Watcher
	if cfg.Override.Watch && cfg.Override.TablePath != "" {
		watcher, err = override.NewWatcher(cfg.Override.TablePath, engine, logger,
			logging.NewAuditor(auditSink, "override-watch"))
		if err == nil {
			err = watcher.Start(ctx)
		}
		if err != nil {
			_ = port.Close()
			return nil, nil, fmt.Errorf("failed to watch override table: %w", err)
		}
	}

	pipe, err := pipeline.New(pipeline.Config{
		Port:    port,
		Index:   index,
		Engine:  engine,
		Timeout: cfg.GetPipelineTimeout(),
		Logger:  logger,
		Audit:   auditSink,
	})
	if err != nil {
		if watcher != nil {
			watcher.Stop()
		}
		_ = port.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if watcher != nil {
			watcher.Stop()
		}
		_ = port.Close()
	}
	return pipe, cleanup, nil
}
