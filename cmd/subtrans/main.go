package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"subtrans/internal/config"
	"subtrans/internal/engine"
	"subtrans/internal/event"
	"subtrans/internal/mask"
	"subtrans/internal/stats"
	"subtrans/internal/translate"
	"subtrans/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		overwrite   bool
		maxRetries  int
		chunkSize   int
		useModel    bool
		modelURL    string
		sourceLang  string
		targetLang  string
		termsFile   string
		verbose     bool
		quiet       bool
		showVersion bool
	)

	rootCmd := &cobra.Command{
		Use:   "subtrans [flags] <folder>",
		Short: "Translate a folder of subtitle files, transactionally",
		Long: "subtrans walks a folder tree, translates every subtitle file through an\n" +
			"external service, and commits the results all-or-nothing: a failed or\n" +
			"interrupted run leaves the tree exactly as it found it. Unchanged files\n" +
			"are skipped on re-runs via content fingerprints.",
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				return nil
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "subtrans %s\n", version)
				return nil
			}
			folder := args[0]

			// Configure logging before anything that may log.
			logLevel := slog.LevelWarn
			if verbose {
				logLevel = slog.LevelDebug
			} else if !quiet {
				logLevel = slog.LevelInfo
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			}))
			slog.SetDefault(logger)

			// Load optional config file; CLI flags always win.
			cfg, err := config.Load()
			if err != nil {
				slog.Warn("failed to load config", "error", err)
			}
			applyConfigDefaults(cmd, cfg.Defaults,
				&overwrite, &maxRetries, &chunkSize,
				&useModel, &modelURL, &sourceLang, &targetLang, &termsFile)

			terms := mask.DefaultTerms
			if termsFile != "" {
				terms, err = mask.LoadTerms(termsFile)
				if err != nil {
					return err
				}
			}

			var backend translate.Translator
			if useModel || modelURL != "" {
				backend = translate.NewModelClient(translate.ModelConfig{
					BaseURL: modelURL,
					Source:  sourceLang,
					Target:  targetLang,
				})
			} else {
				backend = translate.NewGoogleClient(translate.GoogleConfig{
					Source: sourceLang,
					Target: targetLang,
				})
			}

			retry := translate.DefaultPolicy()
			if maxRetries > 0 {
				retry.MaxAttempts = maxRetries
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			collector := stats.NewCollector()
			events := make(chan event.Event, 256)
			presenter := ui.NewPresenter(ui.Config{
				Writer:    os.Stdout,
				ErrWriter: os.Stderr,
				Quiet:     quiet,
				Verbose:   verbose,
				Stats:     collector,
			})

			var presenterWg sync.WaitGroup
			presenterWg.Add(1)
			go func() {
				defer presenterWg.Done()
				presenter.Run(events)
			}()

			runErr := engine.Run(ctx, engine.Config{
				Folder:    folder,
				Overwrite: overwrite,
				ChunkSize: chunkSize,
				Retry:     retry,
				Backend:   backend,
				Terms:     terms,
				Events:    events,
				Stats:     collector,
			})
			stop()
			close(events)
			presenterWg.Wait()

			if !quiet {
				fmt.Fprintln(os.Stderr, presenter.Summary())
			}

			if runErr != nil {
				slog.Error("run failed", "error", runErr)
				if errors.Is(runErr, engine.ErrCancelled) {
					return &exitError{code: 130}
				}
				return &exitError{code: 1}
			}
			return nil
		},
	}

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")
	rootCmd.Flags().
		BoolVarP(&overwrite, "overwrite", "o", false, "replace originals in place (backups kept in backup/)")
	rootCmd.Flags().
		IntVar(&maxRetries, "max-retries", 3, "attempts per service call before the run fails")
	rootCmd.Flags().
		IntVarP(&chunkSize, "chunk-size", "n", 4, "files translated in parallel")
	rootCmd.Flags().BoolVar(&useModel, "model", false, "use the local model server instead of the web service")
	rootCmd.Flags().
		StringVar(&modelURL, "model-url", "", "local model server endpoint (implies --model)")
	rootCmd.Flags().StringVarP(&sourceLang, "source", "s", "en", "source language code")
	rootCmd.Flags().StringVarP(&targetLang, "target", "t", "vi", "target language code")
	rootCmd.Flags().
		StringVar(&termsFile, "terms", "", "file with one protected term per line")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(docsCmd)

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

// applyConfigDefaults applies config file defaults for flags not
// explicitly set on the CLI.
func applyConfigDefaults(
	cmd *cobra.Command,
	defaults config.DefaultsConfig,
	overwrite *bool,
	maxRetries *int,
	chunkSize *int,
	useModel *bool,
	modelURL *string,
	sourceLang *string,
	targetLang *string,
	termsFile *string,
) {
	if !cmd.Flags().Changed("overwrite") && defaults.Overwrite != nil {
		*overwrite = *defaults.Overwrite
	}
	if !cmd.Flags().Changed("max-retries") && defaults.MaxRetries != nil {
		*maxRetries = *defaults.MaxRetries
	}
	if !cmd.Flags().Changed("chunk-size") && defaults.ChunkSize != nil {
		*chunkSize = *defaults.ChunkSize
	}
	if !cmd.Flags().Changed("model") && defaults.Model != nil {
		*useModel = *defaults.Model
	}
	if !cmd.Flags().Changed("model-url") && defaults.ModelURL != nil {
		*modelURL = *defaults.ModelURL
	}
	if !cmd.Flags().Changed("source") && defaults.Source != nil {
		*sourceLang = *defaults.Source
	}
	if !cmd.Flags().Changed("target") && defaults.Target != nil {
		*targetLang = *defaults.Target
	}
	if !cmd.Flags().Changed("terms") && defaults.Terms != nil {
		*termsFile = *defaults.Terms
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
