package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spf13/cobra"

	"tlc-ingest/config"
	"tlc-ingest/models"
	"tlc-ingest/server"
	"tlc-ingest/services"
	"tlc-ingest/storage"
	"tlc-ingest/utils"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rc := &cobra.Command{
		Use:   "tlc-ingest",
		Short: "Ingest NYC TLC monthly trip files into weekly parquet shards",
		Long: `tlc-ingest downloads one month of NYC TLC trip records, normalizes the
pickup and dropoff column names, splits the rows into calendar weeks and
uploads each week as its own parquet object.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rc.AddCommand(newServeCommand(), newRunCommand())
	return rc
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the ingest endpoint over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := config.Load()
			logger := utils.NewLogger()
			logger.SetLevel(utils.ParseLevel(cfg.LogLevel))

			app, err := build(ctx, cfg, logger)
			if err != nil {
				logger.Error("%v", err)
				return err
			}
			defer app.Close()

			srv := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           server.New(app.pipeline, logger).Handler(os.Stdout),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				logger.Info("=== TLC ingest service listening on %s (backend: %s, bucket: %s) ===",
					cfg.HTTPAddr, cfg.StorageBackend, cfg.Bucket)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP server failed: %v", err)
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newRunCommand() *cobra.Command {
	var params models.Params
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest a single month and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			logger := utils.NewLogger()
			logger.SetLevel(utils.ParseLevel(cfg.LogLevel))

			params = services.ResolveParams(flagValues(cmd))

			app, err := build(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Error("%v", err)
				return err
			}
			defer app.Close()

			report, err := app.pipeline.Run(cmd.Context(), params)
			app.pipeline.Reporter().Print(os.Stdout, report)
			if err != nil {
				logger.Error("Error: %v", err)
				return err
			}

			if app.catalog != nil {
				catalogued, err := app.catalog.FetchPeriod(cmd.Context(), params.TaxiType, params.Period())
				if err != nil {
					logger.Warn("Catalog lookup failed: %v", err)
				} else {
					logger.Info("Catalog holds %d shards for %s %s", len(catalogued), params.TaxiType, params.Period())
				}
			}

			fmt.Printf("  Successfully processed %s %s\n\n", params.TaxiType, params.Period())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&params.Year, "year", models.DefaultYear, "four-digit year of the source file")
	flags.StringVar(&params.Month, "month", models.DefaultMonth, "two-digit month of the source file")
	flags.StringVar(&params.TaxiType, "type", models.DefaultTaxiType, "dataset flavor, e.g. yellow or green")
	return cmd
}

// flagValues turns the flags the user actually set into query values so the
// CLI resolves parameters exactly like the HTTP handler does.
func flagValues(cmd *cobra.Command) map[string][]string {
	q := make(map[string][]string)
	for _, name := range []string{"year", "month", "type"} {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			q[name] = []string{f.Value.String()}
		}
	}
	return q
}

// application holds the wired pipeline and the resources it owns.
type application struct {
	pipeline *services.Pipeline
	store    storage.ObjectStore
	catalog  *storage.PostgresCatalog
	notifier storage.ShardNotifier
	logger   *utils.Logger
}

func build(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*application, error) {
	store, err := storage.NewObjectStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open object store: %w", err)
	}
	app := &application{store: store, logger: logger}

	retry := &utils.RetryConfig{MaxAttempts: 5, BaseDelay: 2 * time.Second, MaxDelay: 15 * time.Second, Logger: logger}
	mem := memory.NewGoAllocator()
	writer := services.NewShardWriter(store, cfg.ShardPrefix, cfg.RowGroupSize, logger, mem)

	if cfg.CatalogEnabled {
		catalog, err := storage.NewPostgresCatalog(ctx, cfg.DSN(), retry)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		app.catalog = catalog
		writer.WithCatalog(catalog)
		logger.Info("Shard catalog enabled (table: ingest_shards)")
	}

	if cfg.AMQPURL != "" {
		notifier, err := storage.NewAMQPNotifier(ctx, cfg.AMQPURL, cfg.ShardQueue, retry)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		app.notifier = notifier
		writer.WithNotifier(notifier)
		logger.Info("Publishing shard events to queue %q", cfg.ShardQueue)
	}

	fetcher := services.NewFetcher(cfg.SourceBaseURL, cfg.FetchTimeout, logger)
	app.pipeline = services.NewPipeline(fetcher, writer, logger, mem)
	return app, nil
}

func (a *application) Close() {
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.logger.Warn("Closing notifier: %v", err)
		}
	}
	if a.catalog != nil {
		if err := a.catalog.Close(); err != nil {
			a.logger.Warn("Closing catalog: %v", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Closing object store: %v", err)
	}
}
