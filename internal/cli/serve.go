package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/resumatch/internal/api/handlers"
	"github.com/cloo-solutions/resumatch/internal/jobs"
	"github.com/cloo-solutions/resumatch/internal/server"
)

func serveCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the resumatch API server on the specified port",
		Annotations: map[string]string{
			"env": "PORT,API_TOKEN,MAX_UPLOAD_BYTES,WATCH_INTERVAL,S3_ENDPOINT,S3_BUCKET",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			noMigrate, _ := cmd.Flags().GetBool("no-migrate")
			ingest, _ := cmd.Flags().GetBool("ingest")
			return runServe(cmd.Context(), rt, noMigrate, ingest)
		},
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("ingest", false, "Index the resume directory before serving")

	return cmd
}

func runServe(ctx context.Context, rt *runtime, noMigrate, ingest bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := rt.log
	app, err := rt.app(ctx, BuildOptions{SkipMigrations: noMigrate})
	if err != nil {
		return err
	}
	defer app.Close()

	if ingest {
		report, err := app.Ingestion.Run(ctx, false)
		if err != nil {
			return fmt.Errorf("startup ingestion failed: %w", err)
		}
		log.Info("startup ingestion complete", zap.Int("files", report.Files), zap.Int("chunks", report.Chunks))
	}

	var opts []handlers.ResumeHandlerOption
	if app.Archive != nil {
		opts = append(opts, handlers.WithArchive(app.Archive))
	}

	var worker *jobs.Worker
	if interval := app.Config.WatchInterval; interval > 0 {
		watcher := jobs.NewDirectoryWatcher(app.Directory, app.Ingestion, log)
		if ingest {
			if err := watcher.Prime(); err != nil {
				return err
			}
		}
		opts = append(opts, handlers.WithIngestObserver(watcher.MarkIngested))

		worker = jobs.NewWorker(watcher, interval, log)
		if notifier, err := jobs.NewNotifier(app.Directory.Root(), log); err != nil {
			log.Warn("fs notifications unavailable, polling only", zap.Error(err))
		} else {
			defer notifier.Close()
			go notifier.Run(ctx)
			worker.WithTrigger(notifier.Events())
		}
		go worker.Start(ctx)
		log.Info("directory watcher started", zap.Duration("interval", interval))
	}

	router := server.NewRouter(server.RouterConfig{
		ResumeHandler:  handlers.NewResumeHandler(app.Directory, app.Ingestion, app.Store, log, opts...),
		AnalyzeHandler: handlers.NewAnalyzeHandler(app.Controller, log),
		APIToken:       app.Config.APIToken,
		MaxBodyBytes:   app.Config.MaxUploadBytes,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              ":" + app.Config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("port", app.Config.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("shutting down...")

	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}
