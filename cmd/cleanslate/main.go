package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/commons-systems/cleanslate/internal/audit"
	"github.com/commons-systems/cleanslate/internal/backup"
	"github.com/commons-systems/cleanslate/internal/config"
	"github.com/commons-systems/cleanslate/internal/handlers"
	"github.com/commons-systems/cleanslate/internal/pipeline"
	"github.com/commons-systems/cleanslate/internal/scrub"
	"github.com/commons-systems/cleanslate/internal/server"
	"github.com/commons-systems/cleanslate/internal/streaming"
	"github.com/commons-systems/cleanslate/internal/ui"
	"github.com/commons-systems/cleanslate/internal/watcher"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "cleanslate: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var showVersion bool
	cmd := &cobra.Command{
		Use:   "cleanslate",
		Short: "Watched-directory metadata scrubbing pipeline",
		Long: `CleanSlate watches a directory for new files, backs them up to a remote,
strips their metadata with exiftool, relocates the sanitized copies, and
records an audit trail in Firestore.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				cmd.Printf("cleanslate version %s\n", version)
				return nil
			}
			return cmd.Help()
		},
	}
	cmd.Flags().BoolVar(&showVersion, "version", false, "Show version")
	cmd.AddCommand(
		newHealthCmd(),
		newSanitizeCmd(),
		newBackupCmd(),
		newRunDaemonCmd(),
		newRunAPICmd(),
	)
	return cmd
}

func newHealthCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check a running CleanSlate server",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("http://%s/health", hostport(addr))
			req, err := http.NewRequestWithContext(cmd.Context(), "GET", url, nil)
			if err != nil {
				return err
			}
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("server unreachable: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
			}
			ui.Success("Server is healthy")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8000", "Server address")
	return cmd
}

func newSanitizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sanitize <path>",
		Short: "Strip metadata from a file in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]
			scrubber := scrub.New()

			ui.Header("Sanitize")
			ui.Step(1, 3, fmt.Sprintf("Reading metadata from %s", filepath.Base(path)))
			before, err := scrubber.Read(ctx, path, true)
			if err != nil {
				return err
			}

			ui.Step(2, 3, "Stripping metadata")
			result, err := scrubber.Strip(ctx, path)
			if err != nil {
				return err
			}

			ui.Step(3, 3, "Verifying")
			after, err := scrubber.Read(ctx, path, true)
			if err != nil {
				return err
			}

			removed := make([]string, 0)
			for key := range before {
				if _, kept := after[key]; !kept {
					removed = append(removed, key)
				}
			}
			sort.Strings(removed)

			ui.Success(fmt.Sprintf("Sanitized %s (%d bytes, %d metadata keys removed)",
				filepath.Base(path), result.FileSize, len(removed)))
			for _, key := range removed {
				ui.Info(key)
			}
			return nil
		},
	}
	return cmd
}

func newBackupCmd() *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:   "backup <path>",
		Short: "Copy a file to the remote backup destination",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			dest := remote
			if dest == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				dest = cfg.RemoteDest()
			}

			uploader := backup.New()
			ui.Step(1, 2, fmt.Sprintf("Uploading %s to %s", filepath.Base(path), dest))
			result, err := uploader.Copy(ctx, path, dest)
			if err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Uploaded to %s", result.Remote))

			ui.Step(2, 2, "Minting share link")
			link, err := uploader.Link(ctx, result.Remote)
			if err != nil {
				ui.Warning(fmt.Sprintf("No share link: %v", err))
				return nil
			}
			ui.BlueText(link)
			return nil
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "Remote destination (default from config)")
	return cmd
}

func newRunDaemonCmd() *cobra.Command {
	var sweep bool
	cmd := &cobra.Command{
		Use:   "run-daemon",
		Short: "Run the watcher and API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			recorder, err := openRecorder(ctx, cfg)
			if err != nil {
				return err
			}
			defer recorder.Close()

			hub := streaming.NewHub()
			defer hub.Stop()

			scrubber := scrub.New()
			uploader := backup.New()
			pipe := pipeline.New(uploader, scrubber, recorder, cfg.OutputDir, cfg.RemoteDest())
			pipe.SetHub(hub)

			w, err := watcher.New(pipe, cfg.WatchDir, cfg.OutputDir, cfg.SettleDelay)
			if err != nil {
				return fmt.Errorf("watcher setup: %w", err)
			}
			defer w.Close()

			if sweep {
				count, err := w.Sweep(ctx)
				if err != nil {
					return fmt.Errorf("startup sweep: %w", err)
				}
				if count > 0 {
					ui.Info(fmt.Sprintf("Swept %d pre-existing files", count))
				}
			}

			if err := w.Start(); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Watching %s", cfg.WatchDir))

			srv := buildServer(cfg, scrubber, uploader, recorder, hub)
			return serve(ctx, cfg.Address, srv.Handler())
		},
	}
	cmd.Flags().BoolVar(&sweep, "sweep", false, "Process files already in the watch directory at startup")
	return cmd
}

func newRunAPICmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "run-api",
		Short: "Run the API server without the directory watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Address = addr
			}

			recorder, err := openRecorder(ctx, cfg)
			if err != nil {
				return err
			}
			defer recorder.Close()

			hub := streaming.NewHub()
			defer hub.Stop()

			srv := buildServer(cfg, scrub.New(), backup.New(), recorder, hub)
			return serve(ctx, cfg.Address, srv.Handler())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

// loadConfig loads .env when present, then the environment.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARN: Failed to load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func openRecorder(ctx context.Context, cfg *config.Config) (*audit.Recorder, error) {
	if !cfg.AuditEnabled {
		log.Printf("INFO: Audit logging disabled")
		return audit.Disabled(), nil
	}
	recorder, err := audit.Open(ctx, cfg.ProjectID, cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("audit setup: %w", err)
	}
	return recorder, nil
}

func buildServer(cfg *config.Config, scrubber *scrub.Scrubber, uploader *backup.Uploader, recorder *audit.Recorder, hub *streaming.Hub) *server.Server {
	api := handlers.NewAPI(handlers.Options{
		Scrubber:     scrubber,
		Uploader:     uploader,
		Auditor:      recorder,
		Hub:          hub,
		RemoteDest:   cfg.RemoteDest(),
		WatchDir:     cfg.WatchDir,
		OutputDir:    cfg.OutputDir,
		AuditEnabled: cfg.AuditEnabled,
		Version:      version,
	})
	return server.New(api)
}

// serve runs the HTTP server until ctx is cancelled, then shuts down with a
// short drain deadline.
func serve(ctx context.Context, addr string, handler http.Handler) error {
	httpServer := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("INFO: Listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("INFO: Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func hostport(addr string) string {
	if addr == "" {
		return "localhost:8000"
	}
	if addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
