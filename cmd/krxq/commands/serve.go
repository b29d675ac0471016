package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/krxquery/internal/api"
	"github.com/wonny/krxquery/internal/api/handlers"
)

var (
	servePort string
	serveSync bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 시작",
	Long: `조회 REST API 서버를 시작합니다.

Endpoints:
  GET  /health
  GET  /api/stocks/{ticker}/ohlcv?from&to&freq&adjusted
  GET  /api/stocks/{ticker}/cap?from&to&freq
  GET  /api/stocks/{ticker}/fundamental?from&to&freq
  GET  /api/markets/{market}/tickers?date
  GET  /api/price-change?from&to
  GET  /api/indices/{ticker}/ohlcv?from&to&freq

--sync 를 주면 sync.yaml 의 수집 작업도 같은 프로세스에서 실행합니다.

Example:
  go run ./cmd/krxq serve
  go run ./cmd/krxq serve --port 8080 --sync`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (default $PORT)")
	serveCmd.Flags().BoolVar(&serveSync, "sync", false, "run the sync scheduler alongside the API")
	serveCmd.Flags().StringVar(&syncConfigPath, "sync-config", "", "sync config file (default $SYNC_CONFIG or sync.yaml)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != "" {
		a.cfg.Port = servePort
	}

	if serveSync {
		sched, db, err := buildScheduler(ctx, a)
		if err != nil {
			return err
		}
		defer db.Close()
		sched.Start()
		defer sched.Stop()
	}

	router := api.NewRouter(handlers.NewQueryHandler(a.service, a.log), a.log)
	server := api.New(a.cfg, a.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	a.log.Info("Server stopped")
	return nil
}
