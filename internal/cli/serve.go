package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SatoshiJr1/liveshop-link-sub003/internal/api"
	"github.com/SatoshiJr1/liveshop-link-sub003/internal/app/broadcast"
	"github.com/SatoshiJr1/liveshop-link-sub003/internal/app/ledger"
	"github.com/SatoshiJr1/liveshop-link-sub003/internal/daemon"
	"github.com/SatoshiJr1/liveshop-link-sub003/internal/infra/auth"
	"github.com/SatoshiJr1/liveshop-link-sub003/internal/infra/sqlite"
	"github.com/SatoshiJr1/liveshop-link-sub003/internal/infra/ws"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the realtime server",
	Long: `Start the HTTP + websocket server: seller connections, event fan-out,
the credit ledger surface, and the background notification retry sweep.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := daemon.Load(cfgPath)
	if err != nil {
		return err
	}
	if cfg.Auth.Secret == "" {
		cfg.Auth.Secret = os.Getenv("LIVESHOP_AUTH_SECRET")
	}
	if cfg.Auth.Secret == "" {
		return fmt.Errorf("auth secret required: set [auth].secret or LIVESHOP_AUTH_SECRET")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	db, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens := auth.New(cfg.Auth.Secret, daemon.ParseDuration(cfg.Auth.TokenTTL, 24*time.Hour))

	registry := ws.NewRegistry(ws.Config{
		HandshakeTimeout:  daemon.ParseDuration(cfg.WS.HandshakeTimeout, 10*time.Second),
		HeartbeatInterval: daemon.ParseDuration(cfg.WS.HeartbeatInterval, 30*time.Second),
		PongTimeout:       daemon.ParseDuration(cfg.WS.PongTimeout, 75*time.Second),
		WriteTimeout:      daemon.ParseDuration(cfg.WS.WriteTimeout, 10*time.Second),
	}, tokens)
	defer registry.Close()

	// Optional cross-instance broker. A connect failure degrades to
	// single-instance fan-out — warning, not fatal.
	broker := broadcast.ConnectBroker(ctx, broadcast.NewLocalBroker())

	bc := broadcast.New(broadcast.Config{MaxRetries: cfg.Retry.MaxRetries}, registry, db, broker)
	sweeper := broadcast.NewSweeper(broadcast.SweeperConfig{
		Interval: daemon.ParseDuration(cfg.Retry.SweepInterval, 30*time.Second),
	}, registry, db)
	bc.OnStored(sweeper.SweepSeller)
	registry.OnAuthenticated(sweeper.SweepSeller)
	go sweeper.Run(ctx)

	lg := ledger.New(db, cfg.Credits.Costs)

	server := api.NewServer(registry, lg, db, cfg.Credits)
	if cfg.API.EnableMetrics {
		server.EnableMetrics()
	}

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	httpSrv := &http.Server{Addr: addr, Handler: server.Handler()}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutCtx)
	}()

	log.Printf("[serve] listening on %s", addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Printf("[serve] shut down")
	return nil
}

// ─── token ──────────────────────────────────────────────────────────────────

var tokenCmd = &cobra.Command{
	Use:   "token SELLER_ID",
	Short: "Mint a connection token for a seller",
	Long:  `Mint a signed websocket connection token for the given seller ID.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := daemon.Load(cfgPath)
		if err != nil {
			return err
		}
		if cfg.Auth.Secret == "" {
			cfg.Auth.Secret = os.Getenv("LIVESHOP_AUTH_SECRET")
		}
		if cfg.Auth.Secret == "" {
			return fmt.Errorf("auth secret required: set [auth].secret or LIVESHOP_AUTH_SECRET")
		}
		ttl, _ := cmd.Flags().GetDuration("ttl")

		token, err := auth.New(cfg.Auth.Secret, ttl).Sign(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, token)
		return nil
	},
}
