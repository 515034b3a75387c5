package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagecouncil/council/cmd/council/internal/config"
	"github.com/sagecouncil/council/pkg/council"
	"github.com/sagecouncil/council/pkg/gateway"
	"github.com/sagecouncil/council/pkg/gen"
	"github.com/sagecouncil/council/pkg/kv"
	"github.com/sagecouncil/council/pkg/ledger"
	"github.com/sagecouncil/council/pkg/sage"
	"github.com/sagecouncil/council/pkg/store"
)

var (
	serveAddr string
	serveData string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the council gateway",
	Long: `Run the websocket and HTTP gateway.

The generation backend is selected by the "provider" config key (gemini or
openai) and needs the matching API key, from config.yaml or the environment
(GEMINI_API_KEY / OPENAI_API_KEY). Without a data directory all sessions
and credits live in memory and vanish on restart.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveData, "data", "", "data directory (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	if serveData != "" {
		cfg.DataDir = serveData
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	key, err := cfg.APIKey()
	if err != nil {
		return err
	}
	var client gen.Client
	switch cfg.Provider {
	case config.ProviderGemini:
		client, err = gen.NewGeminiClient(ctx, key, cfg.Model)
	case config.ProviderOpenAI:
		client, err = gen.NewOpenAIClient(key, cfg.Model)
	default:
		return fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return fmt.Errorf("init %s client: %w", cfg.Provider, err)
	}

	var db kv.Store
	if cfg.DataDir != "" {
		db, err = kv.NewBadger(kv.BadgerOptions{Dir: cfg.DataDir})
		if err != nil {
			return fmt.Errorf("open data dir %s: %w", cfg.DataDir, err)
		}
	} else {
		slog.Warn("no data_dir configured, sessions are in-memory only")
		db = kv.NewMemory()
	}
	defer db.Close()

	st := store.New(db)
	l := ledger.New(st)
	o := council.New(client, l, st)
	if cfg.Catalogue != "" {
		reg, err := sage.Load(cfg.Catalogue)
		if err != nil {
			return err
		}
		o.Registry = reg
	}
	g := gateway.New(o, st, l)
	g.InitialCredits = cfg.InitialCredits

	srv := &http.Server{Addr: cfg.Addr, Handler: g.Handler()}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("council gateway listening",
			"addr", cfg.Addr, "provider", cfg.Provider, "sages", o.Registry.Len())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
