package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cagkan/chatty"
	"github.com/cagkan/chatty/config"
	"github.com/cagkan/chatty/llm"
	"github.com/cagkan/chatty/relay"
	"github.com/cagkan/chatty/slogger"
	"github.com/cagkan/chatty/store"
)

var (
	serveConfigFlag string
	serveWatchFlag  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat relay server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigFlag, "config", "c", "chatty.yaml", "Path to config file")
	serveCmd.Flags().BoolVar(&serveWatchFlag, "watch", false, "Reload upstream settings on config changes")
}

// swappableService lets a config reload replace the completion
// provider without restarting in-flight turns.
type swappableService struct {
	current atomic.Pointer[llm.Provider]
}

func (s *swappableService) Stream(ctx context.Context, messages []chatty.Message) (llm.StreamIterator, error) {
	return s.current.Load().Stream(ctx, messages)
}

func (s *swappableService) Generate(ctx context.Context, messages []chatty.Message) (string, error) {
	return s.current.Load().Generate(ctx, messages)
}

func buildProvider(cfg *config.Config) *llm.Provider {
	var opts []llm.Option
	if cfg.Upstream.Model != "" {
		opts = append(opts, llm.WithModel(cfg.Upstream.Model))
	}
	if cfg.Upstream.APIKey != "" {
		opts = append(opts, llm.WithAPIKey(cfg.Upstream.APIKey))
	}
	if cfg.Upstream.BaseURL != "" {
		opts = append(opts, llm.WithBaseURL(cfg.Upstream.BaseURL))
	}
	if cfg.Upstream.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(cfg.Upstream.MaxTokens))
	}
	if cfg.Upstream.SystemPrompt != "" {
		opts = append(opts, llm.WithSystemPrompt(cfg.Upstream.SystemPrompt))
	}
	return llm.New(opts...)
}

func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(serveConfigFlag); err != nil {
		if os.IsNotExist(err) {
			return config.Parse(nil)
		}
		return nil, err
	}
	return config.Load(serveConfigFlag)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slogger.New(slogger.ParseLevel(cfg.LogLevel))

	var chatStore chatty.ChatStore
	if cfg.Database.DSN != "" {
		gormStore, err := store.NewGormStore(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("error connecting to database: %w", err)
		}
		chatStore = gormStore
		logger.Info("using postgres store")
	} else {
		chatStore = store.NewMemoryStore()
		logger.Warn("using in-memory store, conversations will not survive restarts")
	}

	service := &swappableService{}
	service.current.Store(buildProvider(cfg))

	r := relay.New(relay.Options{
		Store:    chatStore,
		Provider: service,
		Logger:   logger,
	})
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           relay.NewRouter(r, cfg.JWTSecret, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serveWatchFlag {
		go func() {
			err := config.Watch(ctx, serveConfigFlag, logger, func(next *config.Config) {
				service.current.Store(buildProvider(next))
				logger.Info("upstream settings updated", "model", service.current.Load().ModelName())
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("config watch stopped", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"addr", cfg.Addr,
			"model", service.current.Load().ModelName())
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
