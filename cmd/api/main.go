package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/Ronak501/Research-Agent/backend/internal/config"
	"github.com/Ronak501/Research-Agent/backend/internal/handler"
	"github.com/Ronak501/Research-Agent/backend/internal/logging"
	"github.com/Ronak501/Research-Agent/backend/internal/service/ai"
	"github.com/Ronak501/Research-Agent/backend/internal/service/chat"
	"github.com/Ronak501/Research-Agent/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", "err", err)
	}

	logger := logging.New(cfg.Log)
	log.SetDefault(logger)

	if envErr != nil {
		logger.Warn("failed to load .env file, continuing with system environment variables only", "err", envErr)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server error", "err", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	store, err := storage.Open(openCtx, cfg.Database)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Error("failed to close store", "err", err)
		}
	}()
	logger.Info("storage ready", "driver", cfg.Database.Driver)

	chatModel, err := ai.NewChatModel(ctx, cfg.AI)
	if err != nil {
		return err
	}
	aiService, err := ai.NewService(ctx, chatModel)
	if err != nil {
		return err
	}
	logger.Info("AI service initialized", "provider", cfg.AI.Provider)

	chatService := chat.NewService(store, aiService)
	router := handler.NewRouter(cfg.CORS.AllowedOrigins, chatService, logger.WithPrefix("http"))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("Research Agent backend listening", "addr", cfg.Server.Addr)
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
