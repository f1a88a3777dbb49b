package main

import (
	"context"
	"gttbot/internal/config"
	"gttbot/internal/engine"
	"gttbot/internal/exchange/upstox"
	"gttbot/internal/logger"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logger.New(logger.Config{
		Level:      cfg.Runtime.Log.Level,
		Format:     cfg.Runtime.Log.Format,
		Output:     cfg.Runtime.Log.File,
		MaxSize:    cfg.Runtime.Log.MaxSize,
		MaxBackups: cfg.Runtime.Log.MaxBackups,
		MaxAge:     cfg.Runtime.Log.MaxAge,
		Compress:   cfg.Runtime.Log.Compress,
	})

	logger.Info("Бот запущен.")

	client := upstox.New(cfg.Exchange.BaseUrl, cfg.Exchange.PortfolioURL, cfg.Exchange.AccessToken, logger)
	defer client.Close()

	eng, err := engine.New(cfg, client, logger)
	if err != nil {
		logger.WithError(err).Fatal("Некорректная конфигурация стратегии.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := eng.Start(ctx); err != nil {
			logger.WithError(err).Fatal("Стратегия завершилась с ошибкой.")
		}
	}()

	select {
	case <-sigCh:
		cancel()
		<-done
	case <-done:
	}

	logger.Info("Бот остановлен.")
}
