package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reel/internal/config"
	"reel/internal/daemon"
	"reel/internal/encoding"
	"reel/internal/logging"
	"reel/internal/media"
	"reel/internal/preflight"
	"reel/internal/queue"
	"reel/internal/storage"
	"reel/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if failed := preflight.Failed(preflight.Run(cfg)); len(failed) > 0 {
		for _, check := range failed {
			logger.Error("preflight check failed",
				logging.String("check", check.Name),
				logging.String("detail", check.Detail))
		}
		os.Exit(1)
	}

	db, err := storage.Open(cfg)
	if err != nil {
		logger.Error("open database", logging.Error(err))
		os.Exit(1)
	}

	jobs := queue.NewStore(db)
	assets := media.NewStore(db)
	invoker := encoding.NewCLI(
		encoding.WithBinary(cfg.EncoderBinary()),
		encoding.WithMaxWidth(cfg.Encoder.MaxWidth),
		encoding.WithTimeout(time.Duration(cfg.Encoder.EncodeTimeout)*time.Second),
	)
	manager := workflow.NewManager(cfg, db, jobs, assets, invoker, logger)

	d, err := daemon.New(cfg, db, jobs, assets, manager, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = db.Close()
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("reeld shutting down")
}
