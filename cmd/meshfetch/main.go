package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/OCharnyshevich/amr-mesh/internal/config"
)

func main() {
	var (
		src = flag.String("src", "", "go-getter address of the config bundle")
		out = flag.String("o", "./data/bundle", "output dir path")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if *src == "" || *out == "" {
		log.Error("both -src and -o are required")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := os.RemoveAll(*out); err != nil {
		log.Error("clear output", "path", *out, "error", err)
		os.Exit(1)
	}

	log.Info("start downloading bundle", "src", *src, "dst", *out)
	if err := config.Fetch(ctx, *src, *out); err != nil {
		log.Error("download failed", "error", err)
		os.Exit(1)
	}
	log.Info("done downloading bundle", "dst", *out)
}
