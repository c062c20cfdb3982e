package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"oferta/internal/config"
	imapconnector "oferta/internal/connectors/imap"
	"oferta/internal/listener"
	"oferta/internal/pipeline"
	"oferta/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	conn, err := imapconnector.NewConnector(cfg)
	must(err)

	svc := listener.NewService(db, cfg, pipeline.NewImportService(db, cfg), conn)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
