package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"herobyte/internal/server"
)

func main() {
	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("server exited: %v", err)
	case sig := <-sigCh:
		log.Printf("received %s, archiving rooms", sig)
		srv.Shutdown()
	}
}
