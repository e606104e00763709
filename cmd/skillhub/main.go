// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/wishub-ai/skillhub/pkg/bootstrap"
	"github.com/wishub-ai/skillhub/pkg/logger/log"
)

func main() {
	server, err := bootstrap.NewServer()
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		received := <-sig
		log.Infof("Received %s, shutting down", received)
		if err := server.Stop(); err != nil {
			log.Warnf("Shutdown did not complete cleanly: %v", err)
		}
	}()

	if err := server.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server exited: %v", err)
	}
}
