// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// LinkSnake HTTP Server
//
// This is the production HTTP server for LinkSnake, providing a REST API
// that resolves file-hosting share links to their final download URLs.
//
// Usage:
//
//	linksnake-server [flags]
//
// Flags:
//
//	-host string       Host to bind the server to (default "0.0.0.0")
//	-port int          Port to run the server on (default 8080, or $PORT)
//	-profiles string   Path to a YAML site profiles file (built-ins when empty)
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/agentberlin/linksnake"
	"github.com/agentberlin/linksnake/internal/app"
	"github.com/agentberlin/linksnake/internal/server"
	"github.com/agentberlin/linksnake/internal/store"
	"github.com/agentberlin/linksnake/internal/version"
)

func main() {
	port := flag.Int("port", defaultPort(), "Port to run the HTTP server on")
	host := flag.String("host", "0.0.0.0", "Host to bind the HTTP server to")
	profilesPath := flag.String("profiles", "", "Path to a YAML site profiles file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("LinkSnake Server %s\n", version.CurrentVersion)
		os.Exit(0)
	}

	registry, err := loadRegistry(*profilesPath)
	if err != nil {
		log.Fatalf("Failed to load site profiles: %v", err)
	}

	st, err := store.NewStore()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	coreApp := app.NewApp(st, registry)
	coreApp.Startup(appCtx)
	defer coreApp.Shutdown()

	// Keeps free-tier hosts awake; no-op unless SELF_PING_URL is set.
	app.StartSelfPing(appCtx)

	srv := server.NewServer(coreApp)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
		// Resolutions legitimately run for the full generation deadline, so
		// the write timeout must comfortably exceed it.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("LinkSnake Server %s starting on %s", version.CurrentVersion, addr)
		log.Printf("Profiles: %v", registry.Names())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}

// defaultPort honors the PORT environment variable PaaS platforms inject.
func defaultPort() int {
	if raw := os.Getenv("PORT"); raw != "" {
		if p, err := strconv.Atoi(raw); err == nil && p > 0 {
			return p
		}
	}
	return 8080
}

func loadRegistry(path string) (*linksnake.Registry, error) {
	if path == "" {
		return linksnake.NewRegistry(linksnake.DefaultProfiles()...)
	}
	return linksnake.LoadProfiles(path)
}
