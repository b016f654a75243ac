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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentberlin/linksnake"
	"github.com/agentberlin/linksnake/internal/app"
	"github.com/agentberlin/linksnake/internal/store"
)

// runResolve handles the resolve command
func runResolve(args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	profileName := fs.String("profile", "", "Site profile to use (auto-selected by host when empty)")
	profilesPath := fs.String("profiles", "", "Path to a YAML site profiles file")
	showLogs := fs.Bool("logs", false, "Print the full resolution trace")
	asJSON := fs.Bool("json", false, "Print the full result as JSON")
	noHistory := fs.Bool("no-history", false, "Do not record this run in the history database")
	fs.Usage = func() {
		fmt.Println(`Usage: linksnake resolve [flags] <url>

Resolves a file-hosting share link to its final download URL.

Flags:`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("exactly one URL is required")
	}
	startURL := fs.Arg(0)

	registry, err := loadRegistry(*profilesPath)
	if err != nil {
		return fmt.Errorf("failed to load site profiles: %v", err)
	}

	var st *store.Store
	if !*noHistory {
		st, err = store.NewStore()
		if err != nil {
			return fmt.Errorf("failed to open history database: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	coreApp := app.NewApp(st, registry)
	coreApp.Startup(ctx)
	defer coreApp.Shutdown()

	result, err := coreApp.Resolve(ctx, startURL, *profileName)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
		if !result.Success {
			os.Exit(1)
		}
		return nil
	}

	if *showLogs {
		for _, line := range result.Logs {
			fmt.Println(line)
		}
		fmt.Println()
	}

	if !result.Success {
		return fmt.Errorf("%s (%s, %d hops, %s)", result.ErrorMessage, result.Kind, result.Hops, result.Duration.Round(timeRound))
	}

	fmt.Printf("Final URL:  %s\n", result.FinalURL)
	if result.SuggestedFilename != "" {
		fmt.Printf("Filename:   %s\n", result.SuggestedFilename)
	}
	fmt.Printf("Profile:    %s\n", result.Profile)
	fmt.Printf("Hops:       %d\n", result.Hops)
	fmt.Printf("Duration:   %s\n", result.Duration.Round(timeRound))
	return nil
}

func loadRegistry(path string) (*linksnake.Registry, error) {
	if path == "" {
		return linksnake.NewRegistry(linksnake.DefaultProfiles()...)
	}
	return linksnake.LoadProfiles(path)
}
