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

// LinkSnake CLI
//
// Command-line interface for LinkSnake. Resolves file-hosting share links to
// their final download URLs and inspects past resolution runs.
//
// Usage:
//
//	linksnake <command> [flags]
//
// Commands:
//
//	resolve   Resolve a share link to its final download URL
//	history   List recorded resolution runs
//	profiles  List the configured site profiles
//	version   Show version information
package main

import (
	"fmt"
	"os"

	"github.com/agentberlin/linksnake/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "resolve":
		if err := runResolve(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "history":
		if err := runHistory(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "profiles":
		if err := runProfiles(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "-v", "--version":
		fmt.Printf("LinkSnake CLI %s\n", version.CurrentVersion)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`LinkSnake CLI - Share link resolver

Usage:
  linksnake <command> [flags]

Commands:
  resolve   Resolve a share link to its final download URL
  history   List recorded resolution runs
  profiles  List the configured site profiles
  version   Show version information
  help      Show this help message

Examples:
  # Resolve a share link with automatic profile selection
  linksnake resolve https://gdflix.example/file/abc123

  # Force a specific site profile
  linksnake resolve --profile hubcloud https://hubcloud.example/drive/xyz

  # Resolve with custom profiles and full trace output
  linksnake resolve --profiles ./profiles.yaml --logs https://gdflix.example/file/abc123

  # Show the last 20 recorded runs
  linksnake history --limit 20

Use "linksnake <command> --help" for more information about a command.`)
}
