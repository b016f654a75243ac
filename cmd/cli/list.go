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
	"flag"
	"fmt"
	"time"

	"github.com/agentberlin/linksnake/internal/store"
)

const timeRound = 10 * time.Millisecond

// runHistory handles the history command
func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum number of runs to show")
	url := fs.String("url", "", "Show only runs for this start URL")
	showLogs := fs.Bool("logs", false, "Print each run's full trace")
	fs.Usage = func() {
		fmt.Println(`Usage: linksnake history [flags]

Lists recorded resolution runs, newest first.

Flags:`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, err := store.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open history database: %v", err)
	}

	var rows []store.Resolution
	if *url != "" {
		rows, err = st.GetResolutionsForURL(*url)
	} else {
		rows, err = st.GetRecentResolutions(*limit)
	}
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No recorded resolutions.")
		return nil
	}

	for _, r := range rows {
		when := time.Unix(r.CreatedAt, 0).Format("2006-01-02 15:04:05")
		outcome := "OK  "
		detail := r.FinalURL
		if !r.Success {
			outcome = "FAIL"
			detail = fmt.Sprintf("%s: %s", r.FailureKind, r.ErrorMessage)
		}
		fmt.Printf("%5d  %s  %s  %-8s  %s\n       -> %s\n", r.ID, when, outcome, r.Profile, r.StartURL, detail)
		if *showLogs {
			for _, line := range r.GetLogs() {
				fmt.Printf("       | %s\n", line)
			}
		}
	}

	succeeded, failed, err := st.CountByOutcome()
	if err == nil {
		fmt.Printf("\n%d recorded in total: %d succeeded, %d failed\n", succeeded+failed, succeeded, failed)
	}
	return nil
}

// runProfiles handles the profiles command
func runProfiles(args []string) error {
	fs := flag.NewFlagSet("profiles", flag.ExitOnError)
	profilesPath := fs.String("profiles", "", "Path to a YAML site profiles file")
	fs.Usage = func() {
		fmt.Println(`Usage: linksnake profiles [flags]

Lists the configured site profiles and their host globs.

Flags:`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	registry, err := loadRegistry(*profilesPath)
	if err != nil {
		return fmt.Errorf("failed to load site profiles: %v", err)
	}

	for _, name := range registry.Names() {
		p := registry.Get(name)
		fmt.Printf("%-12s hosts=%v rules=%d max_hops=%d generation_timeout=%s\n",
			p.Name, p.HostGlobs, len(p.Rules), p.MaxHops, p.GenerationTimeout.Std())
	}
	return nil
}
