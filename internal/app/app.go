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

package app

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/agentberlin/linksnake"
	"github.com/agentberlin/linksnake/internal/store"
	"github.com/agentberlin/linksnake/internal/version"
)

// DefaultMaxWorkers bounds concurrent resolution runs. Each run can spend
// tens of seconds polling, so this is a session cap, not a throughput knob.
const DefaultMaxWorkers = 8

// App is the core application: it owns the profile registry, the resolution
// worker pool and the history store, and exposes the operations the HTTP
// server and CLI are thin wrappers over.
type App struct {
	ctx      context.Context
	store    *store.Store
	registry *linksnake.Registry
	pool     *linksnake.WorkerPool
}

// NewApp creates a new App instance with dependencies injected. A nil store
// disables history recording; resolutions still work.
func NewApp(st *store.Store, registry *linksnake.Registry) *App {
	return &App{
		store:    st,
		registry: registry,
	}
}

// Startup initializes the app with a context and starts the worker pool.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	a.pool = linksnake.NewWorkerPool(ctx, DefaultMaxWorkers, DefaultMaxWorkers*2)
}

// Shutdown drains the worker pool.
func (a *App) Shutdown() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// Resolve runs one resolution on the worker pool and blocks until it
// completes. profileName selects a profile explicitly; when empty the
// registry picks one by the start URL's host. The returned Result is always
// non-nil on a nil error, failures included; an error here means the request
// never ran (unknown profile, pool shut down).
func (a *App) Resolve(ctx context.Context, startURL, profileName string) (*linksnake.Result, error) {
	profile, err := a.profileFor(startURL, profileName)
	if err != nil {
		return nil, err
	}

	resolver, err := linksnake.NewResolver(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver: %v", err)
	}

	done := make(chan *linksnake.Result, 1)
	submitErr := a.pool.Submit(func() {
		done <- resolver.Resolve(ctx, startURL)
	})
	if submitErr != nil {
		return nil, fmt.Errorf("resolution not accepted: %v", submitErr)
	}

	var result *linksnake.Result
	select {
	case result = <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	a.recordResolution(result)
	return result, nil
}

func (a *App) profileFor(startURL, profileName string) (*linksnake.SiteProfile, error) {
	if profileName != "" {
		profile := a.registry.Get(profileName)
		if profile == nil {
			return nil, fmt.Errorf("unknown profile %q", profileName)
		}
		return profile, nil
	}
	u, err := linksnake.ParseAbsoluteURL(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %v", startURL, err)
	}
	profile := a.registry.ForURL(u)
	if profile == nil {
		return nil, fmt.Errorf("no profile matches host %q", u.Hostname())
	}
	return profile, nil
}

// recordResolution persists a completed run. History is best-effort; a
// storage error never fails the resolution that produced it.
func (a *App) recordResolution(result *linksnake.Result) {
	if a.store == nil {
		return
	}
	rec := &store.Resolution{
		StartURL:     result.StartURL,
		Profile:      result.Profile,
		Success:      result.Success,
		FinalURL:     result.FinalURL,
		FailureKind:  string(result.Kind),
		ErrorMessage: result.ErrorMessage,
		HopCount:     result.Hops,
		DurationMs:   result.Duration.Milliseconds(),
	}
	if result.LastBodyHash != 0 {
		rec.BodyHash = strconv.FormatUint(result.LastBodyHash, 10)
	}
	if err := rec.SetLogs(result.Logs); err != nil {
		log.Printf("failed to serialize resolution logs: %v", err)
	}
	if err := a.store.SaveResolution(rec); err != nil {
		log.Printf("failed to record resolution for %s: %v", result.StartURL, err)
	}
}

// GetRecentResolutions returns the newest recorded runs.
func (a *App) GetRecentResolutions(limit int) ([]store.Resolution, error) {
	if a.store == nil {
		return nil, nil
	}
	return a.store.GetRecentResolutions(limit)
}

// GetResolution returns a single recorded run by its ID.
func (a *App) GetResolution(id uint) (*store.Resolution, error) {
	if a.store == nil {
		return nil, fmt.Errorf("resolution %d not found", id)
	}
	return a.store.GetResolutionByID(id)
}

// GetProfileNames returns the registered profile names, sorted.
func (a *App) GetProfileNames() []string {
	return a.registry.Names()
}

// GetVersion returns the current version of the application
func (a *App) GetVersion() string {
	return version.CurrentVersion
}
