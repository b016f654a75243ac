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
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentberlin/linksnake"
	"github.com/agentberlin/linksnake/internal/store"
)

func testRegistry(t *testing.T) *linksnake.Registry {
	t.Helper()
	registry, err := linksnake.NewRegistry(&linksnake.SiteProfile{
		Name:      "testhost",
		HostGlobs: []string{"127.0.0.1", "localhost"},
		Rules: []*linksnake.CandidateRule{
			{Name: "download", TextPattern: `download`, Action: linksnake.DirectLink},
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry() failed: %v", err)
	}
	return registry
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	st, err := store.NewStoreForTesting(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	a := NewApp(st, testRegistry(t))
	ctx, cancel := context.WithCancel(context.Background())
	a.Startup(ctx)
	t.Cleanup(func() {
		a.Shutdown()
		cancel()
	})
	return a
}

func TestResolve_DirectLink(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="/files/movie.mkv">Download Now</a></body></html>`))
	}))
	defer ts.Close()

	a := newTestApp(t)

	result, err := a.Resolve(context.Background(), ts.URL+"/file/abc", "")
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("Resolve() failed resolution: %s (%s)", result.ErrorMessage, result.Kind)
	}
	if !strings.HasSuffix(result.FinalURL, "/files/movie.mkv") {
		t.Errorf("FinalURL = %q, want .../files/movie.mkv", result.FinalURL)
	}

	// The run must be recorded in history.
	recent, err := a.GetRecentResolutions(10)
	if err != nil {
		t.Fatalf("GetRecentResolutions() failed: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 recorded resolution, got %d", len(recent))
	}
	if !recent[0].Success || recent[0].Profile != "testhost" {
		t.Errorf("recorded resolution = %+v, want success via profile testhost", recent[0])
	}
	if len(recent[0].GetLogs()) == 0 {
		t.Error("recorded resolution has no logs")
	}
}

func TestResolve_FailureIsRecorded(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>nothing to click</p></body></html>`))
	}))
	defer ts.Close()

	a := newTestApp(t)

	result, err := a.Resolve(context.Background(), ts.URL+"/file/abc", "testhost")
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if result.Success {
		t.Fatal("Resolve() succeeded on a page with no candidates")
	}
	if result.Kind != linksnake.FailureNoSupportedOption {
		t.Errorf("Kind = %q, want %q", result.Kind, linksnake.FailureNoSupportedOption)
	}

	recent, err := a.GetRecentResolutions(10)
	if err != nil {
		t.Fatalf("GetRecentResolutions() failed: %v", err)
	}
	if len(recent) != 1 || recent[0].Success {
		t.Errorf("expected 1 recorded failure, got %+v", recent)
	}
}

func TestResolve_ProfileSelection(t *testing.T) {
	a := newTestApp(t)

	t.Run("UnknownProfile_ReturnsError", func(t *testing.T) {
		_, err := a.Resolve(context.Background(), "http://127.0.0.1/file/x", "nope")
		if err == nil || !strings.Contains(err.Error(), "unknown profile") {
			t.Errorf("expected unknown profile error, got %v", err)
		}
	})

	t.Run("UnmatchedHost_ReturnsError", func(t *testing.T) {
		_, err := a.Resolve(context.Background(), "https://elsewhere.example/file/x", "")
		if err == nil || !strings.Contains(err.Error(), "no profile matches") {
			t.Errorf("expected no-profile error, got %v", err)
		}
	})

	t.Run("InvalidURL_ReturnsError", func(t *testing.T) {
		_, err := a.Resolve(context.Background(), "ftp://example.com/x", "")
		if err == nil {
			t.Error("expected error for non-http URL, got nil")
		}
	})
}

func TestStartSelfPing(t *testing.T) {
	t.Run("DisabledWithoutEnv", func(t *testing.T) {
		t.Setenv("SELF_PING_URL", "")
		if StartSelfPing(context.Background()) {
			t.Error("self-ping should be disabled when SELF_PING_URL is unset")
		}
	})

	t.Run("EnabledWithEnv", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		t.Setenv("SELF_PING_URL", "http://127.0.0.1:9/ping")
		if !StartSelfPing(ctx) {
			t.Error("self-ping should start when SELF_PING_URL is set")
		}
	})
}

func TestGetProfileNames(t *testing.T) {
	a := newTestApp(t)
	names := a.GetProfileNames()
	if len(names) != 1 || names[0] != "testhost" {
		t.Errorf("GetProfileNames() = %v, want [testhost]", names)
	}
}
