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

package linksnake

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	f, err := NewFetcher(&FetcherOptions{UserAgent: "test"})
	if err != nil {
		t.Fatalf("NewFetcher failed: %v", err)
	}
	return f
}

func TestFetcherManualRedirectChain(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/redirect-1", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/redirect-2", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/redirect-2", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>Final</body></html>"))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	f := newTestFetcher(t)
	page, err := f.Get(context.Background(), server.URL+"/redirect-1", nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if page.FinalURL.Path != "/final" {
		t.Errorf("Expected final URL to be /final, got %s", page.FinalURL.Path)
	}
	if len(page.RedirectChain) != 2 {
		t.Fatalf("Expected RedirectChain to have 2 entries, got %d", len(page.RedirectChain))
	}
	if page.RedirectChain[0].StatusCode != 301 {
		t.Errorf("Expected first redirect to have status 301, got %d", page.RedirectChain[0].StatusCode)
	}
	if page.RedirectChain[0].URL != server.URL+"/redirect-1" {
		t.Errorf("Expected first redirect URL to be /redirect-1, got %s", page.RedirectChain[0].URL)
	}
	if page.RedirectChain[1].StatusCode != 302 {
		t.Errorf("Expected second redirect to have status 302, got %d", page.RedirectChain[1].StatusCode)
	}
}

func TestFetcherRedirectMethodHandling(t *testing.T) {
	var finalMethod, finalBody string

	mux := http.NewServeMux()
	mux.HandleFunc("/see-other", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/landing", http.StatusSeeOther)
	})
	mux.HandleFunc("/temporary", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/landing", http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("/landing", func(w http.ResponseWriter, r *http.Request) {
		finalMethod = r.Method
		r.ParseForm()
		finalBody = r.PostForm.Encode()
		w.Write([]byte("ok"))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	f := newTestFetcher(t)

	t.Run("303DemotesPostToGet", func(t *testing.T) {
		_, err := f.Post(context.Background(), server.URL+"/see-other", map[string]string{"a": "1"}, nil)
		if err != nil {
			t.Fatalf("Post failed: %v", err)
		}
		if finalMethod != "GET" {
			t.Errorf("Expected 303 to demote POST to GET, got %s", finalMethod)
		}
	})

	t.Run("307PreservesPostAndBody", func(t *testing.T) {
		_, err := f.Post(context.Background(), server.URL+"/temporary", map[string]string{"a": "1"}, nil)
		if err != nil {
			t.Fatalf("Post failed: %v", err)
		}
		if finalMethod != "POST" {
			t.Errorf("Expected 307 to preserve POST, got %s", finalMethod)
		}
		if finalBody != "a=1" {
			t.Errorf("Expected 307 to replay form body, got %q", finalBody)
		}
	})
}

func TestFetcherDropsAuthorizationAcrossHosts(t *testing.T) {
	var crossHostAuth string
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		crossHostAuth = r.Header.Get("Authorization")
		w.Write([]byte("ok"))
	}))
	defer other.Close()

	// The two servers listen on different ports, so the redirect target is a
	// different host:port and the header must be scrubbed.
	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, other.URL, http.StatusFound)
	}))
	defer first.Close()

	f := newTestFetcher(t)
	headers := http.Header{}
	headers.Set("Authorization", "Bearer secret")
	_, err := f.Get(context.Background(), first.URL, &RequestContext{Headers: headers})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if crossHostAuth != "" {
		t.Errorf("Authorization header leaked across hosts: %q", crossHostAuth)
	}
}

func TestFetcherRedirectLoop(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := newTestFetcher(t)
	_, err := f.Get(context.Background(), server.URL+"/loop", nil)
	if err == nil {
		t.Fatal("Expected error for redirect loop, got nil")
	}
}

func TestFetcherNonOKBodyReturned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("<html><body>gone</body></html>"))
	}))
	defer server.Close()

	f := newTestFetcher(t)
	page, err := f.Get(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if page.OK() {
		t.Error("404 page should not report OK")
	}
	if len(page.Body) == 0 {
		t.Error("error page body should still be returned")
	}
}

func TestFetcherHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	f, err := NewFetcher(&FetcherOptions{
		UserAgent:      "snake/1.0",
		DefaultHeaders: map[string]string{"Accept-Language": "en-US"},
	})
	if err != nil {
		t.Fatalf("NewFetcher failed: %v", err)
	}

	rc := &RequestContext{Referer: "https://previous.example/page"}
	rc.Headers = http.Header{}
	rc.Headers.Set("X-Custom", "yes")

	if _, err := f.Get(context.Background(), server.URL, rc); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.Get("User-Agent") != "snake/1.0" {
		t.Errorf("User-Agent = %q", got.Get("User-Agent"))
	}
	if got.Get("Accept-Language") != "en-US" {
		t.Errorf("Accept-Language = %q", got.Get("Accept-Language"))
	}
	if got.Get("Referer") != "https://previous.example/page" {
		t.Errorf("Referer = %q", got.Get("Referer"))
	}
	if got.Get("X-Custom") != "yes" {
		t.Errorf("X-Custom = %q", got.Get("X-Custom"))
	}
}

func TestFetcherCookiesPersistAcrossRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/set", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
		w.Write([]byte("ok"))
	})
	var cookie string
	mux.HandleFunc("/check", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil {
			cookie = c.Value
		}
		w.Write([]byte("ok"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := newTestFetcher(t)
	if _, err := f.Get(context.Background(), server.URL+"/set", nil); err != nil {
		t.Fatalf("Get /set failed: %v", err)
	}
	if _, err := f.Get(context.Background(), server.URL+"/check", nil); err != nil {
		t.Fatalf("Get /check failed: %v", err)
	}
	if cookie != "abc" {
		t.Errorf("cookie not presented on second request, got %q", cookie)
	}
}

func TestLimitRule(t *testing.T) {
	t.Run("NoPattern_ReturnsError", func(t *testing.T) {
		rule := &LimitRule{Parallelism: 1}
		if err := rule.Init(); err != ErrNoPattern {
			t.Errorf("Init() = %v, want ErrNoPattern", err)
		}
	})

	t.Run("GlobMatch", func(t *testing.T) {
		rule := &LimitRule{DomainGlob: "*.gdflix.*", Parallelism: 2}
		if err := rule.Init(); err != nil {
			t.Fatalf("Init() failed: %v", err)
		}
		if !rule.Match("www.gdflix.dev") {
			t.Error("glob should match www.gdflix.dev")
		}
		if rule.Match("example.com") {
			t.Error("glob should not match example.com")
		}
	})
}
