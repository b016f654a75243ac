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

import "testing"

func TestParseAbsoluteURL(t *testing.T) {
	t.Run("NormalizesLikeABrowser", func(t *testing.T) {
		u, err := ParseAbsoluteURL("HTTP://Example.COM/path/../file")
		if err != nil {
			t.Fatalf("ParseAbsoluteURL failed: %v", err)
		}
		if u.Scheme != "http" || u.Host != "example.com" || u.Path != "/file" {
			t.Errorf("got %s, want http://example.com/file", u)
		}
	})

	t.Run("RejectsNonHTTPSchemes", func(t *testing.T) {
		for _, raw := range []string{"ftp://example.com/x", "javascript:alert(1)", "file:///etc/passwd"} {
			if _, err := ParseAbsoluteURL(raw); err == nil {
				t.Errorf("ParseAbsoluteURL(%q) should fail", raw)
			}
		}
	})

	t.Run("RejectsRelative", func(t *testing.T) {
		if _, err := ParseAbsoluteURL("/just/a/path"); err == nil {
			t.Error("relative reference should fail")
		}
	})
}

func TestResolveRef(t *testing.T) {
	base, err := ParseAbsoluteURL("https://host.example/dir/page.html")
	if err != nil {
		t.Fatalf("ParseAbsoluteURL failed: %v", err)
	}

	tests := []struct {
		ref  string
		want string
	}{
		{"other.html", "https://host.example/dir/other.html"},
		{"/root.html", "https://host.example/root.html"},
		{"//cdn.example/file.bin", "https://cdn.example/file.bin"},
		{"https://abs.example/x", "https://abs.example/x"},
		{"  ../up.html  ", "https://host.example/up.html"},
	}
	for _, tt := range tests {
		got, err := ResolveRef(base, tt.ref)
		if err != nil {
			t.Errorf("ResolveRef(%q) failed: %v", tt.ref, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ResolveRef(%q) = %s, want %s", tt.ref, got, tt.want)
		}
	}
}

func TestSameIgnoringFragment(t *testing.T) {
	a, _ := ParseAbsoluteURL("https://host.example/page#section")
	b, _ := ParseAbsoluteURL("https://host.example/page")
	c, _ := ParseAbsoluteURL("https://host.example/other")

	if !SameIgnoringFragment(a, b) {
		t.Error("same URL modulo fragment should match")
	}
	if SameIgnoringFragment(a, c) {
		t.Error("different paths should not match")
	}
	if SameIgnoringFragment(nil, b) {
		t.Error("nil should never match")
	}
}

func TestSuggestedFilename(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example/files/Movie.2023.1080p.mkv", "movie-2023-1080p.mkv"},
		{"https://cdn.example/dl/report%202024.pdf", "report-2024.pdf"},
		{"https://cdn.example/plain", "plain"},
		{"https://cdn.example/", ""},
	}
	for _, tt := range tests {
		u, err := ParseAbsoluteURL(tt.url)
		if err != nil {
			t.Fatalf("ParseAbsoluteURL(%q) failed: %v", tt.url, err)
		}
		if got := SuggestedFilename(u); got != tt.want {
			t.Errorf("SuggestedFilename(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestNormalizeSpace(t *testing.T) {
	if got := normalizeSpace("  Fast \n\t Cloud   Download "); got != "Fast Cloud Download" {
		t.Errorf("normalizeSpace = %q", got)
	}
}
