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
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestProfileCompileDefaults(t *testing.T) {
	p := &SiteProfile{
		Name:      "minimal",
		HostGlobs: []string{"minimal.*"},
		Rules: []*CandidateRule{
			{Name: "dl", TextPattern: "download", Action: DirectLink},
		},
	}
	if err := p.Compile(); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if p.MaxHops != 5 {
		t.Errorf("MaxHops default = %d, want 5", p.MaxHops)
	}
	if p.PollInterval.Std() != 5*time.Second {
		t.Errorf("PollInterval default = %s, want 5s", p.PollInterval.Std())
	}
	if p.GenerationTimeout.Std() != 40*time.Second {
		t.Errorf("GenerationTimeout default = %s, want 40s", p.GenerationTimeout.Std())
	}
	if p.RequestTimeout.Std() != 30*time.Second {
		t.Errorf("RequestTimeout default = %s, want 30s", p.RequestTimeout.Std())
	}
}

func TestProfileCompileRejections(t *testing.T) {
	tests := []struct {
		name    string
		profile *SiteProfile
	}{
		{"NoName", &SiteProfile{Rules: []*CandidateRule{{Name: "x", TextPattern: "x", Action: DirectLink}}}},
		{"NoRules", &SiteProfile{Name: "p"}},
		{"RuleWithoutPattern", &SiteProfile{Name: "p", Rules: []*CandidateRule{{Name: "x", Action: DirectLink}}}},
		{"RuleWithBadAction", &SiteProfile{Name: "p", Rules: []*CandidateRule{{Name: "x", TextPattern: "x", Action: "teleport"}}}},
		{"RuleWithBadRegexp", &SiteProfile{Name: "p", Rules: []*CandidateRule{{Name: "x", TextPattern: "([", Action: DirectLink}}}},
		{"BadHostGlob", &SiteProfile{Name: "p", HostGlobs: []string{"[!"}, Rules: []*CandidateRule{{Name: "x", TextPattern: "x", Action: DirectLink}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.profile.Compile(); err == nil {
				t.Error("Compile should have failed")
			}
		})
	}
}

func TestProfileMatchHost(t *testing.T) {
	p := &SiteProfile{
		Name:      "gdflix",
		HostGlobs: []string{"gdflix.*", "*.gdflix.*"},
		Rules:     []*CandidateRule{{Name: "x", TextPattern: "x", Action: DirectLink}},
	}
	if err := p.Compile(); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	for host, want := range map[string]bool{
		"gdflix.dev":     true,
		"www.gdflix.net": true,
		"GDFLIX.DEV":     true,
		"hubcloud.one":   false,
	} {
		if got := p.MatchHost(host); got != want {
			t.Errorf("MatchHost(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestProfileLooksFinal(t *testing.T) {
	p := &SiteProfile{
		Name:                "hints",
		HostGlobs:           []string{"hints.*"},
		Rules:               []*CandidateRule{{Name: "x", TextPattern: "x", Action: DirectLink}},
		FinalLinkHints:      []string{"r2.dev", "/dl/"},
		IntermediateDomains: []string{"gamerxyt.com"},
	}
	if err := p.Compile(); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	for raw, want := range map[string]bool{
		"https://pub-xyz.r2.dev/file.mkv":      true,
		"https://mirror.example/dl/file.mkv":   true,
		"https://mirror.example/page":          false,
		"https://gamerxyt.com/dl/file.mkv":     false,
		"https://sub.gamerxyt.com/dl/file.mkv": false,
	} {
		u, err := ParseAbsoluteURL(raw)
		if err != nil {
			t.Fatalf("ParseAbsoluteURL(%q) failed: %v", raw, err)
		}
		if got := p.looksFinal(u); got != want {
			t.Errorf("looksFinal(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestRegistry(t *testing.T) {
	registry, err := NewRegistry(DefaultProfiles()...)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	t.Run("GetByName", func(t *testing.T) {
		if registry.Get("gdflix") == nil {
			t.Error("gdflix profile missing")
		}
		if registry.Get("nope") != nil {
			t.Error("unknown name should return nil")
		}
	})

	t.Run("ForURL", func(t *testing.T) {
		u, _ := ParseAbsoluteURL("https://new.gdflix.dev/file/abc")
		p := registry.ForURL(u)
		if p == nil || p.Name != "gdflix" {
			t.Errorf("ForURL picked %v, want gdflix", p)
		}
		u2, _ := ParseAbsoluteURL("https://hubcloud.one/drive/xyz")
		p2 := registry.ForURL(u2)
		if p2 == nil || p2.Name != "hubcloud" {
			t.Errorf("ForURL picked %v, want hubcloud", p2)
		}
	})

	t.Run("Names", func(t *testing.T) {
		names := registry.Names()
		if len(names) != 2 || names[0] != "gdflix" || names[1] != "hubcloud" {
			t.Errorf("Names() = %v", names)
		}
	})
}

func TestLoadProfiles(t *testing.T) {
	yaml := `profiles:
  - name: example
    host_globs: ["example.*"]
    max_hops: 3
    poll_interval: 2s
    generation_timeout: 20s
    rules:
      - name: direct
        text_pattern: "download now"
        action: direct
    intermediate_rules:
      - name: resume
        text_pattern: "resume"
        action: direct
`
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	registry, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles failed: %v", err)
	}
	p := registry.Get("example")
	if p == nil {
		t.Fatal("example profile missing")
	}
	if p.MaxHops != 3 {
		t.Errorf("MaxHops = %d, want 3", p.MaxHops)
	}
	if p.PollInterval.Std() != 2*time.Second {
		t.Errorf("PollInterval = %s, want 2s", p.PollInterval.Std())
	}
	if len(p.IntermediateRules) != 1 {
		t.Errorf("IntermediateRules = %d, want 1", len(p.IntermediateRules))
	}
}

func TestLoadProfiles_Errors(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		if _, err := LoadProfiles(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("EmptyProfiles", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.yaml")
		if err := os.WriteFile(path, []byte("profiles: []\n"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if _, err := LoadProfiles(path); err == nil {
			t.Error("expected error for empty profiles list")
		}
	})
}
