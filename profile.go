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
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// ActionKind declares how a matched candidate element is to be interpreted.
type ActionKind string

const (
	// DirectLink means the element's target is the final download URL.
	DirectLink ActionKind = "direct"
	// IntermediatePage means the element's target is another page to fetch
	// and analyze with the profile's intermediate rules.
	IntermediatePage ActionKind = "intermediate"
	// GenerateAndPoll means the element triggers an asynchronous server-side
	// generation POST, followed by polling until the link is ready.
	GenerateAndPoll ActionKind = "generate"
)

func (k ActionKind) valid() bool {
	switch k {
	case DirectLink, IntermediatePage, GenerateAndPoll:
		return true
	}
	return false
}

// CandidateRule declares one named pattern for recognizing a download option
// on a page. Rules are evaluated in declared order; the first rule with any
// matching element wins.
type CandidateRule struct {
	// Name identifies the rule in diagnostics.
	Name string `yaml:"name"`
	// TextPattern is matched (case-insensitive) against the whitespace-
	// normalized visible text of anchors and buttons.
	TextPattern string `yaml:"text_pattern,omitempty"`
	// IDHint, when set, matches an element by id attribute before any text
	// scan is attempted.
	IDHint string `yaml:"id_hint,omitempty"`
	// HrefPattern, when set, matches anchors by their href attribute.
	HrefPattern string `yaml:"href_pattern,omitempty"`
	// Action declares how a match is interpreted.
	Action ActionKind `yaml:"action"`

	textRe *regexp.Regexp
	hrefRe *regexp.Regexp
}

func (r *CandidateRule) compile() error {
	if r.Name == "" {
		return fmt.Errorf("candidate rule without a name")
	}
	if !r.Action.valid() {
		return fmt.Errorf("rule %q: unknown action %q", r.Name, r.Action)
	}
	if r.TextPattern == "" && r.IDHint == "" && r.HrefPattern == "" {
		return fmt.Errorf("rule %q: needs a text_pattern, id_hint or href_pattern", r.Name)
	}
	if r.TextPattern != "" {
		re, err := regexp.Compile("(?i)" + r.TextPattern)
		if err != nil {
			return fmt.Errorf("rule %q: text_pattern: %w", r.Name, err)
		}
		r.textRe = re
	}
	if r.HrefPattern != "" {
		re, err := regexp.Compile("(?i)" + r.HrefPattern)
		if err != nil {
			return fmt.Errorf("rule %q: href_pattern: %w", r.Name, err)
		}
		r.hrefRe = re
	}
	return nil
}

// Duration wraps time.Duration with YAML support for strings like "40s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// SiteProfile is the declarative, per-target-site configuration that
// parameterizes the resolution pipeline. Profiles are loaded at startup and
// shared read-only across concurrent resolutions; new site support is data,
// not new code paths.
type SiteProfile struct {
	Name string `yaml:"name"`
	// HostGlobs select this profile for a start URL by hostname, e.g.
	// "*.gdflix.*". Matching uses gobwas/glob.
	HostGlobs []string `yaml:"host_globs"`
	// Rules is the priority-ordered candidate list for the landed start page.
	Rules []*CandidateRule `yaml:"rules"`
	// IntermediateRules is the priority-ordered list applied to pages reached
	// through an IntermediatePage candidate.
	IntermediateRules []*CandidateRule `yaml:"intermediate_rules,omitempty"`
	// TerminalRules are the completion markers the generation poller looks
	// for. Deliberately not the full priority list: polling watches only for
	// the download-ready state.
	TerminalRules []*CandidateRule `yaml:"terminal_rules,omitempty"`

	// FinalLinkHints, when non-empty, require a DirectLink target URL to
	// contain one of these substrings before it is accepted as final.
	FinalLinkHints []string `yaml:"final_link_hints,omitempty"`
	// IntermediateDomains lists domains that are never final download hosts;
	// a DirectLink target on one of these is rejected.
	IntermediateDomains []string `yaml:"intermediate_domains,omitempty"`

	MaxHops           int      `yaml:"max_hops"`
	PollInterval      Duration `yaml:"poll_interval"`
	GenerationTimeout Duration `yaml:"generation_timeout"`
	RequestTimeout    Duration `yaml:"request_timeout"`

	// DefaultHeaders are sent on every request of a resolution run.
	DefaultHeaders map[string]string `yaml:"default_headers,omitempty"`
	// GenerateDefaults is the fixed supplementary payload merged under the
	// scraped form data of a generation POST; scraped values win. Shared
	// secrets (e.g. the gdflix "key") belong here, sourced from
	// configuration; their absence is expected, never an error.
	GenerateDefaults map[string]string `yaml:"generate_defaults,omitempty"`
	// GenerateTokenHeader, when set, names a header sent on generation POSTs
	// whose value is the target page's hostname (gdflix sends "x-token").
	GenerateTokenHeader string `yaml:"generate_token_header,omitempty"`
	// ScriptPayloadKeys lists form payload keys that, when missing from the
	// matched form's hidden inputs, are scavenged from inline script
	// snippets (hubcloud embeds op/id/rand in script, not inputs).
	ScriptPayloadKeys []string `yaml:"script_payload_keys,omitempty"`

	hostGlobs []glob.Glob
}

// Compile validates the profile and compiles its rule patterns and host
// globs. Must be called before the profile is used.
func (p *SiteProfile) Compile() error {
	if p.Name == "" {
		return fmt.Errorf("profile without a name")
	}
	if len(p.Rules) == 0 {
		return fmt.Errorf("profile %q: no rules", p.Name)
	}
	if p.MaxHops <= 0 {
		p.MaxHops = 5
	}
	if p.PollInterval <= 0 {
		p.PollInterval = Duration(5 * time.Second)
	}
	if p.GenerationTimeout <= 0 {
		p.GenerationTimeout = Duration(40 * time.Second)
	}
	if p.RequestTimeout <= 0 {
		p.RequestTimeout = Duration(30 * time.Second)
	}
	for _, rules := range [][]*CandidateRule{p.Rules, p.IntermediateRules, p.TerminalRules} {
		for _, r := range rules {
			if err := r.compile(); err != nil {
				return fmt.Errorf("profile %q: %w", p.Name, err)
			}
		}
	}
	p.hostGlobs = p.hostGlobs[:0]
	for _, g := range p.HostGlobs {
		compiled, err := glob.Compile(g)
		if err != nil {
			return fmt.Errorf("profile %q: host glob %q: %w", p.Name, g, err)
		}
		p.hostGlobs = append(p.hostGlobs, compiled)
	}
	return nil
}

// MatchHost reports whether this profile covers the given hostname.
func (p *SiteProfile) MatchHost(host string) bool {
	host = strings.ToLower(host)
	for _, g := range p.hostGlobs {
		if g.Match(host) {
			return true
		}
	}
	return false
}

// isIntermediateDomain reports whether the URL's host is on the profile's
// never-final denylist (exact match or subdomain).
func (p *SiteProfile) isIntermediateDomain(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	for _, d := range p.IntermediateDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// looksFinal applies the profile's final-link hints to a candidate URL.
// Profiles without hints accept any non-intermediate target.
func (p *SiteProfile) looksFinal(u *url.URL) bool {
	if p.isIntermediateDomain(u) {
		return false
	}
	if len(p.FinalLinkHints) == 0 {
		return true
	}
	s := u.String()
	for _, hint := range p.FinalLinkHints {
		if strings.Contains(s, hint) {
			return true
		}
	}
	return false
}

// Registry holds the compiled site profiles, shared read-only across all
// concurrent resolutions.
type Registry struct {
	profiles []*SiteProfile
}

// NewRegistry compiles the given profiles into a registry.
func NewRegistry(profiles ...*SiteProfile) (*Registry, error) {
	for _, p := range profiles {
		if err := p.Compile(); err != nil {
			return nil, err
		}
	}
	return &Registry{profiles: profiles}, nil
}

// Get returns the profile with the given name, or nil.
func (r *Registry) Get(name string) *SiteProfile {
	for _, p := range r.profiles {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// ForURL returns the first profile whose host globs match the URL's
// hostname, or nil when no profile covers it.
func (r *Registry) ForURL(u *url.URL) *SiteProfile {
	for _, p := range r.profiles {
		if p.MatchHost(u.Hostname()) {
			return p
		}
	}
	return nil
}

// Names returns the configured profile names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for _, p := range r.profiles {
		names = append(names, p.Name)
	}
	return names
}

type profilesFile struct {
	Profiles []*SiteProfile `yaml:"profiles"`
}

// LoadProfiles reads a YAML profiles file and returns a compiled registry.
func LoadProfiles(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	if len(file.Profiles) == 0 {
		return nil, fmt.Errorf("profiles file %s defines no profiles", path)
	}
	return NewRegistry(file.Profiles...)
}
