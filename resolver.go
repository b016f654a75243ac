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
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// snippetBytes bounds the per-page body excerpt kept for diagnostics.
const snippetBytes = 500

// maxIntermediateDepth bounds recursion through IntermediatePage candidates.
// Every supported flow is at most two pages deep; deeper chains are hop
// chains, not candidate chains.
const maxIntermediateDepth = 2

// Resolver drives one resolution run: hop following, candidate matching in
// priority order, extraction, execution and polling. A Resolver owns its
// Fetcher (and therefore its cookie session) and must not be shared across
// concurrent resolutions; the SiteProfile it references is read-only.
type Resolver struct {
	Profile *SiteProfile
	Fetcher *Fetcher
}

// NewResolver builds a Resolver with a fresh fetch session configured from
// the profile's timeouts and default headers.
func NewResolver(profile *SiteProfile) (*Resolver, error) {
	f, err := NewFetcher(&FetcherOptions{
		UserAgent:      defaultUserAgent,
		DefaultHeaders: profile.DefaultHeaders,
		Timeout:        profile.RequestTimeout.Std(),
	})
	if err != nil {
		return nil, err
	}
	return &Resolver{Profile: profile, Fetcher: f}, nil
}

// Result is the terminal value of a resolution run. Exactly one Result is
// produced per request; every failure mode is data, never a panic.
type Result struct {
	StartURL          string        `json:"startUrl"`
	Profile           string        `json:"profile"`
	Success           bool          `json:"success"`
	FinalURL          string        `json:"finalUrl,omitempty"`
	SuggestedFilename string        `json:"suggestedFilename,omitempty"`
	Kind              FailureKind   `json:"failureKind,omitempty"`
	ErrorMessage      string        `json:"error,omitempty"`
	Logs              []string      `json:"logs"`
	Hops              int           `json:"hops"`
	Duration          time.Duration `json:"duration"`
	// LastBodyHash fingerprints the last page body seen, for correlating
	// repeated failures against changed markup.
	LastBodyHash uint64 `json:"lastBodyHash,omitempty"`
}

// hopState is the mutable, single-owner state of one resolution run.
type hopState struct {
	hopCount int
	visited  []visitedPage
}

type visitedPage struct {
	url      string
	snippet  string
	bodyHash uint64
}

func (hs *hopState) record(page *Page) {
	hs.visited = append(hs.visited, visitedPage{
		url:      page.FinalURL.String(),
		snippet:  page.Snippet(snippetBytes),
		bodyHash: page.BodyHash,
	})
}

// Resolve runs the full pipeline for startURL and always returns a Result.
func (r *Resolver) Resolve(ctx context.Context, startURL string) *Result {
	tr := &Trace{}
	hs := &hopState{}
	started := time.Now()

	result := &Result{StartURL: startURL, Profile: r.Profile.Name}
	final, err := r.run(ctx, startURL, hs, tr)

	result.Logs = tr.Lines()
	result.Hops = hs.hopCount
	result.Duration = time.Since(started)
	if n := len(hs.visited); n > 0 {
		result.LastBodyHash = hs.visited[n-1].bodyHash
	}
	if err != nil {
		result.Kind = KindForError(err)
		result.ErrorMessage = err.Error()
		return result
	}
	result.Success = true
	result.FinalURL = final.String()
	result.SuggestedFilename = SuggestedFilename(final)
	return result
}

func (r *Resolver) run(ctx context.Context, startURL string, hs *hopState, tr *Trace) (*url.URL, error) {
	start, err := ParseAbsoluteURL(startURL)
	if err != nil {
		return nil, &FetchError{URL: startURL, Err: err}
	}

	page, err := r.followHops(ctx, start, "", hs, tr)
	if err != nil {
		return nil, err
	}

	if looksLikeChallenge(page.Body) {
		tr.Logf("warning: page %s looks like a bot challenge", page.FinalURL)
	}

	return r.analyze(ctx, page, r.Profile.Rules, hs, tr, 0)
}

// followHops fetches u, then repeatedly follows secondary (meta-refresh or
// script) redirects until none remain or the profile's hop limit is hit.
func (r *Resolver) followHops(ctx context.Context, u *url.URL, referer string, hs *hopState, tr *Trace) (*Page, error) {
	rc := &RequestContext{Referer: referer}
	tr.Logf("[hop %d] fetching %s", hs.hopCount, u)
	page, err := r.Fetcher.Get(ctx, u.String(), rc)
	if err != nil {
		return nil, err
	}
	hs.record(page)
	tr.Logf("landed on %s (status %d)", page.FinalURL, page.StatusCode)

	for {
		if !page.OK() {
			return nil, &FetchError{
				URL: page.FinalURL.String(),
				Err: fmt.Errorf("unexpected status %d", page.StatusCode),
			}
		}
		redirect := FindSecondaryRedirect(page)
		if redirect == nil {
			tr.Logf("no further secondary redirect, analyzing %s", page.FinalURL)
			return page, nil
		}
		if hs.hopCount >= r.Profile.MaxHops {
			tr.Logf("exceeded maximum redirect hops (%d), stuck at %s", r.Profile.MaxHops, page.FinalURL)
			return nil, fmt.Errorf("stuck at %s: %w", page.FinalURL, ErrTooManyRedirects)
		}
		hs.hopCount++
		tr.Logf("[hop %d] %s redirect to %s", hs.hopCount, redirect.Mechanism, redirect.Target)

		rc = rc.WithReferer(page.FinalURL.String())
		page, err = r.Fetcher.Get(ctx, redirect.Target.String(), rc)
		if err != nil {
			return nil, err
		}
		hs.record(page)
		tr.Logf("landed on %s (status %d)", page.FinalURL, page.StatusCode)
	}
}

// analyze walks the rule list in priority order and drives each matched
// candidate to its conclusion. A broken branch falls through to the next
// lower-priority rule; only a generation attempt is terminal either way
// (a timed-out generation is reported as such, never masked by a weaker
// alternative). Exhausting every rule yields ErrNoSupportedOption.
func (r *Resolver) analyze(ctx context.Context, page *Page, rules []*CandidateRule, hs *hopState, tr *Trace, depth int) (*url.URL, error) {
	doc, err := page.Document()
	if err != nil {
		return nil, &FetchError{URL: page.FinalURL.String(), Err: err}
	}
	tr.Logf("scanning %d interactive elements on %s", doc.Find("a, button").Length(), page.FinalURL)

	for _, rule := range rules {
		el := FirstMatch(doc, rule)
		if el == nil {
			continue
		}
		tr.Logf("rule %q matched <%s> %q", rule.Name, goquery.NodeName(el), normalizeSpace(el.Text()))

		target, err := r.followCandidate(ctx, &Match{Rule: rule, Element: el}, page, hs, tr, depth)
		if err == nil {
			return target, nil
		}
		if isBranchTerminal(err) {
			return nil, err
		}
		tr.Logf("candidate %q did not pan out (%v), trying next option", rule.Name, err)
	}

	tr.Logf("no supported download option found on %s", page.FinalURL)
	return nil, fmt.Errorf("on %s: %w", page.FinalURL, ErrNoSupportedOption)
}

// followCandidate advances one matched candidate to a final URL or a branch
// failure.
func (r *Resolver) followCandidate(ctx context.Context, m *Match, page *Page, hs *hopState, tr *Trace, depth int) (*url.URL, error) {
	switch m.Rule.Action {
	case DirectLink:
		action, err := ExtractAction(m, page, r.Profile)
		if err != nil {
			return nil, err
		}
		if !r.Profile.looksFinal(action.Target) {
			return nil, &ExtractionError{Rule: m.Rule.Name, Err: fmt.Errorf("target %s does not look final", action.Target)}
		}
		tr.Logf("found final link via %q: %s", m.Rule.Name, action.Target)
		return action.Target, nil

	case IntermediatePage:
		if depth+1 >= maxIntermediateDepth {
			return nil, &ExtractionError{Rule: m.Rule.Name, Err: fmt.Errorf("intermediate chain too deep")}
		}
		action, err := ExtractAction(m, page, r.Profile)
		if err != nil {
			return nil, err
		}
		tr.Logf("following intermediate candidate %q: %s %s", m.Rule.Name, action.Method, action.Target)
		next, err := r.executeIntermediate(ctx, action, page, hs, tr)
		if err != nil {
			return nil, err
		}
		return r.analyze(ctx, next, r.Profile.IntermediateRules, hs, tr, depth+1)

	case GenerateAndPoll:
		action, err := ExtractAction(m, page, r.Profile)
		if err != nil {
			return nil, err
		}
		pollURL, err := ExecuteGeneration(ctx, r.Fetcher, action, page, r.Profile, tr)
		if err != nil {
			return nil, err
		}
		return PollGeneration(ctx, r.Fetcher, pollURL, r.Profile, tr)
	}

	return nil, &ExtractionError{Rule: m.Rule.Name, Err: fmt.Errorf("unknown action kind %q", m.Rule.Action)}
}

// executeIntermediate performs the candidate's GET or POST and absorbs any
// secondary redirects on the way to the next analyzable page.
func (r *Resolver) executeIntermediate(ctx context.Context, action *Action, page *Page, hs *hopState, tr *Trace) (*Page, error) {
	referer := page.FinalURL.String()
	if action.Method == http.MethodGet && len(action.Payload) == 0 {
		return r.followHops(ctx, action.Target, referer, hs, tr)
	}

	rc := &RequestContext{Referer: referer}
	next, err := r.Fetcher.Do(ctx, &FetchRequest{
		URL:     action.Target.String(),
		Method:  action.Method,
		Payload: action.Payload,
		Context: rc,
	})
	if err != nil {
		return nil, err
	}
	hs.record(next)
	tr.Logf("%s %s landed on %s (status %d)", action.Method, action.Target, next.FinalURL, next.StatusCode)
	if !next.OK() {
		return nil, &FetchError{
			URL: next.FinalURL.String(),
			Err: fmt.Errorf("unexpected status %d", next.StatusCode),
		}
	}
	return next, nil
}

// isBranchTerminal reports whether a branch error must end the whole
// resolution instead of falling through to the next-priority rule. A
// generation attempt, however it failed, is its own terminal outcome.
func isBranchTerminal(err error) bool {
	return errors.Is(err, ErrGenerationTimeout) ||
		errors.Is(err, ErrAmbiguousGeneration) ||
		errors.Is(err, ErrTooManyRedirects)
}
