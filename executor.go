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
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Response keys observed to carry the follow-up URL after a generation POST.
// Site-specific and volatile; checked in order.
var generationURLKeys = []string{"visit_url", "url"}

var challengeMarkers = []string{
	"cloudflare", "checking your browser", "challenge-platform", "captcha",
}

// looksLikeChallenge reports whether a body carries markers of a bot
// challenge page. Diagnostic only: challenges are a hop failure, never
// something the pipeline tries to defeat.
func looksLikeChallenge(body []byte) bool {
	lower := strings.ToLower(string(body))
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ExecuteGeneration sends the generation POST with AJAX-style headers and
// classifies the response, returning the absolute URL to poll.
//
// Classification follows what the target servers actually do rather than
// what they declare: a JSON Content-Type is parsed strictly; a success
// status with a non-JSON Content-Type still gets a best-effort parse (some
// servers mislabel); anything else is a hard failure, annotated when the
// body looks like a bot challenge.
func ExecuteGeneration(ctx context.Context, f *Fetcher, action *Action, page *Page, profile *SiteProfile, tr *Trace) (*url.URL, error) {
	headers := http.Header{}
	headers.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	headers.Set("X-Requested-With", "XMLHttpRequest")
	if profile.GenerateTokenHeader != "" {
		headers.Set(profile.GenerateTokenHeader, action.Target.Host)
	}
	rc := &RequestContext{Referer: page.FinalURL.String(), Headers: headers}

	tr.Logf("sending generation POST to %s", action.Target)
	resp, err := f.Do(ctx, &FetchRequest{
		URL:     action.Target.String(),
		Method:  http.MethodPost,
		Payload: action.Payload,
		Context: rc,
	})
	if err != nil {
		return nil, err
	}
	tr.Logf("generation POST returned status %d", resp.StatusCode)

	contentType := strings.ToLower(resp.Headers.Get("Content-Type"))
	isJSON := strings.Contains(contentType, "application/json")

	if !resp.OK() {
		if looksLikeChallenge(resp.Body) {
			tr.Logf("generation POST likely blocked by a bot challenge")
			return nil, fmt.Errorf("generation POST blocked (status %d, challenge page): %w", resp.StatusCode, ErrAmbiguousGeneration)
		}
		return nil, fmt.Errorf("generation POST failed with status %d: %w", resp.StatusCode, ErrAmbiguousGeneration)
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		if isJSON {
			tr.Logf("generation response declared JSON but failed to parse: %.200s", resp.Body)
		} else {
			tr.Logf("generation response not parseable as JSON (content-type %q): %.200s", contentType, resp.Body)
		}
		return nil, fmt.Errorf("unparseable generation response: %w", ErrAmbiguousGeneration)
	}

	if errVal, ok := body["error"]; ok && truthy(errVal) {
		msg := "unknown error from generation response"
		if m, ok := body["message"].(string); ok && m != "" {
			msg = m
		}
		return nil, fmt.Errorf("generation refused: %s: %w", msg, ErrAmbiguousGeneration)
	}

	for _, key := range generationURLKeys {
		raw, ok := body[key].(string)
		if !ok || raw == "" {
			continue
		}
		pollURL, err := ResolveRef(page.FinalURL, raw)
		if err != nil {
			return nil, fmt.Errorf("generation returned unusable %s %q: %w", key, raw, ErrAmbiguousGeneration)
		}
		tr.Logf("generation accepted, poll URL %s", pollURL)
		return pollURL, nil
	}

	// Success status, parseable body, but nothing to visit: ambiguous.
	return nil, fmt.Errorf("generation response missing a poll URL key: %w", ErrAmbiguousGeneration)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != "" && t != "false" && t != "0"
	case float64:
		return t != 0
	}
	return v != nil
}
