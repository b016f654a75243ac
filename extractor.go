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
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
)

// Action is the synthesized HTTP request that advances the pipeline to the
// next hop: method, absolute target and form payload. Produced by the
// extractor, consumed immediately by the executor.
type Action struct {
	Method  string
	Target  *url.URL
	Payload map[string]string
}

var onclickLocationRe = regexp.MustCompile(`window\.location(?:\.href)?\s*=\s*['"]([^'"]+)['"]`)

// ExtractAction resolves a matched element into an Action.
//
// Anchors with a usable href become GET actions. Buttons (and href-less
// anchors) fall back to an onclick location assignment, then to the nearest
// enclosing form: target is the form action (or the page URL when absent),
// method is the form's declared method (GET unless it says otherwise), and
// the payload carries every hidden input plus the triggering button's own
// name/value. Profiles may declare script-scavenged payload keys and fixed
// generation defaults; scraped values always win over defaults.
func ExtractAction(m *Match, page *Page, profile *SiteProfile) (*Action, error) {
	base := page.FinalURL

	if href := usableHref(m.Element); href != "" {
		target, err := ResolveRef(base, href)
		if err != nil {
			return nil, &ExtractionError{Rule: m.Rule.Name, Err: err}
		}
		return &Action{Method: http.MethodGet, Target: target}, nil
	}

	if onclick, ok := m.Element.Attr("onclick"); ok && strings.Contains(onclick, "window.location") {
		if sub := onclickLocationRe.FindStringSubmatch(onclick); sub != nil {
			target, err := ResolveRef(base, sub[1])
			if err != nil {
				return nil, &ExtractionError{Rule: m.Rule.Name, Err: err}
			}
			return &Action{Method: http.MethodGet, Target: target}, nil
		}
	}

	form := m.Element.Closest("form")
	if form.Length() == 0 {
		return nil, &ExtractionError{Rule: m.Rule.Name, Err: ErrNoTarget}
	}

	targetRef := strings.TrimSpace(form.AttrOr("action", ""))
	target := base
	if targetRef != "" {
		resolved, err := ResolveRef(base, targetRef)
		if err != nil {
			return nil, &ExtractionError{Rule: m.Rule.Name, Err: err}
		}
		target = resolved
	}

	method := strings.ToUpper(strings.TrimSpace(form.AttrOr("method", "")))
	if method == "" {
		method = http.MethodGet
	}

	payload := map[string]string{}
	// Defaults go in first so scraped values override them.
	if m.Rule.Action == GenerateAndPoll {
		for k, v := range profile.GenerateDefaults {
			payload[k] = v
		}
	}
	form.Find(`input[type="hidden"]`).Each(func(_ int, input *goquery.Selection) {
		if name, ok := input.Attr("name"); ok && name != "" {
			payload[name] = input.AttrOr("value", "")
		}
	})
	if btnName, ok := m.Element.Attr("name"); ok && btnName != "" && goquery.NodeName(m.Element) == "button" {
		payload[btnName] = m.Element.AttrOr("value", "")
	}

	if len(profile.ScriptPayloadKeys) > 0 {
		fillFromScripts(payload, page, profile.ScriptPayloadKeys)
	}

	return &Action{Method: method, Target: target, Payload: payload}, nil
}

// usableHref returns the element's href unless it is empty, a bare fragment
// or a script-void link.
func usableHref(s *goquery.Selection) string {
	href, ok := s.Attr("href")
	if !ok {
		return ""
	}
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	return href
}

// fillFromScripts scavenges payload keys embedded in inline script snippets
// ('op': 'value', id = "value", ...) for forms that keep their tokens out of
// the markup. Already-present keys are never overwritten. A missing "id" is
// recovered from the page URL path as a last resort.
func fillFromScripts(payload map[string]string, page *Page, keys []string) {
	missing := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := payload[k]; !ok {
			payload[k] = ""
			missing = append(missing, k)
		} else if payload[k] == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return
	}

	doc, err := htmlquery.Parse(bytes.NewReader(page.Body))
	if err != nil {
		return
	}
	var script strings.Builder
	for _, node := range htmlquery.Find(doc, "//script") {
		script.WriteString(htmlquery.InnerText(node))
		script.WriteString("\n")
	}
	content := script.String()

	for _, key := range missing {
		re := regexp.MustCompile(fmt.Sprintf(`["']%s["']\s*[:=]\s*["']([^"']+?)["']`, regexp.QuoteMeta(key)))
		if sub := re.FindStringSubmatch(content); sub != nil {
			payload[key] = sub[1]
		}
	}

	if payload["id"] == "" {
		if id := idFromPath(page.FinalURL); id != "" {
			payload["id"] = id
		}
	}
	for _, key := range keys {
		if payload[key] == "" && key != "id" && key != "op" {
			delete(payload, key)
		}
	}
	if payload["op"] == "" || payload["op"] == "download0" {
		payload["op"] = "download1"
	}
}

// idFromPath extracts a file id from URL paths like /drive/<id> or /<id>.
func idFromPath(u *url.URL) string {
	if u == nil {
		return ""
	}
	unescaped, err := url.PathUnescape(u.Path)
	if err != nil {
		unescaped = u.Path
	}
	parts := strings.Split(strings.Trim(unescaped, "/"), "/")
	switch {
	case len(parts) >= 2 && parts[0] == "drive":
		return parts[1]
	case len(parts) >= 1 && parts[0] != "":
		return parts[0]
	}
	return ""
}
