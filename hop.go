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
	"net/url"
	"regexp"
	"strings"
)

// Hosting front-ends frequently redirect with markup or script instead of a
// 3xx status, deliberately defeating naive scrapers. Both mechanisms are
// treated uniformly as one more hop.
var (
	metaRefreshRe = regexp.MustCompile(`(?i)<meta\s+http-equiv=["']refresh["']\s+content=["'][^"']*url=([^"']+)["']`)
	scriptBlockRe = regexp.MustCompile(`(?is)<script[^>]*>(.*?)</script>`)
	jsReplaceRe   = regexp.MustCompile(`(?i)location\.replace\(\s*['"]([^'"]+)['"]`)
	jsHrefRe      = regexp.MustCompile(`(?i)location\.href\s*=\s*['"]([^'"]+)['"]`)
)

// SecondaryRedirect describes a non-HTTP redirect found in a page body.
type SecondaryRedirect struct {
	// Target is the absolute next-hop URL.
	Target *url.URL
	// Mechanism is "meta-refresh", "js-location-replace" or
	// "js-location-href", for logs.
	Mechanism string
}

// FindSecondaryRedirect scans a fetched page for a meta-refresh tag, a
// script location.replace call or a location.href assignment and returns
// the resolved next-hop URL.
// Returns nil when the page has no actionable secondary redirect, or when
// the target is the landed URL itself modulo fragment (self-loop guard).
func FindSecondaryRedirect(page *Page) *SecondaryRedirect {
	body := string(page.Body)

	if m := metaRefreshRe.FindStringSubmatch(body); m != nil {
		// content="5;url=TARGET": the target runs up to the first ';'.
		target := strings.TrimSpace(strings.SplitN(m[1], ";", 2)[0])
		if redirect := resolveHop(page, target, "meta-refresh"); redirect != nil {
			return redirect
		}
	}

	// Script redirects are only honored inside <script> blocks. The same
	// expressions appear in onclick attributes on download buttons, where
	// they are candidate actions for the matcher, not page redirects.
	for _, script := range scriptBlockRe.FindAllStringSubmatch(body, -1) {
		if m := jsReplaceRe.FindStringSubmatch(script[1]); m != nil {
			// Some pages concatenate the current hash fragment onto the
			// literal; strip it, it never survives the hop anyway.
			target := strings.SplitN(m[1], "+document.location.hash", 2)[0]
			target = strings.Trim(target, `'" `)
			if redirect := resolveHop(page, target, "js-location-replace"); redirect != nil {
				return redirect
			}
		}
		if m := jsHrefRe.FindStringSubmatch(script[1]); m != nil {
			target := strings.TrimSpace(m[1])
			if redirect := resolveHop(page, target, "js-location-href"); redirect != nil {
				return redirect
			}
		}
	}

	return nil
}

func resolveHop(page *Page, target, mechanism string) *SecondaryRedirect {
	if target == "" {
		return nil
	}
	resolved, err := ResolveRef(page.FinalURL, target)
	if err != nil {
		return nil
	}
	if SameIgnoringFragment(resolved, page.FinalURL) {
		return nil
	}
	return &SecondaryRedirect{Target: resolved, Mechanism: mechanism}
}
