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
	"github.com/PuerkitoBio/goquery"
)

// Match pairs the winning rule with the first element (in document order)
// that satisfied it.
type Match struct {
	Rule    *CandidateRule
	Element *goquery.Selection
}

// MatchCandidates scans the page's interactive elements against the rules in
// declared priority order. The first rule with any matching element wins, and
// the first matching element (document order) is returned for it. This
// two-level tie-break encodes the site's preferred download path; it must not
// be reordered.
//
// Returns nil when no rule matches any element, which is a legitimate
// terminal state rather than an error.
func MatchCandidates(doc *goquery.Document, rules []*CandidateRule) *Match {
	for _, rule := range rules {
		if el := FirstMatch(doc, rule); el != nil {
			return &Match{Rule: rule, Element: el}
		}
	}
	return nil
}

// FirstMatch returns the first element (document order) matching the rule,
// or nil. An id hint is checked before any text scan, mirroring how sites
// tag their generate buttons with stable ids while labels churn.
func FirstMatch(doc *goquery.Document, rule *CandidateRule) *goquery.Selection {
	if rule.IDHint != "" {
		if sel := doc.Find("#" + rule.IDHint); sel.Length() > 0 {
			return sel.First()
		}
	}
	var found *goquery.Selection
	doc.Find("a, button").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if elementMatches(rule, s) {
			found = s
			return false
		}
		return true
	})
	return found
}

func elementMatches(rule *CandidateRule, s *goquery.Selection) bool {
	if rule.textRe != nil && rule.textRe.MatchString(normalizeSpace(s.Text())) {
		return true
	}
	if rule.hrefRe != nil {
		if href, ok := s.Attr("href"); ok && rule.hrefRe.MatchString(href) {
			return true
		}
	}
	return false
}
