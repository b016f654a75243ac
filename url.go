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
	"path"
	"strings"

	"github.com/kennygrant/sanitize"
	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// ParseAbsoluteURL parses a raw URL with the WHATWG parser (browser-equivalent
// normalization) and converts the result to a net/url.URL. The URL must be
// absolute with an http(s) scheme.
func ParseAbsoluteURL(raw string) (*url.URL, error) {
	parsed, err := urlParser.Parse(raw)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(parsed.Href(false))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &url.Error{Op: "parse", URL: raw, Err: url.InvalidHostError(u.Scheme)}
	}
	return u, nil
}

// ResolveRef resolves ref against base the way a browser would. Relative
// references, scheme-relative references and absolute URLs all work.
func ResolveRef(base *url.URL, ref string) (*url.URL, error) {
	parsed, err := urlParser.ParseRef(base.String(), strings.TrimSpace(ref))
	if err != nil {
		return nil, err
	}
	return url.Parse(parsed.Href(false))
}

// SameIgnoringFragment reports whether a and b are the same URL modulo the
// fragment. Used to detect self-referential redirects.
func SameIgnoringFragment(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	ac, bc := *a, *b
	ac.Fragment, bc.Fragment = "", ""
	ac.RawFragment, bc.RawFragment = "", ""
	return ac.String() == bc.String()
}

// SuggestedFilename derives a filesystem-safe filename from the final
// download URL, or "" when the path carries no usable name.
func SuggestedFilename(u *url.URL) string {
	if u == nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return ""
	}
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	ext := path.Ext(name)
	if ext == "" {
		return sanitize.BaseName(name)
	}
	cleanExt := sanitize.BaseName(ext)
	if cleanExt == "" {
		return sanitize.BaseName(name[:len(name)-len(ext)])
	}
	return sanitize.BaseName(name[:len(name)-len(ext)]) + "." + cleanExt[1:]
}

// normalizeSpace collapses runs of whitespace to single spaces and trims the
// ends, matching how button labels are compared against rule patterns.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
