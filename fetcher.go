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
	"compress/gzip"
	"context"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"
	"github.com/gobwas/glob"
	"github.com/saintfish/chardet"
)

// RedirectHop records one intermediate transport-level (3xx) redirect.
type RedirectHop struct {
	URL        string
	StatusCode int
	Location   string
}

// Page is the result of a single fetch. It is consumed and discarded per
// pipeline hop; nothing retains it beyond the current hop's processing.
type Page struct {
	// URL is the URL that was requested.
	URL *url.URL
	// FinalURL is the URL landed on after transport redirects.
	FinalURL *url.URL
	// StatusCode is the final response status. Non-2xx pages are still
	// returned with their body so callers can inspect error pages.
	StatusCode int
	Body       []byte
	Headers    http.Header
	// Charset is the declared or detected character set of the body,
	// recorded for diagnostics.
	Charset string
	// BodyHash is an xxhash fingerprint of the body, recorded in hop
	// diagnostics and resolution history.
	BodyHash uint64
	// RedirectChain holds the transport redirects followed to reach FinalURL.
	RedirectChain []RedirectHop
	FetchedAt     time.Time

	doc *goquery.Document
}

// Document parses the page body into a goquery document. The parse is done
// once and cached on the Page.
func (p *Page) Document() (*goquery.Document, error) {
	if p.doc != nil {
		return p.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, err
	}
	p.doc = doc
	return doc, nil
}

// Snippet returns the first n bytes of the body for diagnostic logs.
func (p *Page) Snippet(n int) string {
	if len(p.Body) <= n {
		return string(p.Body)
	}
	return string(p.Body[:n]) + "..."
}

// OK reports whether the final status code was a 2xx.
func (p *Page) OK() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}

// RequestContext carries the per-request header state threaded explicitly
// through the pipeline: the current referer and any extra headers a stage
// wants on the next request. There is no ambient mutable session state.
type RequestContext struct {
	Referer string
	Headers http.Header
}

// WithReferer returns a copy of the context pointing at a new referer.
func (rc *RequestContext) WithReferer(referer string) *RequestContext {
	next := &RequestContext{Referer: referer}
	if rc != nil && rc.Headers != nil {
		next.Headers = rc.Headers.Clone()
	}
	return next
}

// FetchRequest describes a single fetch: method, target, optional form
// payload and the explicit request context.
type FetchRequest struct {
	URL     string
	Method  string
	Payload map[string]string
	Context *RequestContext
}

// LimitRule provides politeness restrictions for domains. Both DomainRegexp
// and DomainGlob can be used to specify the included domain patterns, but at
// least one is required. Parallelism caps concurrent requests to matching
// domains; Delay (plus RandomDelay jitter) spaces successive requests.
type LimitRule struct {
	DomainRegexp string
	DomainGlob   string
	Delay        time.Duration
	RandomDelay  time.Duration
	Parallelism  int

	waitChan       chan bool
	compiledRegexp *regexp.Regexp
	compiledGlob   glob.Glob
}

// Init initializes the private members of LimitRule
func (r *LimitRule) Init() error {
	waitChanSize := 1
	if r.Parallelism > 1 {
		waitChanSize = r.Parallelism
	}
	r.waitChan = make(chan bool, waitChanSize)
	hasPattern := false
	if r.DomainRegexp != "" {
		c, err := regexp.Compile(r.DomainRegexp)
		if err != nil {
			return err
		}
		r.compiledRegexp = c
		hasPattern = true
	}
	if r.DomainGlob != "" {
		c, err := glob.Compile(r.DomainGlob)
		if err != nil {
			return err
		}
		r.compiledGlob = c
		hasPattern = true
	}
	if !hasPattern {
		return ErrNoPattern
	}
	return nil
}

// Match checks that the domain parameter triggers the rule
func (r *LimitRule) Match(domain string) bool {
	match := false
	if r.compiledRegexp != nil && r.compiledRegexp.MatchString(domain) {
		match = true
	}
	if r.compiledGlob != nil && r.compiledGlob.Match(domain) {
		match = true
	}
	return match
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	// UserAgent is sent on every request.
	UserAgent string
	// DefaultHeaders are applied before any request-context headers.
	DefaultHeaders map[string]string
	// Timeout bounds a single HTTP exchange. Default 30s.
	Timeout time.Duration
	// MaxBodySize is the limit of the retrieved response body in bytes.
	// 0 means the 10MB default.
	MaxBodySize int
	// LimitRules are politeness restrictions applied per domain.
	LimitRules []*LimitRule
}

const defaultMaxBodySize = 10 * 1024 * 1024

// Fetcher performs single GET or POST exchanges with manual transport
// redirect following. It owns a cookie jar, so cookies set by one hop are
// presented on the next, mirroring a browser session. A Fetcher is scoped to
// one resolution run; concurrent resolutions never share one.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	defaults    map[string]string
	maxBodySize int
	limitRules  []*LimitRule
	lock        *sync.RWMutex
}

// NewFetcher creates a Fetcher with a fresh cookie jar.
func NewFetcher(opts *FetcherOptions) (*Fetcher, error) {
	if opts == nil {
		opts = &FetcherOptions{}
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBody := opts.MaxBodySize
	if maxBody <= 0 {
		maxBody = defaultMaxBodySize
	}
	f := &Fetcher{
		client: &http.Client{
			Jar:     jar,
			Timeout: timeout,
			// Redirects are followed manually in do so the chain can be
			// captured and the Authorization header scrubbed across hosts.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent:   opts.UserAgent,
		defaults:    opts.DefaultHeaders,
		maxBodySize: maxBody,
		lock:        &sync.RWMutex{},
	}
	for _, rule := range opts.LimitRules {
		if err := f.Limit(rule); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Limit adds a politeness rule to the fetcher.
func (f *Fetcher) Limit(rule *LimitRule) error {
	f.lock.Lock()
	f.limitRules = append(f.limitRules, rule)
	f.lock.Unlock()
	return rule.Init()
}

func (f *Fetcher) matchingRule(domain string) *LimitRule {
	f.lock.RLock()
	defer f.lock.RUnlock()
	for _, r := range f.limitRules {
		if r.Match(domain) {
			return r
		}
	}
	return nil
}

// Get fetches a URL with GET.
func (f *Fetcher) Get(ctx context.Context, rawURL string, rc *RequestContext) (*Page, error) {
	return f.Do(ctx, &FetchRequest{URL: rawURL, Method: http.MethodGet, Context: rc})
}

// Post fetches a URL with a form-encoded POST.
func (f *Fetcher) Post(ctx context.Context, rawURL string, payload map[string]string, rc *RequestContext) (*Page, error) {
	return f.Do(ctx, &FetchRequest{URL: rawURL, Method: http.MethodPost, Payload: payload, Context: rc})
}

const maxTransportRedirects = 10

// Do performs the fetch, following up to maxTransportRedirects 3xx redirects
// manually so the intermediate chain can be reported. 307/308 preserve the
// method and body; 301/302/303 demote to GET. The body is gzip-decoded and
// capped at MaxBodySize. The returned error is always a *FetchError.
func (f *Fetcher) Do(ctx context.Context, freq *FetchRequest) (*Page, error) {
	if rule := f.matchingRule(hostOf(freq.URL)); rule != nil {
		rule.waitChan <- true
		defer func(r *LimitRule) {
			randomDelay := time.Duration(0)
			if r.RandomDelay != 0 {
				randomDelay = time.Duration(rand.Int63n(int64(r.RandomDelay)))
			}
			time.Sleep(r.Delay + randomDelay)
			<-r.waitChan
		}(rule)
	}

	currentRequest, err := f.buildRequest(ctx, freq)
	if err != nil {
		return nil, &FetchError{URL: freq.URL, Err: err}
	}

	var redirectChain []RedirectHop
	for redirectCount := 0; redirectCount < maxTransportRedirects; redirectCount++ {
		res, err := f.client.Do(currentRequest)
		if err != nil {
			return nil, &FetchError{URL: currentRequest.URL.String(), Err: err}
		}

		location := res.Header.Get("Location")
		if res.StatusCode >= 300 && res.StatusCode < 400 && location != "" {
			redirectURL, err := currentRequest.URL.Parse(location)
			if err != nil {
				res.Body.Close()
				return nil, &FetchError{URL: currentRequest.URL.String(), Err: err}
			}
			redirectChain = append(redirectChain, RedirectHop{
				URL:        currentRequest.URL.String(),
				StatusCode: res.StatusCode,
				Location:   location,
			})
			res.Body.Close()

			// 307/308 preserve method and body, 301/302/303 convert to GET.
			newMethod := http.MethodGet
			var newBody io.Reader
			if res.StatusCode == http.StatusTemporaryRedirect || res.StatusCode == http.StatusPermanentRedirect {
				newMethod = currentRequest.Method
				if freq.Method == http.MethodPost {
					newBody = strings.NewReader(encodeForm(freq.Payload))
				}
			}
			newRequest, err := http.NewRequestWithContext(ctx, newMethod, redirectURL.String(), newBody)
			if err != nil {
				return nil, &FetchError{URL: redirectURL.String(), Err: err}
			}
			for key, values := range currentRequest.Header {
				for _, value := range values {
					newRequest.Header.Add(key, value)
				}
			}
			if newMethod == http.MethodGet {
				newRequest.Header.Del("Content-Type")
			}
			// Drop Authorization header if host changes (security measure)
			if newRequest.URL.Host != currentRequest.URL.Host {
				newRequest.Header.Del("Authorization")
			}
			currentRequest = newRequest
			continue
		}

		page, err := f.readPage(freq, currentRequest, res, redirectChain)
		if err != nil {
			return nil, &FetchError{URL: currentRequest.URL.String(), Err: err}
		}
		return page, nil
	}

	return nil, &FetchError{URL: freq.URL, Err: ErrTooManyRedirects}
}

func (f *Fetcher) buildRequest(ctx context.Context, freq *FetchRequest) (*http.Request, error) {
	method := freq.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(encodeForm(freq.Payload))
	}
	req, err := http.NewRequestWithContext(ctx, method, freq.URL, body)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	for k, v := range f.defaults {
		req.Header.Set(k, v)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if rc := freq.Context; rc != nil {
		if rc.Referer != "" {
			req.Header.Set("Referer", rc.Referer)
		}
		for k, vals := range rc.Headers {
			for _, v := range vals {
				req.Header.Set(k, v)
			}
		}
	}
	return req, nil
}

func (f *Fetcher) readPage(freq *FetchRequest, finalRequest *http.Request, res *http.Response, chain []RedirectHop) (*Page, error) {
	defer res.Body.Close()

	var bodyReader io.Reader = res.Body
	if f.maxBodySize > 0 {
		bodyReader = io.LimitReader(bodyReader, int64(f.maxBodySize))
	}
	contentEncoding := strings.ToLower(res.Header.Get("Content-Encoding"))
	if !res.Uncompressed && strings.Contains(contentEncoding, "gzip") {
		gz, err := gzip.NewReader(bodyReader)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		bodyReader = gz
	}
	body, err := io.ReadAll(bodyReader)
	if err != nil {
		return nil, err
	}

	requestedURL, err := url.Parse(freq.URL)
	if err != nil {
		requestedURL = finalRequest.URL
	}
	return &Page{
		URL:           requestedURL,
		FinalURL:      finalRequest.URL,
		StatusCode:    res.StatusCode,
		Body:          body,
		Headers:       res.Header,
		Charset:       charsetOf(res.Header.Get("Content-Type"), body),
		BodyHash:      xxhash.Sum64(body),
		RedirectChain: chain,
		FetchedAt:     time.Now(),
	}, nil
}

// charsetOf returns the charset declared in the Content-Type header, or a
// chardet best guess when the header omits one. Diagnostic only.
func charsetOf(contentType string, body []byte) string {
	lower := strings.ToLower(contentType)
	if idx := strings.Index(lower, "charset="); idx >= 0 {
		cs := lower[idx+len("charset="):]
		if sep := strings.IndexAny(cs, "; "); sep >= 0 {
			cs = cs[:sep]
		}
		return strings.Trim(cs, `"`)
	}
	if len(body) == 0 {
		return ""
	}
	result, err := chardet.NewHtmlDetector().DetectBest(body)
	if err != nil {
		return ""
	}
	return strings.ToLower(result.Charset)
}

func encodeForm(payload map[string]string) string {
	values := url.Values{}
	for k, v := range payload {
		values.Set(k, v)
	}
	return values.Encode()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
