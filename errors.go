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
	"errors"
	"fmt"
	"net"
)

// FailureKind classifies a terminal resolution failure. Every failure mode of
// the pipeline is modeled as data; nothing throws past a stage boundary.
type FailureKind string

const (
	// FailureNone indicates a successful resolution.
	FailureNone FailureKind = ""
	// FailureFetch indicates a network, timeout or HTTP-level error.
	FailureFetch FailureKind = "fetch_error"
	// FailureTooManyRedirects indicates the secondary redirect hop limit was exceeded.
	FailureTooManyRedirects FailureKind = "too_many_redirects"
	// FailureNoSupportedOption indicates no candidate rule matched any element.
	FailureNoSupportedOption FailureKind = "no_supported_option"
	// FailureExtraction indicates a matched element had no resolvable target.
	FailureExtraction FailureKind = "extraction_error"
	// FailureAmbiguousGeneration indicates a generation POST succeeded by
	// status but its response shape was unrecognized.
	FailureAmbiguousGeneration FailureKind = "ambiguous_generation_response"
	// FailureGenerationTimeout indicates the polling deadline elapsed before
	// the download link was generated. Reported distinctly from not-found:
	// the caller may retry later.
	FailureGenerationTimeout FailureKind = "generation_timeout"
	// FailureInternal indicates an unexpected error in the handler itself.
	FailureInternal FailureKind = "internal_error"
)

var (
	// ErrTooManyRedirects is returned when the number of secondary
	// (meta-refresh or script) redirects exceeds the profile's hop limit.
	ErrTooManyRedirects = errors.New("exceeded maximum redirect hops")

	// ErrNoSupportedOption is returned when no candidate rule matched any
	// interactive element on the analyzed pages. This is a legitimate
	// terminal state, not a server error.
	ErrNoSupportedOption = errors.New("no supported download option found")

	// ErrNoTarget is returned when a matched element has neither a usable
	// href nor an enclosing form to derive an action from.
	ErrNoTarget = errors.New("matched element has no resolvable target")

	// ErrAmbiguousGeneration is returned when a generation POST returns a
	// success status but no recognizable poll URL.
	ErrAmbiguousGeneration = errors.New("generation response did not contain a poll URL")

	// ErrGenerationTimeout is returned when polling for a generated link
	// exceeds the profile's generation deadline.
	ErrGenerationTimeout = errors.New("link generation timed out")

	// ErrNoPattern is returned when a LimitRule has neither a domain glob
	// nor a domain regexp.
	ErrNoPattern = errors.New("no pattern defined in rule")
)

// FetchError wraps a transport-level failure with the URL it occurred on.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Timeout reports whether the underlying error was a network timeout.
func (e *FetchError) Timeout() bool {
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// ExtractionError wraps ErrNoTarget with the rule that matched, so failure
// logs can name the download path that broke.
type ExtractionError struct {
	Rule string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %q: %v", e.Rule, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// KindForError maps a pipeline error to its FailureKind.
func KindForError(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var fetchErr *FetchError
	var extractErr *ExtractionError
	switch {
	case errors.Is(err, ErrTooManyRedirects):
		return FailureTooManyRedirects
	case errors.Is(err, ErrNoSupportedOption):
		return FailureNoSupportedOption
	case errors.Is(err, ErrGenerationTimeout):
		return FailureGenerationTimeout
	case errors.Is(err, ErrAmbiguousGeneration):
		return FailureAmbiguousGeneration
	case errors.As(err, &extractErr), errors.Is(err, ErrNoTarget):
		return FailureExtraction
	case errors.As(err, &fetchErr):
		return FailureFetch
	default:
		return FailureInternal
	}
}
