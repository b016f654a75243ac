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
	"fmt"
	"net/url"
	"time"
)

// PollGeneration re-fetches pollURL at the profile's interval until one of
// the profile's terminal rules matches, the generation deadline elapses, or
// the context is canceled.
//
// The loop is deliberately forgiving: non-success statuses, network errors
// and parse errors on a single attempt are logged and retried, since the
// server is busy generating. Only the deadline is fatal. The final wait is clamped
// so total elapsed time never exceeds the deadline; with deadline 40s and
// interval 5s that is exactly 8 checks.
func PollGeneration(ctx context.Context, f *Fetcher, pollURL *url.URL, profile *SiteProfile, tr *Trace) (*url.URL, error) {
	deadline := time.Now().Add(profile.GenerationTimeout.Std())
	tr.Logf("polling %s every %s for up to %s", pollURL, profile.PollInterval.Std(), profile.GenerationTimeout.Std())

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			tr.Logf("link generation timed out after %s of polling %s", profile.GenerationTimeout.Std(), pollURL)
			return nil, fmt.Errorf("polling %s: %w", pollURL, ErrGenerationTimeout)
		}
		wait := profile.PollInterval.Std()
		if wait > remaining {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &FetchError{URL: pollURL.String(), Err: ctx.Err()}
		case <-timer.C:
		}

		rc := &RequestContext{Referer: pollURL.String()}
		page, err := f.Get(ctx, pollURL.String(), rc)
		if err != nil {
			tr.Logf("poll attempt failed, will retry: %v", err)
			continue
		}
		if !page.OK() {
			tr.Logf("poll returned status %d, continuing", page.StatusCode)
			continue
		}

		doc, err := page.Document()
		if err != nil {
			tr.Logf("poll page unparseable, will retry: %v", err)
			continue
		}
		m := MatchCandidates(doc, profile.TerminalRules)
		if m == nil {
			tr.Logf("download not ready yet on %s", page.FinalURL)
			continue
		}

		tr.Logf("terminal candidate %q appeared on %s", m.Rule.Name, page.FinalURL)
		action, err := ExtractAction(m, page, profile)
		if err != nil {
			// A terminal element without a target will not grow one; stop.
			return nil, err
		}
		return action.Target, nil
	}
}
