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

package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"
)

// selfPingInterval keeps the interval under the typical free-tier idle
// timeout of about a minute.
const selfPingInterval = 45 * time.Second

// StartSelfPing starts a background loop that GETs the URL in the
// SELF_PING_URL environment variable every 45 seconds, keeping free-tier
// hosts from idling the process out. No-op when the variable is unset.
// Returns true when the loop was started.
func StartSelfPing(ctx context.Context) bool {
	target := os.Getenv("SELF_PING_URL")
	if target == "" {
		return false
	}

	client := &http.Client{Timeout: 10 * time.Second}
	go func() {
		ticker := time.NewTicker(selfPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				resp, err := client.Get(target)
				if err != nil {
					log.Printf("self-ping failed: %v", err)
					continue
				}
				resp.Body.Close()
			}
		}
	}()
	log.Printf("self-ping enabled for %s every %s", target, selfPingInterval)
	return true
}
