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
	"os"
	"time"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"

var defaultBrowserHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.9",
	"Accept-Language": "en-US,en;q=0.9",
	"Referer":         "https://google.com",
}

// DefaultProfiles returns the two built-in site profiles. The gdflix
// generation secret is never hardcoded: it is read from GDFLIX_CLOUD_KEY and
// simply omitted from the payload when unset.
func DefaultProfiles() []*SiteProfile {
	return []*SiteProfile{gdflixProfile(), hubcloudProfile()}
}

func gdflixProfile() *SiteProfile {
	generateDefaults := map[string]string{
		"action":       "cloud",
		"action_token": "",
	}
	if key := os.Getenv("GDFLIX_CLOUD_KEY"); key != "" {
		generateDefaults["key"] = key
	}
	return &SiteProfile{
		Name:      "gdflix",
		HostGlobs: []string{"gdflix.*", "*.gdflix.*", "gdlink.*", "*.gdlink.*"},
		Rules: []*CandidateRule{
			{Name: "fast-cloud", TextPattern: `fast\s*cloud\s*(download|dl)`, Action: IntermediatePage},
			{Name: "pixeldrain", TextPattern: `pixeldrain\s*(dl)?`, Action: DirectLink},
		},
		IntermediateRules: []*CandidateRule{
			{Name: "cloud-resume", TextPattern: `cloud\s+resume\s+download`, Action: DirectLink},
			{Name: "generate-cloud", IDHint: "cloud", TextPattern: `generate\s+cloud\s+link`, Action: GenerateAndPoll},
		},
		TerminalRules: []*CandidateRule{
			{Name: "cloud-resume", TextPattern: `cloud\s+resume\s+download`, Action: DirectLink},
		},
		MaxHops:             5,
		PollInterval:        Duration(5 * time.Second),
		GenerationTimeout:   Duration(40 * time.Second),
		RequestTimeout:      Duration(30 * time.Second),
		DefaultHeaders:      defaultBrowserHeaders,
		GenerateDefaults:    generateDefaults,
		GenerateTokenHeader: "x-token",
	}
}

func hubcloudProfile() *SiteProfile {
	return &SiteProfile{
		Name:      "hubcloud",
		HostGlobs: []string{"hubcloud.*", "*.hubcloud.*", "hubdrive.*", "*.hubdrive.*"},
		Rules: []*CandidateRule{
			{Name: "fsl-server", TextPattern: `download\s*\[fsl server\]`, Action: DirectLink},
			{Name: "sized-file", TextPattern: `download\s*file\s*\[\s*\d+(\.\d+)?\s*(gb|mb)\s*\]`, Action: DirectLink},
			{Name: "pixel-server", TextPattern: `download\s*\[pixelserver\s*:\s*\d+\]`, Action: DirectLink},
			{Name: "gbps-server", TextPattern: `download\s*\[server\s*:\s*\d+gbps\]`, Action: DirectLink},
			{Name: "generate-direct", TextPattern: `generate direct download link`, HrefPattern: `gamerxyt\.com/hubcloud\.php`, Action: IntermediatePage},
			{Name: "drive-download", TextPattern: `^download$|free download`, Action: IntermediatePage},
		},
		IntermediateRules: []*CandidateRule{
			{Name: "pixeldrain-button", TextPattern: `download\s*\[pixelserver`, Action: DirectLink},
			{Name: "fsl-button", TextPattern: `download\s*\[fsl server`, Action: DirectLink},
			{Name: "sized-button", TextPattern: `download file\s*\[`, Action: DirectLink},
			{Name: "generic-download", TextPattern: `^download( now)?$`, Action: DirectLink},
			{Name: "pixeldrain-href", HrefPattern: `pixel`, Action: DirectLink},
			{Name: "fsl-href", HrefPattern: `fsl\.pub`, Action: DirectLink},
		},
		FinalLinkHints: []string{
			"r2.dev", "fsl.pub", "/dl/", ".cdn.", "storage.", "pixeldrain.com/api/file/",
		},
		IntermediateDomains: []string{
			"gamerxyt.com", "adf.ly", "linkvertise.com", "tinyurl.com",
			"cdn.ampproject.org", "bloggingvector.shop", "newssongs.co.in",
		},
		MaxHops:           5,
		PollInterval:      Duration(5 * time.Second),
		GenerationTimeout: Duration(40 * time.Second),
		RequestTimeout:    Duration(30 * time.Second),
		DefaultHeaders:    defaultBrowserHeaders,
		ScriptPayloadKeys: []string{"op", "id", "rand"},
	}
}
