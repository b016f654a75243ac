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

package store

import "encoding/json"

// Resolution is one recorded resolution run, success or failure. The
// structured fields answer "what happened"; LogsJSON preserves the full
// step-by-step trace for the ones that need digging into.
type Resolution struct {
	ID           uint   `gorm:"primaryKey"`
	StartURL     string `gorm:"not null;index"`
	Profile      string `gorm:"not null"`
	Success      bool   `gorm:"not null"`
	FinalURL     string `gorm:"type:text"`
	FailureKind  string
	ErrorMessage string `gorm:"type:text"`
	HopCount     int
	DurationMs   int64
	// BodyHash fingerprints the last page body seen, stored as the decimal
	// rendering of a 64-bit hash (SQLite has no unsigned integers).
	BodyHash  string
	LogsJSON  string `gorm:"type:text"`
	CreatedAt int64  `gorm:"autoCreateTime;index"`
}

// GetLogs deserializes LogsJSON to []string
func (r *Resolution) GetLogs() []string {
	if r.LogsJSON == "" {
		return nil
	}
	var logs []string
	if err := json.Unmarshal([]byte(r.LogsJSON), &logs); err != nil {
		return nil
	}
	return logs
}

// SetLogs serializes logs to JSON for LogsJSON
func (r *Resolution) SetLogs(logs []string) error {
	data, err := json.Marshal(logs)
	if err != nil {
		return err
	}
	r.LogsJSON = string(data)
	return nil
}
