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

import (
	"fmt"

	"gorm.io/gorm"
)

// SaveResolution records a completed resolution run.
func (s *Store) SaveResolution(r *Resolution) error {
	if err := s.db.Create(r).Error; err != nil {
		return fmt.Errorf("failed to save resolution: %v", err)
	}
	return nil
}

// GetResolutionByID gets a resolution by ID
func (s *Store) GetResolutionByID(id uint) (*Resolution, error) {
	var r Resolution
	result := s.db.First(&r, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("resolution %d not found", id)
		}
		return nil, fmt.Errorf("failed to get resolution: %v", result.Error)
	}
	return &r, nil
}

// GetRecentResolutions returns the most recent resolutions, newest first.
func (s *Store) GetRecentResolutions(limit int) ([]Resolution, error) {
	if limit <= 0 {
		limit = 50
	}
	var resolutions []Resolution
	result := s.db.Order("created_at DESC, id DESC").Limit(limit).Find(&resolutions)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get resolutions: %v", result.Error)
	}
	return resolutions, nil
}

// GetResolutionsForURL returns all recorded runs for a start URL, newest
// first. Useful for spotting a host whose markup changed under us.
func (s *Store) GetResolutionsForURL(startURL string) ([]Resolution, error) {
	var resolutions []Resolution
	result := s.db.Where("start_url = ?", startURL).Order("created_at DESC, id DESC").Find(&resolutions)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get resolutions: %v", result.Error)
	}
	return resolutions, nil
}

// DeleteResolution removes one recorded run.
func (s *Store) DeleteResolution(id uint) error {
	result := s.db.Delete(&Resolution{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete resolution: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("resolution %d not found", id)
	}
	return nil
}

// CountByOutcome returns how many stored runs succeeded and failed.
func (s *Store) CountByOutcome() (succeeded, failed int64, err error) {
	if err = s.db.Model(&Resolution{}).Where("success = ?", true).Count(&succeeded).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count resolutions: %v", err)
	}
	if err = s.db.Model(&Resolution{}).Where("success = ?", false).Count(&failed).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count resolutions: %v", err)
	}
	return succeeded, failed, nil
}
