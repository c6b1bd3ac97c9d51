package storage

import (
	"smartdraft/models"
	"smartdraft/utils"
	"time"
)

// NewProfile trims and truncates raw profile fields
func NewProfile(name, resume string, now time.Time) models.UserProfile {
	return models.UserProfile{
		Name:        utils.CleanField(name, models.MaxNameLen),
		Resume:      utils.CleanField(resume, models.MaxResumeLen),
		LastUpdated: now,
	}
}

// Profile returns the stored profile, or nil when none was saved
func (r *Repository) Profile() (*models.UserProfile, error) {
	var profile models.UserProfile
	found, err := r.getJSON(ScopeSync, KeyUserProfile, &profile)
	if err != nil || !found {
		return nil, err
	}
	return &profile, nil
}

// SaveProfile overwrites the stored profile wholesale. Concurrent writers are last-write-wins.
func (r *Repository) SaveProfile(name, resume string, now time.Time) (*models.UserProfile, error) {
	profile := NewProfile(name, resume, now)
	if err := r.putJSON(ScopeSync, KeyUserProfile, profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
