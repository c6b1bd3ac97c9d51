package storage

import (
	"smartdraft/models"

	"github.com/google/uuid"
)

// AppendDraft adds a generated draft to the end of the stored list and returns the new length.
// Drafts are never evicted, deduplicated or edited.
func (r *Repository) AppendDraft(draft *models.GeneratedDraft) (int, error) {
	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}

	var count int
	err := updateJSON(r.store, ScopeLocal, KeyDrafts, func(drafts *[]models.GeneratedDraft, _ bool) (bool, error) {
		*drafts = append(*drafts, *draft)
		count = len(*drafts)
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Drafts returns all stored drafts, oldest first
func (r *Repository) Drafts() ([]models.GeneratedDraft, error) {
	var drafts []models.GeneratedDraft
	if _, err := r.getJSON(ScopeLocal, KeyDrafts, &drafts); err != nil {
		return nil, err
	}
	if drafts == nil {
		drafts = []models.GeneratedDraft{}
	}
	return drafts, nil
}
