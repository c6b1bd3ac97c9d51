package api

import (
	"smartdraft/storage"
	"smartdraft/utils"

	"github.com/gofiber/fiber/v2"
)

// DraftHandler lists stored drafts
type DraftHandler struct {
	repo *storage.Repository
}

func NewDraftHandler(repo *storage.Repository) *DraftHandler {
	return &DraftHandler{repo: repo}
}

// ListDrafts returns every stored draft, oldest first. Subjects are plain text,
// so any markup the model emitted is stripped before listing.
func (h *DraftHandler) ListDrafts(c *fiber.Ctx) error {
	drafts, err := h.repo.Drafts()
	if err != nil {
		return utils.InternalServerError("Failed to load drafts", err)
	}
	for i := range drafts {
		drafts[i].Subject = utils.StripHTML(drafts[i].Subject)
	}
	return c.JSON(fiber.Map{
		"drafts": drafts,
		"total":  len(drafts),
	})
}
