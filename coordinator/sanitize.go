package coordinator

import (
	"smartdraft/models"
	"smartdraft/utils"
)

// Sanitize coerces raw drafting fields into a bounded DraftRequest.
// It never rejects: out-of-list enums fall back to their defaults.
func Sanitize(fields map[string]interface{}) models.DraftRequest {
	return models.DraftRequest{
		EmailType: models.ParseEmailType(utils.CoerceString(fields["emailType"])),
		Recipient: utils.CleanField(fields["recipient"], models.MaxRecipientLen),
		Subject:   utils.CleanField(fields["subject"], models.MaxSubjectLen),
		Context:   utils.CleanField(fields["context"], models.MaxContextLen),
		Tone:      models.ParseTone(utils.CoerceString(fields["tone"])),
	}
}

// Validate checks the fields that must survive sanitization non-empty
func Validate(req models.DraftRequest) error {
	if req.Recipient == "" || req.Context == "" {
		return utils.ValidationError("Recipient and context are required fields", nil)
	}
	return nil
}
