package coordinator

import (
	"fmt"
	"strings"

	"smartdraft/models"
)

const systemPrompt = "You are a professional email writing assistant. Generate well-structured, appropriate emails based on the given parameters."

// BuildPrompt renders the user turn for a sanitized request
func BuildPrompt(req models.DraftRequest, profile *models.UserProfile) string {
	subject := req.Subject
	if subject == "" {
		subject = "Please suggest an appropriate subject"
	}

	name := "User"
	var background string
	if profile != nil {
		if profile.Name != "" {
			name = profile.Name
		}
		if profile.Resume != "" {
			background = "Background: " + profile.Resume
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate a %s email with the following details:\n\n", req.EmailType)
	fmt.Fprintf(&b, "Email Type: %s\n", req.EmailType)
	fmt.Fprintf(&b, "Recipient: %s\n", req.Recipient)
	fmt.Fprintf(&b, "Subject: %s\n", subject)
	fmt.Fprintf(&b, "Context/Purpose: %s\n", req.Context)
	fmt.Fprintf(&b, "Tone: %s\n\n", req.Tone)
	b.WriteString("Sender Information:\n")
	fmt.Fprintf(&b, "Name: %s\n", name)
	if background != "" {
		b.WriteString(background + "\n")
	}
	b.WriteString("\nPlease format the response as:\n")
	b.WriteString("SUBJECT: [suggested subject line]\n")
	b.WriteString("BODY: [email body content]\n\n")
	b.WriteString("Make sure the email is:\n")
	fmt.Fprintf(&b, "- Professional and appropriate for the %s context\n", req.EmailType)
	fmt.Fprintf(&b, "- Uses the %s tone\n", req.Tone)
	b.WriteString("- Well-structured with proper greeting and closing\n")
	b.WriteString("- Incorporates relevant details from the sender's background when appropriate\n")

	return b.String()
}
