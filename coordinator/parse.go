package coordinator

import "strings"

const (
	subjectMarker = "SUBJECT:"
	bodyMarker    = "BODY:"

	// DefaultSubject is used when the completion has no SUBJECT: line
	DefaultSubject = "Generated Email"
)

// ParseDraft splits completion text into subject and body.
// Everything from the BODY: line to the end is body; without one the whole text is the body.
func ParseDraft(content string) (subject, body string) {
	var bodyLines []string
	inBody := false

	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, subjectMarker):
			subject = strings.TrimSpace(strings.TrimPrefix(line, subjectMarker))
		case strings.HasPrefix(line, bodyMarker):
			inBody = true
			bodyLines = []string{strings.TrimSpace(strings.TrimPrefix(line, bodyMarker))}
		case inBody:
			bodyLines = append(bodyLines, line)
		}
	}

	if subject == "" {
		subject = DefaultSubject
	}
	body = strings.TrimSpace(strings.Join(bodyLines, "\n"))
	if body == "" {
		body = content
	}
	return subject, body
}
