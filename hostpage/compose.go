// Package hostpage reads drafting fields from a webmail compose page and writes generated drafts back into it.
package hostpage

import (
	"bytes"
	"io"
	"strings"

	"smartdraft/models"
	"smartdraft/utils"

	"golang.org/x/net/html"
)

// Overlay form field ids
const (
	FieldEmailType = "email-type"
	FieldRecipient = "recipient"
	FieldSubject   = "subject"
	FieldContext   = "context"
	FieldTone      = "tone"
)

// EventInput is fired on every field Insert writes to
const EventInput = "input"

// EventSink receives the events a browser would dispatch after a field changes
type EventSink interface {
	Fire(target *html.Node, event string)
}

// EventFunc adapts a function to EventSink
type EventFunc func(target *html.Node, event string)

func (f EventFunc) Fire(target *html.Node, event string) { f(target, event) }

type noopSink struct{}

func (noopSink) Fire(*html.Node, string) {}

// Document is a parsed compose page
type Document struct {
	root   *html.Node
	events EventSink
}

// InsertResult reports which compose fields were found and written
type InsertResult struct {
	Subject bool
	Body    bool
}

// Parse reads a page. events may be nil.
func Parse(r io.Reader, events EventSink) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = noopSink{}
	}
	return &Document{root: root, events: events}, nil
}

// ParseString is Parse over an in-memory page
func ParseString(page string, events EventSink) (*Document, error) {
	return Parse(strings.NewReader(page), events)
}

// ReadRequest collects the overlay form values keyed the way generateEmail expects them.
// Missing fields are left out.
func (d *Document) ReadRequest() map[string]interface{} {
	fields := map[string]string{
		FieldEmailType: "emailType",
		FieldRecipient: "recipient",
		FieldSubject:   "subject",
		FieldContext:   "context",
		FieldTone:      "tone",
	}

	out := make(map[string]interface{}, len(fields))
	for id, key := range fields {
		n := find(d.root, byID(id))
		if n == nil {
			continue
		}
		out[key] = fieldValue(n)
	}
	return out
}

// Insert writes the draft into the compose window, or the whole page when no window is open.
// A missing subject or body field is skipped.
func (d *Document) Insert(draft *models.GeneratedDraft) InsertResult {
	var res InsertResult
	if draft == nil {
		return res
	}

	window := find(d.root, hasClasses("M9"))
	if window == nil {
		window = d.root
	}

	subject := first(window,
		and(isTag("input"), attrEquals("name", "subjectbox")),
		attrContains("placeholder", "Subject"),
	)
	if subject != nil {
		setAttr(subject, "value", draft.Subject)
		d.events.Fire(subject, EventInput)
		res.Subject = true
	}

	body := first(window,
		attrEquals("role", "textbox"),
		hasClasses("Am", "Al", "editable"),
	)
	if body != nil {
		if err := setInnerHTML(body, utils.BodyToHTML(draft.Body)); err != nil {
			utils.Log.Warn("Failed to write compose body: %v", err)
		} else {
			d.events.Fire(body, EventInput)
			res.Body = true
		}
	}

	return res
}

// Render writes the page back out
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

type matcher func(n *html.Node) bool

func byID(id string) matcher {
	return attrEquals("id", id)
}

func isTag(tag string) matcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

func attrEquals(key, val string) matcher {
	return func(n *html.Node) bool {
		v, ok := attr(n, key)
		return ok && v == val
	}
}

func attrContains(key, sub string) matcher {
	return func(n *html.Node) bool {
		v, ok := attr(n, key)
		return ok && strings.Contains(v, sub)
	}
}

func hasClasses(classes ...string) matcher {
	return func(n *html.Node) bool {
		v, ok := attr(n, "class")
		if !ok {
			return false
		}
		have := strings.Fields(v)
		for _, want := range classes {
			found := false
			for _, c := range have {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}
}

func and(ms ...matcher) matcher {
	return func(n *html.Node) bool {
		for _, m := range ms {
			if !m(n) {
				return false
			}
		}
		return true
	}
}

// find returns the first descendant of root in document order matching m
func find(root *html.Node, m matcher) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && m(c) {
			return c
		}
		if n := find(c, m); n != nil {
			return n
		}
	}
	return nil
}

// first tries each matcher in order
func first(root *html.Node, ms ...matcher) *html.Node {
	for _, m := range ms {
		if n := find(root, m); n != nil {
			return n
		}
	}
	return nil
}

func attr(n *html.Node, key string) (string, bool) {
	if n.Type != html.ElementNode {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func setInnerHTML(n *html.Node, markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), n)
	if err != nil {
		return err
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

// fieldValue reads a form control the way a browser reports .value
func fieldValue(n *html.Node) string {
	switch n.Data {
	case "textarea":
		return textContent(n)
	case "select":
		var firstOpt *html.Node
		var selected *html.Node
		walk(n, func(c *html.Node) {
			if c.Type != html.ElementNode || c.Data != "option" {
				return
			}
			if firstOpt == nil {
				firstOpt = c
			}
			if _, ok := attr(c, "selected"); ok && selected == nil {
				selected = c
			}
		})
		if selected == nil {
			selected = firstOpt
		}
		if selected == nil {
			return ""
		}
		if v, ok := attr(selected, "value"); ok {
			return v
		}
		return strings.TrimSpace(textContent(selected))
	default:
		v, _ := attr(n, "value")
		return v
	}
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return sb.String()
}

func walk(n *html.Node, fn func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		fn(c)
		walk(c, fn)
	}
}
