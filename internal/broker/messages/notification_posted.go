package messages

import (
	"strings"
	"time"
)

// NotificationPosted is one raw notification event as published by the
// capture agent on the driver's device.
type NotificationPosted struct {
	SourcePackage string    `json:"source_package"`
	PostedAt      time.Time `json:"posted_at"`

	Title    string `json:"title,omitempty"`
	Text     string `json:"text,omitempty"`
	LongText string `json:"long_text,omitempty"`
}

// FullText joins the short and expanded notification bodies with the field
// separator the extractor splits on.
func (m NotificationPosted) FullText() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{m.Text, m.LongText} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " | ")
}
