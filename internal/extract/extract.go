// Package extract turns raw delivery-platform notification text into
// structured order fields. Pure functions, no state.
package extract

import (
	"regexp"
	"strings"
)

// Fields is the best-effort result of parsing one notification.
// Addresses keeps pattern-evaluation order; callers treat the first entry as
// pickup and the second as delivery.
type Fields struct {
	OrderNumber string
	Addresses   []string
}

// Минимальная длина адреса после trim; короче — шум.
const minAddressLen = 6

// Order-number patterns in priority order. Evaluation short-circuits on the
// first pattern that matches anywhere in the text, so a literal "#1234" wins
// over a bare 4-digit run found elsewhere.
var orderNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)#(\d+)`),
	regexp.MustCompile(`(?i)Order[:\s]+#?(\d+)`),
	regexp.MustCompile(`(?i)Order ID[:\s]+#?(\d+)`),
	regexp.MustCompile(`(?i)(\d{4,})`),
}

// Address label patterns, fixed evaluation order. Each captures up to the
// next "|" field separator.
var addressPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Pickup[:\s]+([^|]+)`),
	regexp.MustCompile(`(?i)Pick[- ]?up[:\s]+([^|]+)`),
	regexp.MustCompile(`(?i)Deliver[:\s]+([^|]+)`),
	regexp.MustCompile(`(?i)Delivery[:\s]+([^|]+)`),
	regexp.MustCompile(`(?i)To[:\s]+([^|]+)`),
	regexp.MustCompile(`(?i)From[:\s]+([^|]+)`),
}

// Extract parses a notification title and body. It never fails: anything it
// cannot find degrades to a zero value.
func Extract(title, body string) Fields {
	return Fields{
		OrderNumber: extractOrderNumber(title + " " + body),
		Addresses:   extractAddresses(body),
	}
}

func extractOrderNumber(text string) string {
	for _, re := range orderNumberPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

func extractAddresses(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	for _, re := range addressPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		addr := strings.TrimSpace(m[1])
		if len(addr) < minAddressLen {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}
