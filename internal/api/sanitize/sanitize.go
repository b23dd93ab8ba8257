// Package sanitize normalizes customer-submitted fields before they reach
// storage or email templates.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	notesPolicyOnce sync.Once
	notesPolicy     *bluemonday.Policy
)

func Text(input string) string {
	return html.EscapeString(strings.TrimSpace(input))
}

func TextPtr(input *string) *string {
	if input == nil {
		return nil
	}
	value := Text(*input)
	return &value
}

// StringSlice escapes each entry and drops empties, used for hair concern
// lists submitted with a checkout request.
func StringSlice(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	out := make([]string, 0, len(values))
	for _, item := range values {
		escaped := Text(item)
		if escaped == "" {
			continue
		}
		out = append(out, escaped)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// Notes allows a small HTML subset for consultation notes written by staff.
func Notes(input string) string {
	value := strings.TrimSpace(input)
	if value == "" {
		return ""
	}
	return getNotesPolicy().Sanitize(value)
}

func NotesPtr(input *string) *string {
	if input == nil {
		return nil
	}
	value := Notes(*input)
	return &value
}

func getNotesPolicy() *bluemonday.Policy {
	notesPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowElements("p", "pre", "code", "blockquote")
		notesPolicy = policy
	})

	return notesPolicy
}
