package services

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Policies are safe for concurrent use once built
var (
	sectionPolicy = bluemonday.UGCPolicy()
	plainPolicy   = bluemonday.StrictPolicy()
)

// sanitizeSection cleans a document section that may carry basic formatting (XSS protection)
func sanitizeSection(s string) string {
	return strings.TrimSpace(sectionPolicy.Sanitize(s))
}

// sanitizePlain strips all markup from short free text (notes, reasons, statements)
func sanitizePlain(s string) string {
	return strings.TrimSpace(plainPolicy.Sanitize(s))
}

func sanitizeSections(sections map[string]string) map[string]string {
	out := make(map[string]string, len(sections))
	for k, v := range sections {
		out[k] = sanitizeSection(v)
	}
	return out
}
