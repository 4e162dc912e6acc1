package utils

import (
	"strings"

	"github.com/yukikurage/freelance-crm-api/internal/constants"
)

// ParseTags splits delimited tag input, trimming each tag and dropping empties.
// Order is preserved.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, part := range strings.Split(raw, constants.TagDelimiter) {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
