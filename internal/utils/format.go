package utils

import (
	"fmt"
	"strings"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatFileSize renders a byte count for display, e.g. "1.5 MB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(sizeUnits)-1 {
		size /= 1024
		i++
	}
	formatted := strings.TrimSuffix(fmt.Sprintf("%.2f", size), ".00")
	return formatted + " " + sizeUnits[i]
}

// ParseTags splits a comma-delimited tag string, trimming whitespace and
// dropping empty entries.
func ParseTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
