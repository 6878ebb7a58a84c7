package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"splice/internal/logging"
)

// shortID trims UUIDs to their first segment for table display.
func shortID(id string) string {
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatLogEvent(evt logging.LogEvent) string {
	var sb strings.Builder
	sb.WriteString(evt.Timestamp.Local().Format(time.TimeOnly))
	sb.WriteString(" ")
	sb.WriteString(fmt.Sprintf("%-5s", evt.Level))
	if evt.Component != "" {
		sb.WriteString(" [")
		sb.WriteString(evt.Component)
		sb.WriteString("]")
	}
	sb.WriteString(" ")
	sb.WriteString(evt.Message)

	if evt.SessionID != "" {
		sb.WriteString(" session=")
		sb.WriteString(shortID(evt.SessionID))
	}
	if evt.MediaID != "" {
		sb.WriteString(" media=")
		sb.WriteString(shortID(evt.MediaID))
	}

	if len(evt.Fields) > 0 {
		keys := make([]string, 0, len(evt.Fields))
		for key := range evt.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			sb.WriteString(" ")
			sb.WriteString(key)
			sb.WriteString("=")
			sb.WriteString(evt.Fields[key])
		}
	}
	return sb.String()
}
