package codec

import (
	"encoding/base64"
	"strings"
)

// LogDataPrefix marks a log line that carries a base64 event record.
const LogDataPrefix = "Program data: "

// ParseLogLine extracts the raw record from a "Program data: <base64>" line.
func ParseLogLine(line string) ([]byte, bool) {
	idx := strings.Index(line, LogDataPrefix)
	if idx < 0 {
		return nil, false
	}
	payload := strings.TrimSpace(line[idx+len(LogDataPrefix):])
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, false
	}
	return data, true
}

// FormatLogLine is the inverse of ParseLogLine.
func FormatLogLine(data []byte) string {
	return LogDataPrefix + base64.StdEncoding.EncodeToString(data)
}

// DecodeLogs decodes every recognised event in a block of log lines, in order.
func DecodeLogs(lines []string) []Event {
	var out []Event
	for _, line := range lines {
		data, ok := ParseLogLine(line)
		if !ok {
			continue
		}
		if ev, ok := Decode(data); ok {
			out = append(out, ev)
		}
	}
	return out
}
