// Package startupcheck scans raw Godot console and debugger output for
// startup errors and extracts structured records from them.
package startupcheck

import (
	"regexp"
	"strconv"
	"strings"
)

// fatalPatterns are the substrings that mark a log line as a blocking startup
// error in strict launch mode.
var fatalPatterns = []string{
	"node not found",
	"cannot call method",
	"invalid access",
	"invalid call",
	"script error",
	"parse error",
}

// errorMarkers mark a line as error-ish in Godot output. Broader than the
// fatal vocabulary; used for advisory reporting and crash diagnostics.
var errorMarkers = []string{
	"error",
	"exception",
	"traceback",
	"script error",
	"node not found",
}

// defaultPathPattern extracts a resource path and line number from lines like
// "At: res://scripts/player.gd:42" or "(res://scenes/main.gd:7)".
var defaultPathPattern = regexp.MustCompile(`(res://[^\s:,)]+):(\d+)`)

// prefixPattern strips leading "SCRIPT ERROR:", "Parse Error:", or "ERROR:"
// so the record carries just the core message.
var prefixPattern = regexp.MustCompile(`(?i)(?:SCRIPT ERROR|Parse Error|ERROR)\s*:\s*(.+)`)

// Record is one structured startup error.
type Record struct {
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// Classifier turns raw log text into startup error records. The path pattern
// is swappable for environments that do not use res:// resource paths.
type Classifier struct {
	pathPattern *regexp.Regexp
}

func NewClassifier() *Classifier {
	return &Classifier{pathPattern: defaultPathPattern}
}

// SetPathPattern replaces the file:line extraction pattern. The pattern must
// have two capture groups: path and line number.
func (c *Classifier) SetPathPattern(pattern *regexp.Regexp) {
	if pattern != nil {
		c.pathPattern = pattern
	}
}

// IsFatal reports whether a line matches any fatal startup error pattern.
func (c *Classifier) IsFatal(line string) bool {
	lowered := strings.ToLower(strings.TrimSpace(line))
	if lowered == "" {
		return false
	}
	for _, pattern := range fatalPatterns {
		if strings.Contains(lowered, pattern) {
			return true
		}
	}
	return false
}

// Parse extracts a structured record from a single error line.
func (c *Classifier) Parse(line string) Record {
	stripped := strings.TrimSpace(line)
	record := Record{Message: stripped}

	if m := c.pathPattern.FindStringSubmatch(stripped); m != nil {
		record.File = m[1]
		if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
			record.Line = n
		}
	}
	if m := prefixPattern.FindStringSubmatch(stripped); m != nil {
		record.Message = strings.TrimSpace(m[1])
	}
	return record
}

// Classify scans output for fatal startup errors and returns structured
// records, deduplicated by raw line text in encounter order.
func (c *Classifier) Classify(output string) []Record {
	var records []Record
	seen := make(map[string]struct{})
	for _, line := range strings.Split(output, "\n") {
		if !c.IsFatal(line) {
			continue
		}
		key := strings.TrimSpace(line)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		records = append(records, c.Parse(line))
	}
	return records
}

// IsErrorLine reports whether a line looks like an error in Godot output.
func IsErrorLine(line string) bool {
	stripped := strings.TrimSpace(line)
	if stripped == "" {
		return false
	}
	lowered := strings.ToLower(stripped)
	for _, marker := range errorMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// ErrorLines returns the trimmed error-ish lines of output, in order.
func ErrorLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		if IsErrorLine(line) {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	return lines
}

// TruncateTail returns at most the last maxLines lines of trimmed output, so
// diagnostic payloads keep the most recent context without unbounded size.
func TruncateTail(output string, maxLines int) string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" || maxLines <= 0 {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) > maxLines {
		return strings.Join(lines[len(lines)-maxLines:], "\n")
	}
	return trimmed
}
