// Package taskid implements the composite task identifier scheme:
// "{YYYYMMDD}_{sequence}", unique per student and date.
package taskid

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateKeyLen = 8

// FormatDateKey renders t as a YYYYMMDD key in t's location.
func FormatDateKey(t time.Time) string {
	return t.Format("20060102")
}

// TodayKey returns today's date key in loc.
func TodayKey(loc *time.Location) string {
	return FormatDateKey(time.Now().In(loc))
}

// ValidDateKey reports whether s is an 8-digit date key.
func ValidDateKey(s string) bool {
	if len(s) != dateKeyLen {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Generate builds a task id from a date key and a sequence number.
// Unlike its predecessor it rejects bad inputs instead of emitting
// malformed ids.
func Generate(dateKey string, sequence int) (string, error) {
	if !ValidDateKey(dateKey) {
		return "", fmt.Errorf("invalid date key %q", dateKey)
	}
	if sequence <= 0 {
		return "", fmt.Errorf("sequence must be positive, got %d", sequence)
	}
	return dateKey + "_" + strconv.Itoa(sequence), nil
}

// DateOf extracts the date key from a task id. The result must be checked
// with ValidDateKey by callers that require a well-formed date.
func DateOf(taskID string) (string, error) {
	date, _, found := strings.Cut(taskID, "_")
	if !found || date == "" {
		return "", fmt.Errorf("malformed task id %q", taskID)
	}
	return date, nil
}

// SequenceOf extracts the sequence number from a task id. A missing or
// unparseable sequence yields 1: legacy ids predate the scheme and must
// keep resolving rather than erroring.
func SequenceOf(taskID string) int {
	_, rest, found := strings.Cut(taskID, "_")
	if !found {
		return 1
	}
	seq, err := strconv.Atoi(rest)
	if err != nil || seq <= 0 {
		return 1
	}
	return seq
}

// NextSequence returns the next free sequence number for dateKey given the
// task ids already in use: one past the maximum existing sequence, or 1.
func NextSequence(existingTaskIDs []string, dateKey string) int {
	maxSeq := 0
	prefix := dateKey + "_"
	for _, id := range existingTaskIDs {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		if seq := SequenceOf(id); seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq + 1
}
