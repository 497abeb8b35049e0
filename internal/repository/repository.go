// Package repository layers typed access for assignments, submissions and
// the roster over the document-store capability.
package repository

import (
	"encoding/json"
	"fmt"

	"practice_service/internal/docstore"
)

// ErrNotFound re-exports the docstore sentinel so callers do not need to
// know which layer produced the miss.
var ErrNotFound = docstore.ErrNotFound

const (
	usersCollection       = "users"
	rosterCollection      = "roster"
	assignmentsCollection = "assignments"
	submissionsCollection = "submissions"
)

func assignmentPath(studentID, dateKey string) string {
	return fmt.Sprintf("%s/%s/%s/%s", usersCollection, studentID, assignmentsCollection, dateKey)
}

func assignmentsPath(studentID string) string {
	return fmt.Sprintf("%s/%s/%s", usersCollection, studentID, assignmentsCollection)
}

func submissionPath(studentID, docID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", usersCollection, studentID, submissionsCollection, docID)
}

func submissionsPath(studentID string) string {
	return fmt.Sprintf("%s/%s/%s", usersCollection, studentID, submissionsCollection)
}

func rosterPath(studentID string) string {
	return fmt.Sprintf("%s/%s", rosterCollection, studentID)
}

// toMap converts a typed document into the docstore's generic shape.
func toMap(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	out := make(map[string]interface{})
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return out, nil
}

// fromMap decodes the docstore's generic shape into a typed document.
func fromMap(data map[string]interface{}, v interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}
