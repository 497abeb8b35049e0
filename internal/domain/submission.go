package domain

import (
	"encoding/json"
)

// ModuleRecord is one module's submission inside a submission document.
// A populated SubmittedAt is the canonical completion signal. Exact fields
// vary by module; unknown ones are preserved through Extra.
type ModuleRecord struct {
	SubmittedAt     Millis                 `json:"submittedAt"`
	ModuleID        ModuleType             `json:"moduleId"`
	TaskID          string                 `json:"taskId,omitempty"`
	Score           *float64               `json:"score,omitempty"`
	CorrectText     string                 `json:"correctText,omitempty"`
	ReadingText     string                 `json:"readingText,omitempty"`
	ImageURL        string                 `json:"imageUrl,omitempty"`
	SubmittedPhoto  string                 `json:"submittedPhoto,omitempty"`
	SentenceIndex   *int                   `json:"sentenceIndex,omitempty"`
	PlaybackRate    *float64               `json:"playbackRate,omitempty"`
	MissionProgress map[string]interface{} `json:"missionProgress,omitempty"`

	// Teacher confirmation marker fields.
	ConfirmedByTeacher bool   `json:"confirmedByTeacher,omitempty"`
	ConfirmedAt        Millis `json:"confirmedAt,omitempty"`
	ConfirmedBy        string `json:"confirmedBy,omitempty"`
	CompletedAt        Millis `json:"completedAt,omitempty"`
}

// SubmissionDocument records a student's work for one task id (or, on the
// legacy path, one date), stored at users/{studentID}/submissions/{docID}.
// On the wire each module's record is a top-level field keyed by module id,
// alongside lastUpdated and taskId metadata; Modules holds them typed.
type SubmissionDocument struct {
	TaskID      string
	LastUpdated Millis
	Modules     map[ModuleType]ModuleRecord
}

const (
	submissionFieldLastUpdated = "lastUpdated"
	submissionFieldTaskID      = "taskId"
)

func (d SubmissionDocument) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(d.Modules)+2)
	for id, rec := range d.Modules {
		out[string(id)] = rec
	}
	out[submissionFieldLastUpdated] = d.LastUpdated
	if d.TaskID != "" {
		out[submissionFieldTaskID] = d.TaskID
	}
	return json.Marshal(out)
}

func (d *SubmissionDocument) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	doc := SubmissionDocument{Modules: make(map[ModuleType]ModuleRecord)}
	for key, val := range raw {
		switch key {
		case submissionFieldLastUpdated:
			if err := json.Unmarshal(val, &doc.LastUpdated); err != nil {
				return err
			}
		case submissionFieldTaskID:
			// Legacy documents store taskId as null.
			var id *string
			if err := json.Unmarshal(val, &id); err != nil {
				return err
			}
			if id != nil {
				doc.TaskID = *id
			}
		default:
			var rec ModuleRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				// Not a module record; skip rather than fail the document.
				continue
			}
			if rec.SubmittedAt == 0 {
				continue
			}
			if rec.ModuleID == "" {
				rec.ModuleID = ModuleType(key)
			}
			doc.Modules[ModuleType(key)] = rec
		}
	}
	*d = doc
	return nil
}

// Latest returns the module record with the greatest SubmittedAt, or nil
// if the document holds no valid records. Ties break on the numeric
// timestamp only; with equal timestamps the first encountered wins.
func (d *SubmissionDocument) Latest() *ModuleRecord {
	var latest *ModuleRecord
	for id := range d.Modules {
		rec := d.Modules[id]
		if latest == nil || rec.SubmittedAt > latest.SubmittedAt {
			latest = &rec
		}
	}
	return latest
}
