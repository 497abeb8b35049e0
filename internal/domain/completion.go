package domain

// CompletionEntry is a client-facing completion cache record, keyed by
// (studentID, taskID) in the new scheme or (studentID, dateKey) in the
// legacy one. It is provisional: the submission store overrides it.
type CompletionEntry struct {
	TaskID          string `json:"taskId"`
	CompletedAt     Millis `json:"completedAt"`
	Locked          bool   `json:"locked"`
	Source          string `json:"source,omitempty"`
	ServerConfirmed bool   `json:"serverConfirmed,omitempty"`
	// LockAccess is recorded for compatibility with entries written by the
	// exercise modules; it never changes the completion verdict.
	LockAccess   bool   `json:"lockAccess,omitempty"`
	MigratedFrom string `json:"migratedFrom,omitempty"`
	CachedAt     Millis `json:"cachedAt,omitempty"`
}

const (
	CompletionSourceServer    = "server_confirmed"
	CompletionSourceLocal     = "local"
	CompletionSourceMigration = "date_key_migration"
	CompletionSourceTeacher   = "teacher_confirmed"
)
