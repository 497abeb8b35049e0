package domain

// RosterEntry is one provisioned student account, stored at
// roster/{studentID}. Removing an entry does not cascade to that student's
// assignment or submission documents unless the configured policy says so.
type RosterEntry struct {
	StudentID   string `json:"-"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   Millis `json:"createdAt"`
	CreatedBy   string `json:"createdBy,omitempty"`
	Active      bool   `json:"active"`
}

// Name returns the best display label for sorting and UI lists.
func (e RosterEntry) Name() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	if e.Email != "" {
		return e.Email
	}
	return e.StudentID
}
