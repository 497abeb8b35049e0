package domain

// AssignmentDocument is the set of tasks due on one date for one student,
// stored at users/{studentID}/assignments/{dateKey}. A document with an
// empty task list must not exist: it is deleted instead.
type AssignmentDocument struct {
	Tasks       []TaskDescriptor `json:"tasks"`
	Date        string           `json:"date"`
	Status      string           `json:"status,omitempty"`
	AssignedBy  string           `json:"assignedBy,omitempty"`
	AssignedAt  Millis           `json:"assignedAt,omitempty"`
	LastUpdated Millis           `json:"lastUpdated,omitempty"`
}

const AssignmentStatusAssigned = "assigned"

// TaskIDs returns the ids of all tasks in display order.
func (d *AssignmentDocument) TaskIDs() []string {
	ids := make([]string, 0, len(d.Tasks))
	for _, t := range d.Tasks {
		ids = append(ids, t.TaskID)
	}
	return ids
}

// HasTask reports whether the document lists taskID.
func (d *AssignmentDocument) HasTask(taskID string) bool {
	for _, t := range d.Tasks {
		if t.TaskID == taskID {
			return true
		}
	}
	return false
}

// HasType reports whether any task uses the given module type.
func (d *AssignmentDocument) HasType(module ModuleType) bool {
	for _, t := range d.Tasks {
		if t.Type == module {
			return true
		}
	}
	return false
}
