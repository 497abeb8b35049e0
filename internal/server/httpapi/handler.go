// Package httpapi is the JSON edge the browser clients talk to. Handlers
// stay thin: decode, call the service, map the error, encode.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"practice_service/internal/domain"
	"practice_service/internal/service"
	"practice_service/internal/tts"
	"practice_service/pkg/logger"
)

type Handler struct {
	assignments *service.AssignmentService
	submissions *service.SubmissionService
	reconciler  *service.Reconciler
	orphans     *service.OrphanService
	roster      *service.RosterService
	tts         *tts.Client
	logger      *logger.Logger
}

func NewHandler(
	assignments *service.AssignmentService,
	submissions *service.SubmissionService,
	reconciler *service.Reconciler,
	orphans *service.OrphanService,
	roster *service.RosterService,
	tts *tts.Client,
	logger *logger.Logger,
) *Handler {
	return &Handler{
		assignments: assignments,
		submissions: submissions,
		reconciler:  reconciler,
		orphans:     orphans,
		roster:      roster,
		tts:         tts,
		logger:      logger,
	}
}

func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	date := chi.URLParam(r, "date")

	doc, err := h.assignments.Get(r.Context(), studentID, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"assignment": doc})
}

func (h *Handler) PutAssignment(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	date := chi.URLParam(r, "date")

	var req service.AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.assignments.Assign(r.Context(), studentID, date, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"assignment": doc})
}

func (h *Handler) BulkAssign(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	var req struct {
		Assignments []service.DatedAssignment `json:"assignments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.assignments.BulkAssign(r.Context(), studentID, req.Assignments)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ClearAssignments(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	module := domain.ModuleType(r.URL.Query().Get("type"))

	deleted, err := h.assignments.ClearAll(r.Context(), studentID, module)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	taskID := chi.URLParam(r, "taskID")
	module := domain.ModuleType(chi.URLParam(r, "module"))

	var req service.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.submissions.Submit(r.Context(), studentID, taskID, module, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// SubmitLegacy handles date-keyed submissions from clients that predate
// task ids; the document key comes from the request body's date.
func (h *Handler) SubmitLegacy(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	module := domain.ModuleType(chi.URLParam(r, "module"))

	var req service.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.submissions.Submit(r.Context(), studentID, "", module, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) LatestSubmission(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	taskID := chi.URLParam(r, "taskID")

	rec, err := h.submissions.Latest(r.Context(), studentID, taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"submission": rec})
}

func (h *Handler) TaskCompleted(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	taskID := chi.URLParam(r, "taskID")

	completed := h.reconciler.IsTaskCompleted(r.Context(), studentID, taskID)
	writeJSON(w, http.StatusOK, map[string]bool{"completed": completed})
}

func (h *Handler) ConfirmTask(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	taskID := chi.URLParam(r, "taskID")

	var req struct {
		Module domain.ModuleType `json:"module"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.reconciler.ConfirmTaskSubmission(r.Context(), studentID, taskID, req.Module); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	taskID := chi.URLParam(r, "taskID")

	result, err := h.submissions.CascadeDelete(r.Context(), studentID, taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ClearModuleCompletion(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	docID := chi.URLParam(r, "docID")
	module := domain.ModuleType(chi.URLParam(r, "module"))

	if err := h.submissions.ClearModuleCompletion(r.Context(), studentID, docID, module); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SubmissionsForDate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")

	rows, err := h.submissions.AllForDate(r.Context(), date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"students": rows})
}

func (h *Handler) ListRoster(w http.ResponseWriter, r *http.Request) {
	entries, err := h.roster.ListStudents(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	type rosterRow struct {
		StudentID string `json:"studentId"`
		*domain.RosterEntry
	}
	rows := make([]rosterRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, rosterRow{StudentID: e.StudentID, RosterEntry: e})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"students": rows})
}

func (h *Handler) AddStudent(w http.ResponseWriter, r *http.Request) {
	var req service.AddStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.roster.AddStudent(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"studentId": entry.StudentID,
		"email":     entry.Email,
	})
}

func (h *Handler) RemoveStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	result, err := h.roster.RemoveStudent(r.Context(), studentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ScanOrphans(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	days := queryInt(r, "days", 7)

	orphans, err := h.orphans.Scan(r.Context(), studentID, days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orphans": orphans})
}

func (h *Handler) CleanupOrphans(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	days := queryInt(r, "days", 7)

	result, err := h.orphans.Cleanup(r.Context(), studentID, days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req tts.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.tts.Synthesize(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadGateway, "speech synthesis unavailable")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
