package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts every route behind the logging and auth middlewares.
// Teacher gating lives in the service layer; the router only establishes
// identity.
func NewRouter(h *Handler, middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	for _, m := range middlewares {
		r.Use(m)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/students/{studentID}", func(r chi.Router) {
			r.Get("/assignments/{date}", h.GetAssignment)
			r.Put("/assignments/{date}", h.PutAssignment)
			r.Post("/assignments/bulk", h.BulkAssign)
			r.Delete("/assignments", h.ClearAssignments)

			r.Route("/tasks/{taskID}", func(r chi.Router) {
				r.Post("/submissions/{module}", h.Submit)
				r.Get("/submission", h.LatestSubmission)
				r.Get("/completed", h.TaskCompleted)
				r.Post("/confirm", h.ConfirmTask)
				r.Delete("/", h.DeleteTask)
			})

			r.Post("/submissions/{module}", h.SubmitLegacy)
			r.Delete("/submissions/{docID}/{module}", h.ClearModuleCompletion)

			r.Get("/orphans", h.ScanOrphans)
			r.Delete("/orphans", h.CleanupOrphans)
		})

		r.Get("/submissions", h.SubmissionsForDate)

		r.Route("/roster", func(r chi.Router) {
			r.Get("/", h.ListRoster)
			r.Post("/", h.AddStudent)
			r.Delete("/{studentID}", h.RemoveStudent)
		})

		r.Post("/tts", h.Synthesize)
	})

	return r
}
