package api

import (
	"net/http"

	"github.com/okian/vantage/internal/domain/model"
)

type studentsResponse struct {
	Students []model.Student `json:"students"`
}

// StudentsHandler handles roster requests.
type StudentsHandler struct {
	deps Dependencies
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(deps Dependencies) *StudentsHandler {
	return &StudentsHandler{deps: deps}
}

// HandleGetStudents handles GET /api requests. Repeated class parameters
// filter the roster, empty values included. Without any class parameter the
// whole roster is returned.
func (h *StudentsHandler) HandleGetStudents(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_students"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, op, http.MethodGet, http.MethodOptions)
		return
	}

	classes := r.URL.Query()["class"]

	students := h.deps.Students(r.Context(), classes)
	if students == nil {
		students = []model.Student{}
	}
	writeJSON(w, http.StatusOK, studentsResponse{Students: students})
}
