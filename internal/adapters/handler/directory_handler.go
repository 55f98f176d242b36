package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

type DirectoryHandler struct {
	service ports.DirectoryService
	reader  ports.DirectoryReader
	logger  *zap.Logger
}

func NewDirectoryHandler(service ports.DirectoryService, reader ports.DirectoryReader, logger *zap.Logger) *DirectoryHandler {
	return &DirectoryHandler{service: service, reader: reader, logger: logger}
}

type ConfirmRequest struct {
	Confirm string `json:"confirm"`
}

type DepartmentsResponse struct {
	Departments []domain.Department `json:"departments"`
}

// Routes is how cmd/api wires the handler: wrap decides which routes need
// authentication.
func (h *DirectoryHandler) Routes(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/admin/departments", wrap(h.ListDepartments))
	mux.HandleFunc("POST /api/admin/departments", wrap(h.CreateDepartment))
	mux.HandleFunc("PUT /api/admin/departments/{id}", wrap(h.UpdateDepartment))
	mux.HandleFunc("POST /api/admin/departments/{id}/archive", wrap(h.ArchiveDepartment))
	mux.HandleFunc("POST /api/admin/departments/{id}/restore", wrap(h.RestoreDepartment))
	mux.HandleFunc("DELETE /api/admin/departments/{id}", wrap(h.DeleteDepartment))
	mux.HandleFunc("POST /api/admin/departments/{id}/courses", wrap(h.AddCourse))
	mux.HandleFunc("PUT /api/admin/departments/{id}/courses/{code}", wrap(h.UpdateCourse))
	mux.HandleFunc("DELETE /api/admin/departments/{id}/courses/{code}", wrap(h.RemoveCourse))
	mux.HandleFunc("POST /api/admin/directory/recovery", wrap(h.RunRecovery))
	mux.HandleFunc("POST /api/admin/directory/resolve", wrap(h.ResolveMembers))
	mux.HandleFunc("GET /api/admin/{kind}", wrap(h.LoadRoster))
	mux.HandleFunc("POST /api/admin/{kind}", wrap(h.SaveMember))
	mux.HandleFunc("PUT /api/admin/{kind}/{memberID}", wrap(h.SaveMember))
	mux.HandleFunc("DELETE /api/admin/{kind}/{memberID}", wrap(h.RemoveMember))
}

// ListDepartments serves the cached view, which follows every write made by
// this or any other session.
func (h *DirectoryHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, DepartmentsResponse{Departments: h.reader.Departments()})
}

func (h *DirectoryHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var in domain.DepartmentInput
	if !h.decode(w, r, &in) {
		return
	}

	depts, err := h.service.CreateDepartment(r.Context(), in)
	h.respondDepartments(w, http.StatusCreated, depts, err)
}

func (h *DirectoryHandler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	var patch domain.DepartmentPatch
	if !h.decode(w, r, &patch) {
		return
	}

	depts, err := h.service.UpdateDepartment(r.Context(), r.PathValue("id"), patch)
	h.respondDepartments(w, http.StatusOK, depts, err)
}

func (h *DirectoryHandler) ArchiveDepartment(w http.ResponseWriter, r *http.Request) {
	confirm, ok := h.confirmation(w, r)
	if !ok {
		return
	}
	depts, err := h.service.ArchiveDepartment(r.Context(), r.PathValue("id"), confirm)
	h.respondDepartments(w, http.StatusOK, depts, err)
}

func (h *DirectoryHandler) RestoreDepartment(w http.ResponseWriter, r *http.Request) {
	confirm, ok := h.confirmation(w, r)
	if !ok {
		return
	}
	depts, err := h.service.RestoreDepartment(r.Context(), r.PathValue("id"), confirm)
	h.respondDepartments(w, http.StatusOK, depts, err)
}

func (h *DirectoryHandler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	confirm, ok := h.confirmation(w, r)
	if !ok {
		return
	}
	depts, err := h.service.DeleteDepartmentPermanently(r.Context(), r.PathValue("id"), confirm)
	h.respondDepartments(w, http.StatusOK, depts, err)
}

func (h *DirectoryHandler) AddCourse(w http.ResponseWriter, r *http.Request) {
	var course domain.Course
	if !h.decode(w, r, &course) {
		return
	}
	depts, err := h.service.AddCourse(r.Context(), r.PathValue("id"), course)
	h.respondDepartments(w, http.StatusCreated, depts, err)
}

func (h *DirectoryHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	var course domain.Course
	if !h.decode(w, r, &course) {
		return
	}
	depts, err := h.service.UpdateCourse(r.Context(), r.PathValue("id"), r.PathValue("code"), course)
	h.respondDepartments(w, http.StatusOK, depts, err)
}

func (h *DirectoryHandler) RemoveCourse(w http.ResponseWriter, r *http.Request) {
	depts, err := h.service.RemoveCourse(r.Context(), r.PathValue("id"), r.PathValue("code"))
	h.respondDepartments(w, http.StatusOK, depts, err)
}

func (h *DirectoryHandler) RunRecovery(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.RunRecovery(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, report)
}

func (h *DirectoryHandler) ResolveMembers(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ResolveMemberDepartments(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, report)
}

// LoadRoster is what opening a management screen does: recover any
// free-text departments, then return the collection.
func (h *DirectoryHandler) LoadRoster(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseMemberKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	roster, err := h.service.LoadRoster(r.Context(), kind)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, roster)
}

func (h *DirectoryHandler) SaveMember(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseMemberKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var member domain.Member
	if !h.decode(w, r, &member) {
		return
	}

	status := http.StatusCreated
	if id := r.PathValue("memberID"); id != "" {
		member.ID = id
		status = http.StatusOK
	}

	saved, err := h.service.SaveMember(r.Context(), kind, member)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, status, saved)
}

func (h *DirectoryHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseMemberKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.service.RemoveMember(r.Context(), kind, r.PathValue("memberID")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DirectoryHandler) respondDepartments(w http.ResponseWriter, status int, depts []domain.Department, err error) {
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, status, DepartmentsResponse{Departments: depts})
}

func (h *DirectoryHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, h.logger, http.StatusBadRequest, errorResponse{Error: "invalid request payload"})
		return false
	}
	return true
}

// confirmation takes the confirm query parameter, falling back to a JSON
// body. A missing confirmation is passed through so the service rejects it.
func (h *DirectoryHandler) confirmation(w http.ResponseWriter, r *http.Request) (domain.Confirmation, bool) {
	if c := r.URL.Query().Get("confirm"); c != "" {
		return domain.Confirmation(c), true
	}
	if r.Body == nil || r.ContentLength == 0 {
		return "", true
	}
	var req ConfirmRequest
	if !h.decode(w, r, &req) {
		return "", false
	}
	return domain.Confirmation(req.Confirm), true
}
