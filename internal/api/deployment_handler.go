package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/shaiso/Strano/internal/domain"
	"github.com/shaiso/Strano/internal/repo"
)

const historyDisabled = "deployment history is not configured"

// ListDeployments возвращает историю выкладок с фильтрацией.
// GET /api/v1/deployments?task=...&status=...&limit=...&offset=...
func (h *Handler) ListDeployments(w http.ResponseWriter, r *http.Request) {
	if h.deployments == nil {
		Unavailable(w, historyDisabled)
		return
	}

	filter := repo.DeploymentFilter{
		Task: r.URL.Query().Get("task"),
	}

	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		filter.Status = domain.ParseDeploymentStatus(strings.ToUpper(statusStr))
		if filter.Status == "" {
			BadRequest(w, "invalid status")
			return
		}
	}

	limit, err := queryInt(r, "limit", repo.DefaultListLimit)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	filter.Limit = limit

	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	filter.Offset = offset

	deployments, err := h.deployments.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]DeploymentResponse, len(deployments))
	for i := range deployments {
		result[i] = DeploymentFromDomain(&deployments[i])
	}

	List(w, result, len(result))
}

// GetDeployment возвращает запись о выкладке по ID.
// GET /api/v1/deployments/{id}
func (h *Handler) GetDeployment(w http.ResponseWriter, r *http.Request) {
	if h.deployments == nil {
		Unavailable(w, historyDisabled)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid deployment id")
		return
	}

	d, err := h.deployments.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "deployment not found") {
		return
	}

	Success(w, DeploymentFromDomain(d))
}
