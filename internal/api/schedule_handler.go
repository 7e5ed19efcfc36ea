package api

import (
	"net/http"
)

// ListSchedules возвращает расписания планировщика.
// GET /api/v1/schedules?task=...
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	if h.schedules == nil {
		List(w, []ScheduleResponse{}, 0)
		return
	}

	task := r.URL.Query().Get("task")

	schedules := h.schedules.Schedules()
	result := make([]ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		if task != "" && schedules[i].Task != task {
			continue
		}
		result = append(result, ScheduleFromDomain(&schedules[i]))
	}

	List(w, result, len(result))
}
