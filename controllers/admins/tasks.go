package admins

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/middleware"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/services"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/utils"
)

type TaskController struct {
	Lifecycle *services.TaskLifecycleService
	Tasks     services.TaskRepository
	Proofs    *utils.ProofStore
}

func NewTaskController(lifecycle *services.TaskLifecycleService, tasks services.TaskRepository, proofs *utils.ProofStore) *TaskController {
	return &TaskController{Lifecycle: lifecycle, Tasks: tasks, Proofs: proofs}
}

func taskID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

type TaskRequest struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Type           string     `json:"type"`
	PointsValue    int        `json:"points_value"`
	AssignedTo     *uint      `json:"assigned_to"`
	DueAt          *time.Time `json:"due_at"`
	UnlockAt       *time.Time `json:"unlock_at"`
	ExecutionLimit *int       `json:"execution_limit"`
}

// GET /admin/tasks?status=&type=
func (c *TaskController) List(w http.ResponseWriter, r *http.Request) {
	filter := services.TaskFilter{OrderBy: "id DESC", Limit: 500}
	if s := r.URL.Query().Get("status"); s != "" {
		filter.Statuses = []string{s}
	}
	filter.Type = r.URL.Query().Get("type")

	tasks, err := c.Tasks.FindMany(r.Context(), filter)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "DB error"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: tasks})
}

// GET /admin/tasks/review
// The pending queue with presigned proof URLs for the review surface.
func (c *TaskController) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	tasks, err := c.Tasks.FindMany(r.Context(), services.TaskFilter{
		Statuses: []string{models.TaskStatusPending},
		OrderBy:  "updated_at ASC",
		Limit:    200,
	})
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "DB error"})
		return
	}

	resp := make([]map[string]interface{}, 0, len(tasks))
	for _, t := range tasks {
		item := map[string]interface{}{
			"id":           t.ID,
			"title":        t.Title,
			"type":         t.Type,
			"points_value": t.PointsValue,
			"assigned_to":  t.AssignedTo,
			"due_at":       t.DueAt,
		}
		if t.ProofKey != nil {
			if url, err := c.Proofs.GetReadURL(r.Context(), *t.ProofKey); err == nil {
				item["proof_url"] = url
			}
		}
		resp = append(resp, item)
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: resp})
}

// POST /admin/tasks
func (c *TaskController) Create(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid request body"})
		return
	}
	task, err := c.Lifecycle.CreateTask(r.Context(), middleware.Actor(r), services.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Type:           req.Type,
		PointsValue:    req.PointsValue,
		AssignedTo:     req.AssignedTo,
		DueAt:          req.DueAt,
		UnlockAt:       req.UnlockAt,
		ExecutionLimit: req.ExecutionLimit,
	})
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Task created", Data: task})
}

// PUT /admin/tasks/{id}
func (c *TaskController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}
	var req struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		PointsValue *int       `json:"points_value"`
		AssignedTo  *uint      `json:"assigned_to"`
		DueAt       *time.Time `json:"due_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid request body"})
		return
	}
	task, err := c.Lifecycle.UpdateTask(r.Context(), middleware.Actor(r), id, services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		PointsValue: req.PointsValue,
		AssignedTo:  req.AssignedTo,
		DueAt:       req.DueAt,
	})
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Task updated", Data: task})
}

// DELETE /admin/tasks/{id}
func (c *TaskController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}
	if err := c.Lifecycle.DeleteTask(r.Context(), middleware.Actor(r), id); err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Task deleted"})
}

// POST /admin/tasks/{id}/approve
// Optional points override adjusts both the task and the published award.
func (c *TaskController) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}
	var req struct {
		PointsOverride *int `json:"points_override"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	task, err := c.Lifecycle.Approve(r.Context(), middleware.Actor(r), id, req.PointsOverride)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Task approved", Data: task})
}

// POST /admin/tasks/{id}/reject
func (c *TaskController) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}
	task, err := c.Lifecycle.Reject(r.Context(), middleware.Actor(r), id)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Task rejected", Data: task})
}
