package users

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/middleware"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/services"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/utils"
)

type TaskController struct {
	Lifecycle *services.TaskLifecycleService
	Tasks     services.TaskRepository
	Users     services.UserRepository
	Proofs    *utils.ProofStore
}

func NewTaskController(lifecycle *services.TaskLifecycleService, tasks services.TaskRepository, users services.UserRepository, proofs *utils.ProofStore) *TaskController {
	return &TaskController{Lifecycle: lifecycle, Tasks: tasks, Users: users, Proofs: proofs}
}

func taskID(r *http.Request) (uint, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// GET /users/tasks
// Lists every visible (non-locked, non-terminal) task, flagging the
// caller's own assignments.
func (c *TaskController) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.Actor(r)
	member, err := c.Users.FindByExternalID(r.Context(), actor)
	if err != nil {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unknown member"})
		return
	}

	tasks, err := c.Tasks.FindMany(r.Context(), services.TaskFilter{
		Statuses: []string{models.TaskStatusOpen, models.TaskStatusPending, models.TaskStatusRejected},
		OrderBy:  "due_at ASC, id ASC",
		Limit:    200,
	})
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "DB error"})
		return
	}

	resp := make([]map[string]interface{}, 0, len(tasks))
	for _, t := range tasks {
		mine := t.AssignedTo != nil && *t.AssignedTo == member.ID
		if t.Status == models.TaskStatusRejected && !mine {
			// rejected duties are only actionable by their assignee
			continue
		}
		claimable := t.Type == models.TaskTypeBounty && t.Status == models.TaskStatusOpen && t.AssignedTo == nil
		resp = append(resp, map[string]interface{}{
			"id":           t.ID,
			"title":        t.Title,
			"description":  t.Description,
			"type":         t.Type,
			"status":       t.Status,
			"points_value": t.PointsValue,
			"due_at":       t.DueAt,
			"mine":         mine,
			"claimable":    claimable,
		})
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: resp})
}

// POST /users/tasks/{id}/claim
func (c *TaskController) Claim(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}
	task, err := c.Lifecycle.Claim(r.Context(), middleware.Actor(r), id)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Bounty claimed", Data: task})
}

// POST /users/tasks/{id}/proof
// Multipart upload; the image goes to object storage, the task only keeps
// the opaque key.
func (c *TaskController) SubmitProof(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}
	file, header, err := r.FormFile("proof")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Missing proof image"})
		return
	}
	defer file.Close()

	key := utils.NewProofKey(header.Filename)
	if err := utils.UploadProof(r.Context(), key, file); err != nil {
		utils.WriteJSON(w, http.StatusBadGateway, utils.APIResponse{Success: false, Message: "Upload failed, please try again"})
		return
	}

	task, err := c.Lifecycle.SubmitProof(r.Context(), middleware.Actor(r), id, key)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Proof submitted for review", Data: task})
}

// POST /users/tasks/{id}/unclaim
func (c *TaskController) Unclaim(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}
	task, err := c.Lifecycle.Unclaim(r.Context(), middleware.Actor(r), id)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Task released", Data: task})
}
