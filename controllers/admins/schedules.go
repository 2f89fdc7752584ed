package admins

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/services"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/utils"
)

type ScheduleController struct {
	Schedules services.ScheduleRepository
	Scheduler *services.SchedulerService
}

func NewScheduleController(schedules services.ScheduleRepository, scheduler *services.SchedulerService) *ScheduleController {
	return &ScheduleController{Schedules: schedules, Scheduler: scheduler}
}

type ScheduleRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	PointsValue    int    `json:"points_value"`
	RecurrenceRule string `json:"recurrence_rule"`
	LeadTimeHours  *int   `json:"lead_time_hours"`
	AssignedTo     *uint  `json:"assigned_to"`
}

// GET /admin/schedules
// Inactive schedules included so they can be toggled back on.
func (c *ScheduleController) List(w http.ResponseWriter, r *http.Request) {
	scheds, err := c.Schedules.FindAll(r.Context())
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "DB error"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: scheds})
}

// POST /admin/schedules
// Validates the recurrence rule up front and generates the first instance
// immediately so the chain starts live.
func (c *ScheduleController) Create(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid request body"})
		return
	}
	if req.Title == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Title is required"})
		return
	}
	if _, err := services.NextOccurrence(req.RecurrenceRule, time.Now().UTC(), 0); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid recurrence rule"})
		return
	}

	sched := &models.Schedule{
		Title:          req.Title,
		Description:    req.Description,
		PointsValue:    req.PointsValue,
		RecurrenceRule: req.RecurrenceRule,
		LeadTimeHours:  24,
		AssignedTo:     req.AssignedTo,
		Active:         true,
	}
	if req.LeadTimeHours != nil && *req.LeadTimeHours >= 0 {
		sched.LeadTimeHours = *req.LeadTimeHours
	}
	if err := c.Schedules.Create(r.Context(), sched); err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "DB error"})
		return
	}

	first, err := c.Scheduler.GenerateNext(r.Context(), sched, nil)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Schedule created", Data: map[string]interface{}{
		"schedule":       sched,
		"first_instance": first,
	}})
}

// PUT /admin/schedules/{id}
// Edits apply to future instances only; the live one keeps its dates.
func (c *ScheduleController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid schedule id"})
		return
	}
	sched, err := c.Schedules.FindByID(r.Context(), id)
	if err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Schedule not found"})
		return
	}

	var req struct {
		Title          *string `json:"title"`
		Description    *string `json:"description"`
		PointsValue    *int    `json:"points_value"`
		RecurrenceRule *string `json:"recurrence_rule"`
		LeadTimeHours  *int    `json:"lead_time_hours"`
		AssignedTo     *uint   `json:"assigned_to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid request body"})
		return
	}
	if req.Title != nil {
		sched.Title = *req.Title
	}
	if req.Description != nil {
		sched.Description = *req.Description
	}
	if req.PointsValue != nil {
		sched.PointsValue = *req.PointsValue
	}
	if req.RecurrenceRule != nil {
		if _, err := services.NextOccurrence(*req.RecurrenceRule, time.Now().UTC(), 0); err != nil {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid recurrence rule"})
			return
		}
		sched.RecurrenceRule = *req.RecurrenceRule
	}
	if req.LeadTimeHours != nil && *req.LeadTimeHours >= 0 {
		sched.LeadTimeHours = *req.LeadTimeHours
	}
	if req.AssignedTo != nil {
		sched.AssignedTo = req.AssignedTo
	}

	if err := c.Schedules.Update(r.Context(), sched); err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "DB error"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Schedule updated", Data: sched})
}

// POST /admin/schedules/{id}/toggle
// Deactivating stops future generation; the current instance plays out.
// Reactivating heals the chain so an instance appears right away.
func (c *ScheduleController) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid schedule id"})
		return
	}
	sched, err := c.Schedules.FindByID(r.Context(), id)
	if err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Schedule not found"})
		return
	}

	sched.Active = !sched.Active
	if err := c.Schedules.Update(r.Context(), sched); err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "DB error"})
		return
	}
	if sched.Active {
		if _, err := c.Scheduler.Heal(r.Context(), sched); err != nil {
			utils.WriteServiceError(w, err)
			return
		}
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Schedule updated", Data: sched})
}

// POST /admin/schedules/heal
func (c *ScheduleController) Heal(w http.ResponseWriter, r *http.Request) {
	healed, err := c.Scheduler.HealAll(r.Context())
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Heal complete", Data: map[string]interface{}{
		"healed": healed,
	}})
}
