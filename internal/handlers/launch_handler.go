package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/placement-service/internal/attempt"
	"github.com/SAP-F-2025/placement-service/internal/bank"
	"github.com/SAP-F-2025/placement-service/internal/models"
	"github.com/SAP-F-2025/placement-service/internal/modules"
	"github.com/SAP-F-2025/placement-service/internal/services"
	"github.com/SAP-F-2025/placement-service/internal/validator"
)

type LaunchResponse struct {
	LaunchID string        `json:"launch_id"`
	View     *attempt.View `json:"view"`
}

type LaunchHandler struct {
	BaseHandler
	sessions  services.SessionService
	validator *validator.Validator
}

func NewLaunchHandler(
	sessions services.SessionService,
	validator *validator.Validator,
	logger *slog.Logger,
) *LaunchHandler {
	return &LaunchHandler{
		BaseHandler: NewBaseHandler(logger),
		sessions:    sessions,
		validator:   validator,
	}
}

// Launch opens a module page for a launch
// @Router /launches [post]
func (h *LaunchHandler) Launch(c *gin.Context) {
	var req validator.LaunchRequest
	if !h.bindJSON(c, h.validator, &req) {
		return
	}

	h.LogRequest(c, "Launching module", "module", req.Module, "launch_id", req.LaunchID)

	launchID, view, err := h.sessions.Launch(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, LaunchResponse{LaunchID: launchID, View: view})
}

// GetLaunch returns the current view of a launch
// @Router /launches/{id} [get]
func (h *LaunchHandler) GetLaunch(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, controller.View())
}

// Start begins the attempt once a programme has been chosen
// @Router /launches/{id}/start [post]
func (h *LaunchHandler) Start(c *gin.Context) {
	var req validator.StartRequest
	if !h.bindJSON(c, h.validator, &req) {
		return
	}
	controller, ok := h.controller(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting attempt", "launch_id", c.Param("id"), "program", req.Program)

	view, err := controller.Start(c.Request.Context(), req.Program)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RecordAnswer stores the learner's answer to one question
// @Router /launches/{id}/answers/{question_id} [put]
func (h *LaunchHandler) RecordAnswer(c *gin.Context) {
	var req validator.AnswerRequest
	if !h.bindJSON(c, h.validator, &req) {
		return
	}
	h.mutate(c, func(controller *attempt.Controller) error {
		return controller.RecordAnswer(c.Request.Context(), c.Param("question_id"), req.Value)
	})
}

// ClearAnswer removes the learner's answer to one question
// @Router /launches/{id}/answers/{question_id} [delete]
func (h *LaunchHandler) ClearAnswer(c *gin.Context) {
	h.mutate(c, func(controller *attempt.Controller) error {
		return controller.ClearAnswer(c.Request.Context(), c.Param("question_id"))
	})
}

// Audio records a play, end or failure of a section recording
// @Router /launches/{id}/audio/{section}/{action} [post]
func (h *LaunchHandler) Audio(c *gin.Context) {
	section := c.Param("section")

	var fn modules.AuxFunc
	switch c.Param("action") {
	case "play":
		fn = modules.PlayAudio(section)
	case "ended":
		fn = modules.AudioEnded(section)
	case "failed":
		fn = modules.AudioFailed(section)
	default:
		h.respondError(c, http.StatusNotFound, "Unknown audio action", c.Param("action"))
		return
	}

	h.mutate(c, func(controller *attempt.Controller) error {
		return controller.UpdateAux(c.Request.Context(), modules.AudioKey, fn)
	})
}

// AssignMatch places a word bank token on a question
// @Router /launches/{id}/match/{question_id} [put]
func (h *LaunchHandler) AssignMatch(c *gin.Context) {
	var req validator.MatchRequest
	if !h.bindJSON(c, h.validator, &req) {
		return
	}
	h.mutate(c, func(controller *attempt.Controller) error {
		return controller.UpdateAux(c.Request.Context(), modules.MatchKey,
			modules.AssignWord(c.Param("question_id"), req.Token))
	})
}

// UnassignMatch returns a question's token to the word bank
// @Router /launches/{id}/match/{question_id} [delete]
func (h *LaunchHandler) UnassignMatch(c *gin.Context) {
	h.mutate(c, func(controller *attempt.Controller) error {
		return controller.UpdateAux(c.Request.Context(), modules.MatchKey,
			modules.UnassignWord(c.Param("question_id")))
	})
}

// ToggleScramble adds or removes a word of a scrambled sentence
// @Router /launches/{id}/scramble/{question_id}/toggle [post]
func (h *LaunchHandler) ToggleScramble(c *gin.Context) {
	var req validator.ScrambleRequest
	if !h.bindJSON(c, h.validator, &req) {
		return
	}
	h.mutate(c, func(controller *attempt.Controller) error {
		return controller.UpdateAux(c.Request.Context(), modules.ScrambleKey,
			modules.ToggleScrambleToken(c.Param("question_id"), req.Token))
	})
}

// Submit finalizes the attempt
// @Router /launches/{id}/submit [post]
func (h *LaunchHandler) Submit(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting attempt", "launch_id", c.Param("id"))

	if _, err := controller.Submit(c.Request.Context()); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, controller.View())
}

// Unload handles the page exit beacon
// @Router /launches/{id}/unload [post]
func (h *LaunchHandler) Unload(c *gin.Context) {
	var req validator.UnloadRequest
	if !h.bindJSON(c, h.validator, &req) {
		return
	}

	if err := h.sessions.Unload(c.Request.Context(), c.Param("id"), req.Event); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkPage marks an introduction or completion page as done
// @Router /pages/mark [post]
func (h *LaunchHandler) MarkPage(c *gin.Context) {
	var req validator.PageMarkRequest
	if !h.bindJSON(c, h.validator, &req) {
		return
	}

	h.LogRequest(c, "Marking page", "launch_id", req.LaunchID, "note", req.Note)

	accepted, err := h.sessions.MarkPage(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.PageMarkResponse{
		LaunchID: req.LaunchID,
		Note:     req.Note,
		Accepted: accepted,
	})
}

// ListModules returns the module catalogue
// @Router /modules [get]
func (h *LaunchHandler) ListModules(c *gin.Context) {
	defs := modules.All()
	out := make([]models.ModuleSummary, 0, len(defs))
	for _, d := range defs {
		out = append(out, models.ModuleSummary{
			Key:             d.Key,
			Label:           d.Label,
			DurationSeconds: int(d.Duration.Seconds()),
			Untimed:         d.Untimed(),
			RequiresProgram: d.RequiresProgram,
			Interaction:     d.Aux,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *LaunchHandler) controller(c *gin.Context) (*attempt.Controller, bool) {
	controller, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return nil, false
	}
	return controller, true
}

// mutate runs one learner action and answers with the refreshed view
func (h *LaunchHandler) mutate(c *gin.Context, fn func(*attempt.Controller) error) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}
	if err := fn(controller); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, controller.View())
}

func (h *LaunchHandler) handleServiceError(c *gin.Context, err error) {
	if ve := validator.ToValidationErrors(err); ve != nil {
		h.respondValidation(c, ve)
		return
	}

	switch {
	// Launch errors
	case errors.Is(err, services.ErrSessionNotFound):
		h.respondError(c, http.StatusNotFound, "Launch not found", nil)
	case errors.Is(err, services.ErrModuleMismatch):
		h.respondError(c, http.StatusConflict, "Launch belongs to another module", err.Error())
	case errors.Is(err, services.ErrShutdown):
		h.respondError(c, http.StatusServiceUnavailable, "Service is shutting down", nil)
	case errors.Is(err, modules.ErrUnknownModule):
		h.respondError(c, http.StatusBadRequest, "Unknown module", err.Error())
	// Attempt errors
	case errors.Is(err, attempt.ErrUnloaded):
		h.respondError(c, http.StatusGone, "Page has been unloaded", nil)
	case errors.Is(err, attempt.ErrNotInProgress):
		h.respondError(c, http.StatusConflict, "Attempt is not in progress", nil)
	case errors.Is(err, attempt.ErrAlreadyStarted):
		h.respondError(c, http.StatusConflict, "Attempt already started", nil)
	case errors.Is(err, attempt.ErrNotBooted):
		h.respondError(c, http.StatusConflict, "Attempt has not been booted", nil)
	case errors.Is(err, attempt.ErrProgramRequired), errors.Is(err, bank.ErrUnknownProgram):
		h.respondError(c, http.StatusBadRequest, "A valid programme must be selected", err.Error())
	case errors.Is(err, attempt.ErrUnsupportedAux):
		h.respondError(c, http.StatusNotFound, "Module has no such interaction", err.Error())
	// Learner action errors
	case errors.Is(err, modules.ErrUnknownQuestion),
		errors.Is(err, modules.ErrUnknownToken),
		errors.Is(err, modules.ErrUnknownSection):
		h.respondError(c, http.StatusBadRequest, "Bad request", err.Error())
	case errors.Is(err, modules.ErrNoPlaysLeft), errors.Is(err, modules.ErrSectionLocked):
		h.respondError(c, http.StatusConflict, "Recording cannot be played", err.Error())
	default:
		h.LogError(c, err, "Unexpected service error")
		h.respondError(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}
