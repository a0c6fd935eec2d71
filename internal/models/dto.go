package models

import "time"

// ===== MODULE CATALOGUE =====

type ModuleSummary struct {
	Key             string `json:"key"`
	Label           string `json:"label"`
	DurationSeconds int    `json:"duration_seconds"`
	Untimed         bool   `json:"untimed"`
	RequiresProgram bool   `json:"requires_program"`
	Interaction     string `json:"interaction,omitempty"`
}

// ===== PAGE RESPONSES =====

type PageMarkResponse struct {
	LaunchID string `json:"launch_id"`
	Note     string `json:"note"`
	Accepted bool   `json:"accepted"`
}

// ===== VALIDATION RESPONSES =====

type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value"`
	Code    string `json:"code"`
}

// ===== ERROR RESPONSES =====

type ErrorResponse struct {
	Error            string                    `json:"error,omitempty"`
	Message          string                    `json:"message"`
	Code             string                    `json:"code,omitempty"`
	Details          interface{}               `json:"details,omitempty"`
	Timestamp        time.Time                 `json:"timestamp"`
	Path             string                    `json:"path"`
	ValidationErrors []ValidationErrorResponse `json:"validation_errors,omitempty"`
}

type SuccessResponse struct {
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
