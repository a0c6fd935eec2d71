package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/placement-service/internal/models"
	"github.com/SAP-F-2025/placement-service/internal/validator"
)

type BaseHandler struct {
	logger *slog.Logger
}

func NewBaseHandler(logger *slog.Logger) BaseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return BaseHandler{logger: logger}
}

// requestLogger returns the logger carrying the request id, when the
// context logger middleware has set one
func (h BaseHandler) requestLogger(c *gin.Context) *slog.Logger {
	if l, ok := c.Get(loggerKey); ok {
		if logger, ok := l.(*slog.Logger); ok {
			return logger
		}
	}
	return h.logger
}

func (h BaseHandler) LogRequest(c *gin.Context, msg string, args ...interface{}) {
	args = append(args, "method", c.Request.Method, "path", c.FullPath())
	h.requestLogger(c).Info(msg, args...)
}

func (h BaseHandler) LogError(c *gin.Context, err error, msg string, args ...interface{}) {
	args = append(args, "error", err, "path", c.FullPath())
	h.requestLogger(c).Error(msg, args...)
}

func (h BaseHandler) respondError(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, models.ErrorResponse{
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	})
}

func (h BaseHandler) respondValidation(c *gin.Context, ve validator.ValidationErrors) {
	out := make([]models.ValidationErrorResponse, 0, len(ve))
	for _, e := range ve {
		value, _ := e.Value.(string)
		out = append(out, models.ValidationErrorResponse{
			Field:   e.Field,
			Message: e.Message,
			Value:   value,
			Code:    e.Rule,
		})
	}
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Message:          "Validation failed",
		Timestamp:        time.Now().UTC(),
		Path:             c.Request.URL.Path,
		ValidationErrors: out,
	})
}

// bindJSON decodes and validates a request body, writing the 400 itself
func (h BaseHandler) bindJSON(c *gin.Context, v *validator.Validator, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return false
	}
	if err := v.Validate(req); err != nil {
		if ve := validator.ToValidationErrors(err); ve != nil {
			h.respondValidation(c, ve)
		} else {
			h.respondError(c, http.StatusBadRequest, "Validation failed", err.Error())
		}
		return false
	}
	return true
}
