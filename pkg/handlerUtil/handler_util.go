package handlerUtil

import (
	"errors"
	"frontdesk/pkg/log"
	"frontdesk/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	return h.HandleWithBody(c, requestID, err, path, operation, nil)
}

// HandleWithBody maps err like Handle and merges extra into the JSON body.
func (h *ErrorHandler) HandleWithBody(c *fiber.Ctx, requestID string, err error, path string, operation string, extra fiber.Map) error {
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}

	status := fiber.StatusInternalServerError
	body := fiber.Map{
		"error": "An unexpected error occurred",
		"code":  "INTERNAL_SERVER_ERROR",
	}

	var respErr *response.Error
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &respErr):
		status = respErr.Code
		body["error"] = respErr.Error()
		body["code"] = respErr.Slug()
		fields["code"] = respErr.Code
		if status >= fiber.StatusInternalServerError {
			h.logger.WithFields(fields).Error("Operation failed with error response")
		} else {
			h.logger.WithFields(fields).Warn("Operation failed with error response")
		}
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
		body["error"] = fiberErr.Message
		body["code"] = "BAD_REQUEST"
		if status != fiber.StatusBadRequest {
			body["code"] = "HTTP_ERROR"
		}
		h.logger.WithFields(fields).Warn("Request rejected")
	default:
		h.logger.WithFields(fields).Error("Unexpected error")
	}

	for k, v := range extra {
		body[k] = v
	}

	return c.Status(status).JSON(body)
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Validation failed: " + err.Error(),
		"code":  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(utils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"message":    message,
	}).Warn("Unauthorized access")

	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": message,
		"code":  "UNAUTHORIZED",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
