package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"derma-inference-service/service"
)

// ValidationError rejects a request before any inference runs.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

const (
	msgModelNotReady    = "Model not initialized. Please restart the server."
	msgPredictionFailed = "Prediction failed. Please try again with a different image."
	msgUnexpected       = "An unexpected error occurred. Please try again."
	msgFileTooLarge     = "File too large"
)

// fail writes the {success:false, error} body for err. Only validation
// messages reach the client verbatim.
func fail(c *fiber.Ctx, err error) error {
	var validation *ValidationError
	var inference *service.InferenceError

	switch {
	case errors.As(err, &validation):
		log.Warnf("%s %s rejected: %s", c.Method(), c.Path(), validation.Message)
		return reply(c, fiber.StatusBadRequest, validation.Message)
	case errors.Is(err, service.ErrModelNotReady):
		log.Error("Model not initialized")
		return reply(c, fiber.StatusInternalServerError, msgModelNotReady)
	case errors.As(err, &inference):
		log.Errorf("Inference failed: %v", err)
		return reply(c, fiber.StatusInternalServerError, msgPredictionFailed)
	default:
		log.Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
		return reply(c, fiber.StatusInternalServerError, msgUnexpected)
	}
}

func reply(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// ErrorHandler renders framework errors in the API error shape.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if !errors.As(err, &fe) {
		return fail(c, err)
	}
	message := fe.Message
	if fe.Code == fiber.StatusRequestEntityTooLarge {
		message = msgFileTooLarge
	}
	return reply(c, fe.Code, message)
}

func fileTooLarge(limit int) string {
	return fmt.Sprintf("%s. Maximum size is %dMB", msgFileTooLarge, limit>>20)
}
