package serverutils

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"study-assistant-be/pkg/workflow"
)

// ErrorHandlerMiddleware turns errors returned by handlers into the JSON envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, resp := errorEnvelope(err)
		return ctx.Status(code).JSON(resp)
	}
}

func errorEnvelope(err error) (int, BaseResponse[any]) {
	var verr *ValidationError
	var fiberErr *fiber.Error
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &verr):
		resp := ErrorResponse(fiber.StatusBadRequest, "Validation failed")
		resp.Errors = verr.Fields
		return fiber.StatusBadRequest, resp
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, fiber.ErrUnprocessableEntity):
		return fiber.StatusBadRequest, ErrorResponse(fiber.StatusBadRequest, "Malformed request body")
	case errors.As(err, &fiberErr):
		return fiberErr.Code, ErrorResponse(fiberErr.Code, fiberErr.Message)
	default:
		return fiber.StatusInternalServerError, ErrorResponse(fiber.StatusInternalServerError, "Internal server error")
	}
}

// StatusForStageError maps a workflow failure kind to an HTTP status.
func StatusForStageError(e *workflow.StageError) int {
	if e == nil {
		return fiber.StatusOK
	}
	switch e.Kind {
	case workflow.KindValidation:
		return fiber.StatusUnprocessableEntity
	case workflow.KindGeneration, workflow.KindEmbedding:
		return fiber.StatusServiceUnavailable
	case workflow.KindCancelled:
		return 499
	default:
		return fiber.StatusInternalServerError
	}
}
