package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/orderflow-api/internal/application/dto"
	"github.com/jhoicas/orderflow-api/internal/domain"
)

// statusFor traduce un error de dominio al código HTTP y al código de error del cuerpo.
// insufficient permite a cada ruta elegir el status de ErrInsufficientStock (400 en reserve, 409 en órdenes).
func statusFor(err error, insufficient int) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrAlreadyExists):
		return fiber.StatusBadRequest, "ALREADY_EXISTS"
	case errors.Is(err, domain.ErrInsufficientStock):
		return insufficient, "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrInvalidState):
		return fiber.StatusConflict, "INVALID_STATE"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrUnreachable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return fiber.StatusServiceUnavailable, "UNAVAILABLE"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrCorruption):
		return fiber.StatusInternalServerError, "CORRUPTION"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}

// writeError responde con dto.ErrorResponse; los 5xx no exponen el detalle interno.
func writeError(c *fiber.Ctx, err error, insufficient int) error {
	status, code := statusFor(err, insufficient)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "error interno"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

// writeSagaError traduce el motivo de aborto de la saga a la respuesta de POST /orders.
func writeSagaError(c *fiber.Ctx, err error) error {
	var serr *domain.SagaError
	if !errors.As(err, &serr) {
		return writeError(c, err, fiber.StatusConflict)
	}
	status := fiber.StatusInternalServerError
	switch serr.Reason {
	case domain.ReasonInvalidInput, domain.ReasonInvalidUser, domain.ReasonProductInvalid:
		status = fiber.StatusBadRequest
		if errors.Is(serr.Err, domain.ErrUnreachable) {
			status = fiber.StatusServiceUnavailable
		}
	case domain.ReasonInsufficientStock, domain.ReasonConflict:
		status = fiber.StatusConflict
	case domain.ReasonUnreachable, domain.ReasonDeadlineExceeded:
		status = fiber.StatusServiceUnavailable
	case domain.ReasonPersistenceFailed:
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(dto.ErrorResponse{
		Code:    string(serr.Reason),
		Message: serr.Error(),
		Lines:   serr.Lines,
	})
}
