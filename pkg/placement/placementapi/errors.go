package placementapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/logx"
)

// ErrorHandler renders *errx.Error values with their registered status.
// Anything else is wrapped as an internal error.
// With debug set the wrapped cause is included in the body.
func ErrorHandler(debug bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID := c.Get(fiber.HeaderXRequestID)

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"error":      fe.Message,
				"code":       "FIBER_ERROR",
				"status":     fe.Code,
				"request_id": requestID,
			})
		}

		entry := logx.WithContext(c.UserContext()).WithFields(logx.Fields{
			"path":       c.Path(),
			"method":     c.Method(),
			"request_id": requestID,
		})

		var e *errx.Error
		if !errx.As(err, &e) {
			e = errx.Wrap(err, "Internal Server Error", errx.TypeInternal)
		}

		if e.HTTPStatus >= fiber.StatusInternalServerError {
			entry.WithError(err).Error("request failed")
		} else {
			entry.WithError(err).Debug("request rejected")
		}

		response := fiber.Map{
			"error":      e.Message,
			"code":       e.Code,
			"type":       string(e.Type),
			"status":     e.HTTPStatus,
			"request_id": requestID,
		}
		if len(e.Details) > 0 {
			response["details"] = e.Details
		}
		if debug && e.Err != nil {
			response["underlying_error"] = e.Err.Error()
		}
		return c.Status(e.HTTPStatus).JSON(response)
	}
}

// NotFound answers requests no route matched.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":      "Route not found",
		"code":       "NOT_FOUND",
		"path":       c.Path(),
		"method":     c.Method(),
		"request_id": c.Get(fiber.HeaderXRequestID),
	})
}
