package apperror

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

type HTTPError struct {
	Status  int
	Message string
}

// ToHTTP maps a failure to the status code and message sent to the client.
// Internal failures never leak their cause.
func ToHTTP(err error) HTTPError {
	if err == nil {
		return HTTPError{Status: http.StatusOK}
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return HTTPError{Status: fe.Code, Message: fe.Message}
	}

	switch KindOf(err) {
	case KindValidation:
		return HTTPError{Status: http.StatusBadRequest, Message: MessageOf(err)}
	case KindNotFound:
		return HTTPError{Status: http.StatusNotFound, Message: MessageOf(err)}
	case KindConflict:
		return HTTPError{Status: http.StatusConflict, Message: MessageOf(err)}
	case KindUnauthenticated:
		return HTTPError{Status: http.StatusUnauthorized, Message: "unauthorized"}
	default:
		return HTTPError{Status: http.StatusInternalServerError, Message: MessageOf(err)}
	}
}

// Handler is a fiber.ErrorHandler rendering failures as {"message": ...}.
func Handler(c *fiber.Ctx, err error) error {
	he := ToHTTP(err)
	return c.Status(he.Status).JSON(fiber.Map{"message": he.Message})
}
