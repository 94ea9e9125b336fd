package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
)

type Response struct {
	Status  bool        `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respond(c *fiber.Ctx, code int, message string, data interface{}) error {
	if strings.TrimSpace(message) == "" {
		message = http.StatusText(code)
	}

	response := Response{
		Status:  code < http.StatusBadRequest,
		Code:    code,
		Message: message,
		Data:    data,
	}

	entry := log.Print(c)
	if response.Status {
		entry.Info(fmt.Sprintf("%d %v", code, message))
	} else {
		response.Error = message
		entry.Error(fmt.Sprintf("%d %v", code, message))
	}

	return c.Status(code).JSON(response)
}

func ResponseSuccess(c *fiber.Ctx, message string) error {
	return respond(c, http.StatusOK, message, nil)
}

func ResponseSuccessWithData(c *fiber.Ctx, message string, data interface{}) error {
	return respond(c, http.StatusOK, message, data)
}

func ResponseNoContent(c *fiber.Ctx) error {
	return c.SendStatus(http.StatusNoContent)
}

func ResponseBadRequest(c *fiber.Ctx, message string) error {
	return respond(c, http.StatusBadRequest, message, nil)
}

func ResponseUnauthorized(c *fiber.Ctx, message string) error {
	return respond(c, http.StatusUnauthorized, message, nil)
}

func ResponseNotFound(c *fiber.Ctx, message string) error {
	return respond(c, http.StatusNotFound, message, nil)
}

// ResponseConflict carries data so callers can report the current state.
func ResponseConflict(c *fiber.Ctx, message string, data interface{}) error {
	return respond(c, http.StatusConflict, message, data)
}

func ResponseInternalError(c *fiber.Ctx, message string) error {
	return respond(c, http.StatusInternalServerError, message, nil)
}

func ResponseBadGateway(c *fiber.Ctx, message string) error {
	return respond(c, http.StatusBadGateway, message, nil)
}

func ResponseServiceUnavailable(c *fiber.Ctx, message string) error {
	return respond(c, http.StatusServiceUnavailable, message, nil)
}
