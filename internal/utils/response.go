package utils

import (
	"github.com/gofiber/fiber/v2"
)

// SuccessResponse sends the standard success envelope. Empty message and nil data are omitted.
func SuccessResponse(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(SuccessResponseStruct{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ListResponse sends a collection with its count
func ListResponse(c *fiber.Ctx, data interface{}, count int) error {
	return c.Status(fiber.StatusOK).JSON(SuccessResponseStruct{
		Success: true,
		Count:   &count,
		Data:    data,
	})
}

// ErrorResponse sends the standard error envelope
func ErrorResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponseStruct{
		Success: false,
		Error:   message,
	})
}

// NotFoundResponse sends a 404 for unmatched routes
func NotFoundResponse(c *fiber.Ctx) error {
	return ErrorResponse(c, fiber.StatusNotFound, "[404] Resource Not Found: "+c.OriginalURL())
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// SuccessResponseStruct defines the schema for success responses
type SuccessResponseStruct struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// SessionResponseStruct defines the schema for register, login and verification responses
type SessionResponseStruct struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	User    interface{} `json:"user,omitempty"`
	Token   string      `json:"token"`
	Expires string      `json:"expires"`
}
