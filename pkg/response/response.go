package response

import "github.com/gofiber/fiber/v2"

// Envelope result markers. Every JSON response from the platform's services,
// this API included, is wrapped in {result, message, data}.
const (
	ResultSuccess = "SUCCESS"
	ResultError   = "ERROR"
)

// Error codes
const (
	CodeValidationError  = "VALIDATION_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeRateLimited      = "RATE_LIMITED"
	CodeJobFailed        = "JOB_FAILED"
	CodeServiceError     = "SERVICE_ERROR"
	CodeRecognitionError = "RECOGNITION_ERROR"
)

// Envelope is the response wrapper for all endpoints
type Envelope struct {
	Result  string      `json:"result"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorData carries machine-readable error details inside an ERROR envelope
type ErrorData struct {
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func Error(c *fiber.Ctx, status int, code, message string, details interface{}) error {
	return c.Status(status).JSON(Envelope{
		Result:  ResultError,
		Message: message,
		Data: ErrorData{
			Code:    code,
			Details: details,
		},
	})
}

func ValidationError(c *fiber.Ctx, message string, details interface{}) error {
	return Error(c, fiber.StatusBadRequest, CodeValidationError, message, details)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, CodeForbidden, message, nil)
}

func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, CodeNotFound, message, nil)
}

func RateLimited(c *fiber.Ctx) error {
	return Error(c, fiber.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded", nil)
}

func JobFailed(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, CodeJobFailed, message, nil)
}

func ServiceError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, CodeServiceError, message, nil)
}

func RecognitionError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadGateway, CodeRecognitionError, message, nil)
}

func OK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(Envelope{Result: ResultSuccess, Data: data})
}

func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Envelope{Result: ResultSuccess, Data: data})
}

func Accepted(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusAccepted).JSON(Envelope{Result: ResultSuccess, Data: data})
}

func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}
