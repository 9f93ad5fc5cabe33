package handler

import (
	"github.com/examsight/api/internal/model"
	"github.com/examsight/api/internal/service"
	"github.com/examsight/api/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type GradingHandler struct {
	service   *service.GradingService
	validator *validator.Validate
}

func NewGradingHandler(svc *service.GradingService, v *validator.Validate) *GradingHandler {
	return &GradingHandler{
		service:   svc,
		validator: v,
	}
}

// Score handles POST /api/grading/score
// @Summary      Score a recognized sheet
// @Description  Grade the answers of a completed recognition job against an answer key
// @Tags         Grading
// @Accept       json
// @Produce      json
// @Param        request body model.GradingScoreRequest true "Grading request"
// @Success      200 {object} model.GradingScoreResponse
// @Failure      400 {object} response.Envelope
// @Failure      401 {object} response.Envelope
// @Failure      404 {object} response.Envelope
// @Failure      429 {object} response.Envelope
// @Failure      500 {object} response.Envelope
// @Security     BearerAuth
// @Router       /api/grading/score [post]
func (h *GradingHandler) Score(c *fiber.Ctx) error {
	var req model.GradingScoreRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Score(c.Context(), &req)
	if err != nil {
		if err.Error() == "job not found" {
			return response.NotFound(c, "Job not found")
		}
		if err.Error() == "job not completed" {
			return response.ValidationError(c, "Job not completed yet", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
