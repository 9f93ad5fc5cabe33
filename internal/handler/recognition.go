package handler

import (
	"strconv"

	"github.com/examsight/api/internal/model"
	"github.com/examsight/api/internal/service"
	"github.com/examsight/api/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const maxSheetSize = 20 * 1024 * 1024 // 20MB

type RecognitionHandler struct {
	service   *service.RecognitionService
	uploads   *service.UploadService
	validator *validator.Validate
}

func NewRecognitionHandler(svc *service.RecognitionService, uploads *service.UploadService, v *validator.Validate) *RecognitionHandler {
	return &RecognitionHandler{
		service:   svc,
		uploads:   uploads,
		validator: v,
	}
}

// Submit handles POST /api/recognition/submit
// @Summary      Submit exam sheet for recognition
// @Description  Upload a scanned exam sheet image and start an asynchronous text-recognition job
// @Tags         Recognition
// @Accept       multipart/form-data
// @Produce      json
// @Param        examId   formData string true  "Exam ID"
// @Param        subject  formData string false "Subject"
// @Param        priority formData int    false "Priority"
// @Param        useCache formData bool   false "Reuse a cached result if the service has one"
// @Param        file     formData file   true  "Sheet image (PNG or JPEG; max 20MB)"
// @Success      202 {object} model.RecognitionSubmitResponse
// @Failure      400 {object} response.Envelope
// @Failure      401 {object} response.Envelope
// @Failure      429 {object} response.Envelope
// @Failure      500 {object} response.Envelope
// @Security     BearerAuth
// @Router       /api/recognition/submit [post]
func (h *RecognitionHandler) Submit(c *fiber.Ctx) error {
	examID := c.FormValue("examId")
	if examID == "" {
		return response.ValidationError(c, "examId is required", nil)
	}

	subject := model.Subject(c.FormValue("subject"))
	if subject != "" && !validSubject(subject) {
		return response.ValidationError(c, "Invalid subject", map[string]interface{}{
			"subject": subject,
		})
	}

	priority := 0
	if v := c.FormValue("priority"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 0 {
			return response.ValidationError(c, "priority must be a non-negative integer", nil)
		}
		priority = p
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > maxSheetSize {
		return response.ValidationError(c, "File size exceeds 20MB limit", map[string]interface{}{
			"maxSize":  maxSheetSize,
			"fileSize": file.Size,
		})
	}

	contentType := file.Header.Get("Content-Type")
	validTypes := map[string]bool{
		"image/png":  true,
		"image/jpeg": true,
		"image/jpg":  true,
	}
	if !validTypes[contentType] {
		return response.ValidationError(c, "Invalid file type. Supported: PNG, JPEG", map[string]interface{}{
			"contentType": contentType,
		})
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	stored, err := h.uploads.StoreSheet(c.Context(), examID, contentType, f)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	payload := &model.RecognitionJobPayload{
		ExamID:   examID,
		SheetID:  stored.SheetID,
		ImageKey: stored.ImageKey,
		Subject:  subject,
		Priority: priority,
		UseCache: c.FormValue("useCache") == "true",
	}

	result, err := h.service.StartRecognition(c.Context(), payload)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/recognition/status/:jobId
// @Summary      Get recognition job status
// @Description  Get the current status and progress of a recognition job
// @Tags         Recognition
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.RecognitionStatusResponse
// @Failure      400 {object} response.Envelope
// @Failure      401 {object} response.Envelope
// @Failure      404 {object} response.Envelope
// @Failure      500 {object} response.Envelope
// @Security     BearerAuth
// @Router       /api/recognition/status/{jobId} [get]
func (h *RecognitionHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), jobID)
	if err != nil {
		if err.Error() == "job not found" {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Result handles GET /api/recognition/result/:jobId
// @Summary      Get recognition job result
// @Description  Get the recognized answers of a completed recognition job
// @Tags         Recognition
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.RecognitionResultResponse
// @Failure      400 {object} response.Envelope
// @Failure      401 {object} response.Envelope
// @Failure      404 {object} response.Envelope
// @Failure      500 {object} response.Envelope
// @Security     BearerAuth
// @Router       /api/recognition/result/{jobId} [get]
func (h *RecognitionHandler) Result(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetResult(c.Context(), jobID)
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

// Cancel handles POST /api/recognition/cancel/:jobId
// @Summary      Cancel recognition job
// @Description  Cancel a running or queued recognition job
// @Tags         Recognition
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.RecognitionCancelResponse
// @Failure      400 {object} response.Envelope
// @Failure      401 {object} response.Envelope
// @Failure      404 {object} response.Envelope
// @Failure      500 {object} response.Envelope
// @Security     BearerAuth
// @Router       /api/recognition/cancel/{jobId} [post]
func (h *RecognitionHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.CancelRecognition(c.Context(), jobID)
	if err != nil {
		if err.Error() == "job not found" {
			return response.NotFound(c, "Job not found")
		}
		if err.Error() == "job already completed" {
			return response.ValidationError(c, "Job already completed", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

func validSubject(s model.Subject) bool {
	for _, valid := range model.ValidSubjects {
		if s == valid {
			return true
		}
	}
	return false
}
