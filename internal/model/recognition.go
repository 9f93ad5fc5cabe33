package model

import (
	"time"

	"github.com/examsight/api/internal/client"
)

// RecognitionSubmitResponse is returned when a sheet has been accepted for
// recognition. The jobId is the local job identifier, not the remote one.
type RecognitionSubmitResponse struct {
	JobID             string    `json:"jobId"`
	SheetID           string    `json:"sheetId"`
	Status            JobStatus `json:"status"`
	EstimatedDuration int       `json:"estimatedDuration"` // seconds
	CreatedAt         time.Time `json:"createdAt"`
}

// RecognitionStatusResponse represents the status of a recognition job
type RecognitionStatusResponse struct {
	JobID       string     `json:"jobId"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	RetryCount  int        `json:"retryCount"`
}

// RecognitionResultResponse represents the result of a completed recognition job
type RecognitionResultResponse struct {
	JobID     string                    `json:"jobId"`
	SheetID   string                    `json:"sheetId"`
	ExamID    string                    `json:"examId"`
	Result    *client.RecognitionResult `json:"result"`
	CreatedAt time.Time                 `json:"createdAt"`
}

// RecognitionCancelResponse represents the response to a cancel request
type RecognitionCancelResponse struct {
	Success bool      `json:"success"`
	JobID   string    `json:"jobId"`
	Status  JobStatus `json:"status"`
}
