package model

import "time"

// Job represents a background job in the system
type Job struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	Error       *string    `json:"error,omitempty"`
	Payload     []byte     `json:"payload,omitempty"` // JSON-encoded RecognitionJobPayload
	Result      []byte     `json:"result,omitempty"`  // JSON-encoded RecognitionResultResponse
	RemoteJobID string     `json:"remoteJobId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	RetryCount  int        `json:"retryCount"`
}

// Job types
const (
	JobTypeRecognition = "recognition"
)

// RecognitionJobPayload contains the data for a recognition job
type RecognitionJobPayload struct {
	ExamID   string  `json:"examId"`
	SheetID  string  `json:"sheetId"`
	ImageKey string  `json:"imageKey"`
	Subject  Subject `json:"subject,omitempty"`
	Priority int     `json:"priority,omitempty"`
	UseCache bool    `json:"useCache,omitempty"`
}
