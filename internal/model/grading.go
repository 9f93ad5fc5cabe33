package model

import "time"

// GradingScoreRequest asks for a completed recognition job to be scored
// against an answer key
type GradingScoreRequest struct {
	JobID     string           `json:"jobId" validate:"required"`
	AnswerKey []AnswerKeyEntry `json:"answerKey" validate:"required,min=1,dive"`
}

// AnswerKeyEntry is the expected answer for one question
type AnswerKeyEntry struct {
	QuestionNumber int     `json:"questionNumber" validate:"required,min=1"`
	Expected       string  `json:"expected" validate:"required"`
	Points         float64 `json:"points" validate:"omitempty,min=0"`
}

// GradingScoreResponse is the scored report for a sheet
type GradingScoreResponse struct {
	JobID         string          `json:"jobId"`
	SheetID       string          `json:"sheetId"`
	Questions     []QuestionScore `json:"questions"`
	TotalPoints   float64         `json:"totalPoints"`
	EarnedPoints  float64         `json:"earnedPoints"`
	NeedsReview   int             `json:"needsReview"`
	NotRecognized int             `json:"notRecognized"`
	GradedAt      time.Time       `json:"gradedAt"`
}

// QuestionScore is the verdict for a single question
type QuestionScore struct {
	QuestionNumber int     `json:"questionNumber"`
	QuestionLabel  string  `json:"questionLabel,omitempty"`
	Expected       string  `json:"expected"`
	Recognized     string  `json:"recognized"`
	Confidence     float64 `json:"confidence"`
	Verdict        Verdict `json:"verdict"`
	Points         float64 `json:"points"`
	Earned         float64 `json:"earned"`
}
