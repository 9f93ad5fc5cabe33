package e2e

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/examsight/api/internal/client"
	"github.com/examsight/api/internal/model"
)

// seedCompletedJob creates a recognition job and completes it with a canned
// result, standing in for the worker.
func seedCompletedJob(t *testing.T, ta *testApp) string {
	t.Helper()

	ctx := context.Background()
	payload := &model.RecognitionJobPayload{
		ExamID:   uuid.New().String(),
		SheetID:  uuid.New().String(),
		ImageKey: "sheets/test/sheet.png",
		Subject:  model.SubjectMath,
	}

	submitted, err := ta.recognitionService.StartRecognition(ctx, payload)
	if err != nil {
		t.Fatalf("failed to start job: %v", err)
	}

	result := &client.RecognitionResult{
		SheetID:             payload.SheetID,
		ProcessingTimestamp: time.Now().UTC(),
		Answers: []client.AnswerRecord{
			{
				QuestionNumber: 1,
				QuestionLabel:  "1",
				FinalAnswer:    client.FinalAnswer{ExtractedText: "42"},
				Confidence:     0.95,
			},
			{
				QuestionNumber: 2,
				QuestionLabel:  "2",
				FinalAnswer:    client.FinalAnswer{ExtractedText: "x=4", LatexFormula: "x = 4"},
				Confidence:     0.88,
			},
			{
				QuestionNumber: 3,
				QuestionLabel:  "3",
				FinalAnswer:    client.FinalAnswer{ExtractedText: "paris"},
				Confidence:     0.41, // below review threshold
			},
		},
		Metadata: client.ResultMetadata{
			ImageQuality:           "good",
			ProcessingTimeMS:       1500,
			TotalQuestionsDetected: 3,
			ModelVersion:           "ocr-v2",
		},
	}

	if err := ta.recognitionService.CompleteJob(ctx, submitted.JobID, payload, result); err != nil {
		t.Fatalf("failed to complete job: %v", err)
	}

	return submitted.JobID
}

func gradingBody(jobID string) string {
	return fmt.Sprintf(`{
		"jobId": "%s",
		"answerKey": [
			{"questionNumber": 1, "expected": "42", "points": 2},
			{"questionNumber": 2, "expected": "x = 4"},
			{"questionNumber": 3, "expected": "paris"},
			{"questionNumber": 4, "expected": "7"}
		]
	}`, jobID)
}

func TestGradingScore_Success(t *testing.T) {
	ta := setupApp(t)

	jobID := seedCompletedJob(t, ta)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/grading/score", gradingBody(jobID))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	data := parseData(t, resp)
	if data["jobId"] != jobID {
		t.Errorf("expected jobId %s, got %v", jobID, data["jobId"])
	}

	// Q1 correct (2pts) + Q2 correct via formula (1pt); Q3 needs review; Q4 not recognized
	if data["totalPoints"] != 5.0 {
		t.Errorf("expected totalPoints 5, got %v", data["totalPoints"])
	}
	if data["earnedPoints"] != 3.0 {
		t.Errorf("expected earnedPoints 3, got %v", data["earnedPoints"])
	}
	if data["needsReview"] != 1.0 {
		t.Errorf("expected 1 answer needing review, got %v", data["needsReview"])
	}
	if data["notRecognized"] != 1.0 {
		t.Errorf("expected 1 unrecognized answer, got %v", data["notRecognized"])
	}

	questions, ok := data["questions"].([]interface{})
	if !ok || len(questions) != 4 {
		t.Fatalf("expected 4 scored questions, got %v", data["questions"])
	}

	first := questions[0].(map[string]interface{})
	if first["verdict"] != "correct" {
		t.Errorf("expected first question correct, got %v", first["verdict"])
	}
	last := questions[3].(map[string]interface{})
	if last["verdict"] != "not_recognized" {
		t.Errorf("expected last question not_recognized, got %v", last["verdict"])
	}
}

func TestGradingScore_NoAuth(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/grading/score", gradingBody(uuid.New().String()), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestGradingScore_InvalidBody(t *testing.T) {
	ta := setupApp(t)

	// Missing answer key
	body := fmt.Sprintf(`{"jobId": "%s"}`, uuid.New().String())

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/grading/score", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
	assertErrorCode(t, resp, "VALIDATION_ERROR")
}

func TestGradingScore_JobNotFound(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/grading/score", gradingBody(uuid.New().String()))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
	assertErrorCode(t, resp, "NOT_FOUND")
}
