package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/examsight/api/internal/client"
	"github.com/examsight/api/internal/config"
	"github.com/examsight/api/internal/model"
	"github.com/examsight/api/internal/service"
	"github.com/examsight/api/internal/websocket"
	"github.com/hibiken/asynq"
)

// RecognitionWorker processes recognition jobs
type RecognitionWorker struct {
	recognitionService *service.RecognitionService
	uploadService      *service.UploadService
	recognitionClient  *client.RecognitionClient
	hub                *websocket.Hub
	pollInterval       time.Duration
	maxPollAttempts    int
}

// NewRecognitionWorker creates a new recognition worker
func NewRecognitionWorker(
	recognitionService *service.RecognitionService,
	uploadService *service.UploadService,
	recognitionClient *client.RecognitionClient,
	hub *websocket.Hub,
	cfg *config.RecognitionConfig,
) *RecognitionWorker {
	return &RecognitionWorker{
		recognitionService: recognitionService,
		uploadService:      uploadService,
		recognitionClient:  recognitionClient,
		hub:                hub,
		pollInterval:       time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		maxPollAttempts:    cfg.MaxPollAttempts,
	}
}

// ProcessTask handles recognition task processing
func (w *RecognitionWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := taskPayload.JobID
	log.Printf("Starting recognition job: %s", jobID)

	var payload model.RecognitionJobPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		w.failJob(ctx, jobID, "Invalid payload")
		return fmt.Errorf("failed to unmarshal recognition payload: %w", err)
	}

	if w.recognitionService.IsCanceled(ctx, jobID) {
		log.Printf("Recognition job %s canceled before start", jobID)
		return nil
	}

	// Check if the recognition client is configured
	if w.recognitionClient == nil || !w.recognitionClient.IsConfigured() {
		return w.processWithMock(ctx, jobID, &payload)
	}

	return w.processWithRemote(ctx, jobID, &payload)
}

// processWithRemote drives the remote recognition service: fetch the stored
// sheet image, submit it, poll until terminal, persist the result
func (w *RecognitionWorker) processWithRemote(ctx context.Context, jobID string, payload *model.RecognitionJobPayload) error {
	// Step 1: recover the sheet image from storage
	w.updateProgress(ctx, jobID, 5, "Fetching sheet image...")
	image, err := w.uploadService.FetchSheet(ctx, payload.ImageKey)
	if err != nil {
		w.failJob(ctx, jobID, fmt.Sprintf("Sheet image fetch failed: %v", err))
		return err
	}

	// Step 2: submit to the recognition service
	w.updateProgress(ctx, jobID, 10, "Submitting sheet for text recognition...")
	submitted, err := w.recognitionClient.SubmitSheet(ctx, image, &client.SubmitOptions{
		Priority: payload.Priority,
		UseCache: payload.UseCache,
	})
	if err != nil {
		w.failJob(ctx, jobID, fmt.Sprintf("Recognition submission failed: %v", err))
		return err
	}

	if err := w.recognitionService.SetRemoteJobID(ctx, jobID, submitted.JobID); err != nil {
		log.Printf("Failed to record remote job id: %v", err)
	}

	// Step 3: poll until the remote job resolves. A cancel request flips the
	// local job record, which the progress callback turns into a context
	// cancellation so the poll loop stops at its next suspension point.
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.updateProgress(ctx, jobID, 20, "Waiting for text recognition...")
	result, err := w.recognitionClient.PollUntilComplete(pollCtx, submitted.JobID, &client.PollOptions{
		Interval:    w.pollInterval,
		MaxAttempts: w.maxPollAttempts,
		OnProgress: func(status client.RemoteStatus) {
			if w.recognitionService.IsCanceled(ctx, jobID) {
				cancel()
				return
			}
			w.updateProgress(ctx, jobID, progressFor(status), stepFor(status))
		},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Printf("Recognition job %s canceled during polling", jobID)
			return nil
		}

		var timeout *client.TimeoutError
		if errors.As(err, &timeout) {
			w.failJob(ctx, jobID, fmt.Sprintf("Text recognition timed out after %v", timeout.Budget))
		} else {
			w.failJob(ctx, jobID, fmt.Sprintf("Text recognition failed: %v", err))
		}
		return err
	}

	// Step 4: persist the result
	w.updateProgress(ctx, jobID, 95, "Finalizing...")
	if err := w.recognitionService.CompleteJob(ctx, jobID, payload, result); err != nil {
		w.failJob(ctx, jobID, "Failed to save result")
		return err
	}

	w.hub.BroadcastComplete(jobID, result)
	log.Printf("Recognition job %s completed (%d answers)", jobID, len(result.Answers))
	return nil
}

// processWithMock handles recognition with mock data for development
func (w *RecognitionWorker) processWithMock(ctx context.Context, jobID string, payload *model.RecognitionJobPayload) error {
	steps := []struct {
		progress int
		step     string
		duration time.Duration
	}{
		{10, "Fetching sheet image...", 500 * time.Millisecond},
		{30, "Submitting sheet for text recognition...", 500 * time.Millisecond},
		{60, "Recognizing answers...", time.Second},
		{95, "Finalizing...", 500 * time.Millisecond},
	}

	for _, step := range steps {
		select {
		case <-ctx.Done():
			log.Printf("Recognition job %s cancelled", jobID)
			return ctx.Err()
		default:
		}

		if w.recognitionService.IsCanceled(ctx, jobID) {
			log.Printf("Recognition job %s canceled", jobID)
			return nil
		}

		w.updateProgress(ctx, jobID, step.progress, step.step)
		time.Sleep(step.duration)
	}

	result := w.generateMockResult(payload)

	if err := w.recognitionService.CompleteJob(ctx, jobID, payload, result); err != nil {
		w.failJob(ctx, jobID, "Failed to save result")
		return err
	}

	w.hub.BroadcastComplete(jobID, result)
	log.Printf("Recognition job %s completed (mock)", jobID)
	return nil
}

func progressFor(status client.RemoteStatus) int {
	switch status {
	case client.StatusSubmitted:
		return 30
	case client.StatusProcessing:
		return 60
	default:
		return 20
	}
}

func stepFor(status client.RemoteStatus) string {
	switch status {
	case client.StatusProcessing:
		return "Recognizing answers..."
	default:
		return "Waiting for text recognition..."
	}
}

func (w *RecognitionWorker) updateProgress(ctx context.Context, jobID string, progress int, step string) {
	if err := w.recognitionService.UpdateJobProgress(ctx, jobID, progress, step); err != nil {
		log.Printf("Failed to update progress: %v", err)
	}
	w.hub.BroadcastProgress(jobID, progress, model.JobStatusRunning, step)
}

func (w *RecognitionWorker) failJob(ctx context.Context, jobID, errMsg string) {
	if err := w.recognitionService.FailJob(ctx, jobID, errMsg); err != nil {
		log.Printf("Failed to mark job as failed: %v", err)
	}
	w.hub.BroadcastError(jobID, "RECOGNITION_FAILED", errMsg)
}

func (w *RecognitionWorker) generateMockResult(payload *model.RecognitionJobPayload) *client.RecognitionResult {
	answers := []client.AnswerRecord{
		{
			QuestionNumber: 1,
			QuestionLabel:  "1",
			FinalAnswer:    client.FinalAnswer{ExtractedText: "42"},
			Confidence:     0.97,
		},
		{
			QuestionNumber: 2,
			QuestionLabel:  "2",
			FinalAnswer:    client.FinalAnswer{ExtractedText: "x = 3", LatexFormula: "x=3"},
			Confidence:     0.91,
		},
		{
			QuestionNumber: 3,
			QuestionLabel:  "3",
			FinalAnswer:    client.FinalAnswer{ExtractedText: "photosynthesis"},
			Confidence:     0.84,
		},
	}

	return &client.RecognitionResult{
		SheetID:             payload.SheetID,
		ProcessingTimestamp: time.Now(),
		Answers:             answers,
		Metadata: client.ResultMetadata{
			ImageQuality:           string(model.ImageQualityGood),
			ProcessingTimeMS:       1800,
			TotalQuestionsDetected: len(answers),
			ModelVersion:           "mock-v1",
		},
	}
}
