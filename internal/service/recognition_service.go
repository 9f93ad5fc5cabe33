package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/examsight/api/internal/client"
	"github.com/examsight/api/internal/model"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	TaskTypeRecognition = "recognition:process"
)

// RecognitionService handles recognition job management
type RecognitionService struct {
	redis       *redis.Client
	asynqClient *asynq.Client
}

func NewRecognitionService(redisClient *redis.Client, asynqClient *asynq.Client) *RecognitionService {
	return &RecognitionService{
		redis:       redisClient,
		asynqClient: asynqClient,
	}
}

// StartRecognition queues a new recognition job for an uploaded sheet
func (s *RecognitionService) StartRecognition(ctx context.Context, payload *model.RecognitionJobPayload) (*model.RecognitionSubmitResponse, error) {
	jobID := uuid.New().String()
	now := time.Now()

	job := &model.Job{
		ID:        jobID,
		Type:      model.JobTypeRecognition,
		Status:    model.JobStatusQueued,
		Progress:  0,
		CreatedAt: now,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job.Payload = payloadBytes

	if err := s.saveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := newRecognitionTask(jobID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue("recognition"),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.RecognitionSubmitResponse{
		JobID:             jobID,
		SheetID:           payload.SheetID,
		Status:            model.JobStatusQueued,
		EstimatedDuration: 30, // seconds - the remote service's usual turnaround
		CreatedAt:         now,
	}, nil
}

// GetStatus returns the current status of a recognition job
func (s *RecognitionService) GetStatus(ctx context.Context, jobID string) (*model.RecognitionStatusResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.RecognitionStatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		RetryCount:  job.RetryCount,
	}, nil
}

// GetResult returns the result of a completed recognition job
func (s *RecognitionService) GetResult(ctx context.Context, jobID string) (*model.RecognitionResultResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusSucceeded {
		return nil, fmt.Errorf("job not completed")
	}

	var result model.RecognitionResultResponse
	if err := json.Unmarshal(job.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &result, nil
}

// CancelRecognition cancels a recognition job. The worker checks the job
// record at each progress update and stops polling a canceled job.
func (s *RecognitionService) CancelRecognition(ctx context.Context, jobID string) (*model.RecognitionCancelResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status == model.JobStatusSucceeded || job.Status == model.JobStatusFailed {
		return nil, fmt.Errorf("job already completed")
	}

	job.Status = model.JobStatusCanceled
	now := time.Now()
	job.CompletedAt = &now

	if err := s.saveJob(ctx, job); err != nil {
		return nil, err
	}

	return &model.RecognitionCancelResponse{
		Success: true,
		JobID:   jobID,
		Status:  model.JobStatusCanceled,
	}, nil
}

// IsCanceled reports whether a job has been canceled out-of-band
func (s *RecognitionService) IsCanceled(ctx context.Context, jobID string) bool {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return false
	}
	return job.Status == model.JobStatusCanceled
}

// UpdateJobProgress updates job progress (called by worker)
func (s *RecognitionService) UpdateJobProgress(ctx context.Context, jobID string, progress int, step string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	if job.Status == model.JobStatusCanceled {
		return fmt.Errorf("job canceled")
	}

	job.Progress = progress
	job.CurrentStep = step

	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusRunning
		now := time.Now()
		job.StartedAt = &now
	}

	return s.saveJob(ctx, job)
}

// SetRemoteJobID records the remote service's job id once submission has been
// accepted. The remote id is immutable for the rest of the job's lifetime.
func (s *RecognitionService) SetRemoteJobID(ctx context.Context, jobID, remoteJobID string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	if job.RemoteJobID != "" && job.RemoteJobID != remoteJobID {
		return fmt.Errorf("remote job id already set")
	}

	job.RemoteJobID = remoteJobID
	return s.saveJob(ctx, job)
}

// CompleteJob marks job as completed and stores the recognition result
// (called by worker)
func (s *RecognitionService) CompleteJob(ctx context.Context, jobID string, payload *model.RecognitionJobPayload, result *client.RecognitionResult) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	resultBytes, err := json.Marshal(&model.RecognitionResultResponse{
		JobID:     jobID,
		SheetID:   payload.SheetID,
		ExamID:    payload.ExamID,
		Result:    result,
		CreatedAt: job.CreatedAt,
	})
	if err != nil {
		return err
	}

	job.Status = model.JobStatusSucceeded
	job.Progress = 100
	job.Result = resultBytes
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// FailJob marks job as failed (called by worker)
func (s *RecognitionService) FailJob(ctx context.Context, jobID string, errMsg string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusFailed
	job.Error = &errMsg
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// Helper methods

func (s *RecognitionService) saveJob(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, fmt.Sprintf("job:%s", job.ID), data, 24*time.Hour).Err()
}

func (s *RecognitionService) getJob(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf("job:%s", jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("job not found")
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}

	return &job, nil
}

func newRecognitionTask(jobID string, payload []byte) (*asynq.Task, error) {
	taskPayload := map[string]interface{}{
		"jobId":   jobID,
		"payload": json.RawMessage(payload),
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRecognition, data), nil
}
