package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/examsight/api/internal/config"
)

// TextRecognizer defines the interface for the remote OCR text-recognition service
type TextRecognizer interface {
	SubmitSheet(ctx context.Context, image []byte, opts *SubmitOptions) (*SubmitResponse, error)
	GetJobStatus(ctx context.Context, jobID string) (*JobStatus, error)
	GetJobResult(ctx context.Context, jobID string) (*RecognitionResult, error)
	PollUntilComplete(ctx context.Context, jobID string, opts *PollOptions) (*RecognitionResult, error)
}

// RecognitionClient implements TextRecognizer against the recognition service's
// async HTTP API
type RecognitionClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	callbackURL string
}

// RemoteStatus is the job status reported by the recognition service.
// Transitions are one-directional: submitted → processing → completed|failed.
type RemoteStatus string

const (
	StatusSubmitted  RemoteStatus = "submitted"
	StatusProcessing RemoteStatus = "processing"
	StatusCompleted  RemoteStatus = "completed"
	StatusFailed     RemoteStatus = "failed"
)

// IsTerminal reports whether no further status change can occur
func (s RemoteStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SubmitOptions are the optional submission parameters. A zero Priority and
// empty CallbackURL are omitted; the client falls back to its configured
// callback URL (the service requires one even though polling is the only
// completion mechanism actually used).
type SubmitOptions struct {
	CallbackURL string
	Priority    int
	UseCache    bool
}

// SubmitResponse echoes the submission accepted by the recognition service
type SubmitResponse struct {
	JobID                   string       `json:"jobId"`
	Status                  RemoteStatus `json:"status"`
	EstimatedCompletionTime time.Time    `json:"estimatedCompletionTime"`
	CallbackURL             string       `json:"callbackUrl"`
	SubmittedAt             time.Time    `json:"submittedAt"`
}

// JobStatus is the current state of a recognition job
type JobStatus struct {
	JobID       string       `json:"jobId"`
	Status      RemoteStatus `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

// RecognitionResult is the terminal payload of a completed recognition job
type RecognitionResult struct {
	SheetID             string         `json:"sheet_id"`
	ProcessingTimestamp time.Time      `json:"processing_timestamp"`
	Answers             []AnswerRecord `json:"answers"`
	Metadata            ResultMetadata `json:"metadata"`
}

// AnswerRecord is one extracted per-question answer
type AnswerRecord struct {
	QuestionNumber int         `json:"question_number"`
	QuestionLabel  string      `json:"question_label"`
	FinalAnswer    FinalAnswer `json:"final_answer"`
	Confidence     float64     `json:"confidence"`
}

// FinalAnswer holds the extracted text and, for math answers, a normalized formula
type FinalAnswer struct {
	ExtractedText string `json:"extracted_text"`
	LatexFormula  string `json:"latex_formula,omitempty"`
}

// ResultMetadata describes how the sheet was processed
type ResultMetadata struct {
	ImageQuality           string `json:"image_quality"`
	ProcessingTimeMS       int64  `json:"processing_time_ms"`
	TotalQuestionsDetected int    `json:"total_questions_detected"`
	ModelVersion           string `json:"model_version"`
}

// PollOptions control the poll-until-complete loop
type PollOptions struct {
	Interval    time.Duration
	MaxAttempts int
	// OnProgress is invoked with the observed status on every non-terminal
	// iteration. Called synchronously from the polling loop.
	OnProgress func(status RemoteStatus)
}

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultMaxAttempts  = 60
)

// envelope is the response wrapper used by every recognition service endpoint
type envelope struct {
	Result  string          `json:"result"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

const envelopeSuccess = "SUCCESS"

// NewRecognitionClient creates a new recognition service client
func NewRecognitionClient(cfg *config.RecognitionConfig) *RecognitionClient {
	return &RecognitionClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		callbackURL: cfg.CallbackURL,
	}
}

// SubmitSheet submits a sheet image as a new asynchronous recognition job.
// Submission is at-most-once: the service mints a fresh jobId per call, so
// resubmitting the same image creates a second job.
func (c *RecognitionClient) SubmitSheet(ctx context.Context, image []byte, opts *SubmitOptions) (*SubmitResponse, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("sheet image is empty")
	}

	callbackURL := c.callbackURL
	priority := 0
	useCache := false
	if opts != nil {
		if opts.CallbackURL != "" {
			callbackURL = opts.CallbackURL
		}
		priority = opts.Priority
		useCache = opts.UseCache
	}

	params := url.Values{}
	params.Set("callback_url", callbackURL)
	if priority > 0 {
		params.Set("priority", strconv.Itoa(priority))
	}
	params.Set("use_cache", strconv.FormatBool(useCache))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "sheet.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-recognition/async/submit?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result SubmitResponse
	if err := c.doRequest(req, &result); err != nil {
		return nil, err
	}
	if result.JobID == "" {
		return nil, &ProtocolError{Err: fmt.Errorf("submit response missing jobId")}
	}
	return &result, nil
}

// GetJobStatus queries the current status of a recognition job. A 404 from
// the status endpoint is returned as *NotFoundError: a freshly submitted job
// may not be visible yet, and PollUntilComplete retries that case.
func (c *RecognitionClient) GetJobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}

	endpoint := fmt.Sprintf("%s/text-recognition/async/status/%s", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var result JobStatus
	if err := c.doRequest(req, &result); err != nil {
		var te *TransportError
		if errors.As(err, &te) && te.StatusCode == http.StatusNotFound {
			return nil, &NotFoundError{JobID: jobID}
		}
		return nil, err
	}
	return &result, nil
}

// GetJobResult retrieves the result payload for a job. Callers must only
// invoke this after observing status completed; PollUntilComplete guarantees
// that ordering.
func (c *RecognitionClient) GetJobResult(ctx context.Context, jobID string) (*RecognitionResult, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}

	endpoint := fmt.Sprintf("%s/text-recognition/async/result/%s", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var result RecognitionResult
	if err := c.doRequest(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PollUntilComplete polls a job until it reaches a terminal status, the
// attempt budget runs out, or ctx is cancelled. Status calls are strictly
// sequential within a session, the job's result is fetched at most once, and
// no poll is issued after a terminal status has been observed.
func (c *RecognitionClient) PollUntilComplete(ctx context.Context, jobID string, opts *PollOptions) (*RecognitionResult, error) {
	interval := defaultPollInterval
	maxAttempts := defaultMaxAttempts
	var onProgress func(RemoteStatus)
	if opts != nil {
		if opts.Interval > 0 {
			interval = opts.Interval
		}
		if opts.MaxAttempts > 0 {
			maxAttempts = opts.MaxAttempts
		}
		onProgress = opts.OnProgress
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		status, err := c.GetJobStatus(ctx, jobID)
		switch {
		case err != nil:
			var nf *NotFoundError
			if !errors.As(err, &nf) {
				return nil, err
			}
			// Submission race window: the job exists but the status
			// endpoint can't see it yet. Retry as if still submitted.
			log.Printf("[Recognition] Poll #%d (job=%s) — not visible yet, retrying", attempt, jobID)

		case status.Status == StatusCompleted:
			return c.GetJobResult(ctx, jobID)

		case status.Status == StatusFailed:
			return nil, &RemoteJobError{Message: "text recognition job failed"}

		default:
			log.Printf("[Recognition] Poll #%d (job=%s) — status: %s", attempt, jobID, status.Status)
			if onProgress != nil {
				onProgress(status.Status)
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}

	return nil, &TimeoutError{
		Attempts: maxAttempts,
		Budget:   time.Duration(maxAttempts) * interval,
	}
}

// Recognize submits a sheet image and waits for its result in one call
func (c *RecognitionClient) Recognize(ctx context.Context, image []byte, submitOpts *SubmitOptions, pollOpts *PollOptions) (*RecognitionResult, error) {
	submitted, err := c.SubmitSheet(ctx, image, submitOpts)
	if err != nil {
		return nil, err
	}
	return c.PollUntilComplete(ctx, submitted.JobID, pollOpts)
}

// doRequest executes an HTTP request and unwraps the service's response
// envelope into out
func (c *RecognitionClient) doRequest(req *http.Request, out interface{}) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	log.Printf("[Recognition] → %s %s", req.Method, req.URL.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[Recognition] ← %d %s %s", resp.StatusCode, req.Method, req.URL.Path)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return &ProtocolError{Err: err}
	}
	if env.Result != envelopeSuccess {
		return &RemoteJobError{Message: env.Message}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &ProtocolError{Err: err}
	}

	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *RecognitionClient) IsConfigured() bool {
	return c.baseURL != ""
}
