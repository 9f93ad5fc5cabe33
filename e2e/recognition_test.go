package e2e

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"

	"github.com/google/uuid"
)

// createSubmitRequest builds a multipart/form-data request with a fake sheet image.
func createSubmitRequest(t *testing.T, token string, fields map[string]string, withFile bool) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}

	if withFile {
		partHeader := make(textproto.MIMEHeader)
		partHeader.Set("Content-Disposition", `form-data; name="file"; filename="sheet.png"`)
		partHeader.Set("Content-Type", "image/png")
		part, err := writer.CreatePart(partHeader)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		// Minimal PNG signature + some data
		pngHeader := []byte("\x89PNG\r\n\x1a\n")
		fakeData := make([]byte, 1024)
		_, _ = part.Write(pngHeader)
		_, _ = part.Write(fakeData)
	}

	writer.Close()

	req, err := http.NewRequest(http.MethodPost, "/api/recognition/submit", &buf)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

func submitSheet(t *testing.T, ta *testApp) string {
	t.Helper()

	token := generateToken(t)
	req := createSubmitRequest(t, token, map[string]string{
		"examId":  uuid.New().String(),
		"subject": "math",
	}, true)

	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("submit request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)

	data := parseData(t, resp)
	jobID, _ := data["jobId"].(string)
	if jobID == "" {
		t.Fatal("expected 'jobId' in submit response")
	}
	return jobID
}

func TestRecognitionSubmit_Success(t *testing.T) {
	ta := setupApp(t)

	token := generateToken(t)
	req := createSubmitRequest(t, token, map[string]string{
		"examId":  uuid.New().String(),
		"subject": "math",
	}, true)

	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusAccepted)

	data := parseData(t, resp)
	if data["jobId"] == nil || data["jobId"] == "" {
		t.Error("expected 'jobId' in response")
	}
	if data["sheetId"] == nil || data["sheetId"] == "" {
		t.Error("expected 'sheetId' in response")
	}
	if data["status"] != "queued" {
		t.Errorf("expected status 'queued', got %v", data["status"])
	}
}

func TestRecognitionSubmit_NoAuth(t *testing.T) {
	ta := setupApp(t)

	req := createSubmitRequest(t, "", map[string]string{
		"examId": uuid.New().String(),
	}, true)

	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestRecognitionSubmit_MissingFile(t *testing.T) {
	ta := setupApp(t)

	token := generateToken(t)
	req := createSubmitRequest(t, token, map[string]string{
		"examId": uuid.New().String(),
	}, false)

	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
	assertErrorCode(t, resp, "VALIDATION_ERROR")
}

func TestRecognitionSubmit_InvalidSubject(t *testing.T) {
	ta := setupApp(t)

	token := generateToken(t)
	req := createSubmitRequest(t, token, map[string]string{
		"examId":  uuid.New().String(),
		"subject": "astrology",
	}, true)

	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
	assertErrorCode(t, resp, "VALIDATION_ERROR")
}

func TestRecognitionStatus_Success(t *testing.T) {
	ta := setupApp(t)

	jobID := submitSheet(t, ta)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/recognition/status/"+jobID, "")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	data := parseData(t, resp)
	if data["jobId"] != jobID {
		t.Errorf("expected jobId %s, got %v", jobID, data["jobId"])
	}
	if data["status"] == nil {
		t.Error("expected 'status' field in response")
	}
}

func TestRecognitionStatus_NotFound(t *testing.T) {
	ta := setupApp(t)

	fakeJobID := uuid.New().String()
	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/recognition/status/"+fakeJobID, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
	assertErrorCode(t, resp, "NOT_FOUND")
}

func TestRecognitionResult_NotCompleted(t *testing.T) {
	ta := setupApp(t)

	jobID := submitSheet(t, ta)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/recognition/result/"+jobID, "")
	if err != nil {
		t.Fatalf("result request failed: %v", err)
	}

	// Job is still queued — no worker is running in tests
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestRecognitionCancel_Success(t *testing.T) {
	ta := setupApp(t)

	jobID := submitSheet(t, ta)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/recognition/cancel/"+jobID, "")
	if err != nil {
		t.Fatalf("cancel request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	data := parseData(t, resp)
	if data["success"] != true {
		t.Errorf("expected success true, got %v", data["success"])
	}
	if data["status"] != "canceled" {
		t.Errorf("expected status 'canceled', got %v", data["status"])
	}
}

func TestRecognitionCancel_AlreadyCanceled(t *testing.T) {
	ta := setupApp(t)

	jobID := submitSheet(t, ta)

	path := fmt.Sprintf("/api/recognition/cancel/%s", jobID)
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, path, "")
	if err != nil {
		t.Fatalf("cancel request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	// Second cancel is idempotent for a non-terminal job
	resp, err = doAuthRequest(t, ta.app, http.MethodPost, path, "")
	if err != nil {
		t.Fatalf("second cancel request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
}
