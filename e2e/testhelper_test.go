package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/examsight/api/internal/auth"
	"github.com/examsight/api/internal/handler"
	"github.com/examsight/api/internal/middleware"
	"github.com/examsight/api/internal/service"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app                *fiber.App
	recognitionService *service.RecognitionService
}

// setupApp creates a Fiber app identical to main.go but with unconfigured external clients.
// This triggers mock/fallback responses in all services.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	// Redis (localhost — must be running)
	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // use DB 15 for tests to avoid collision
	})

	// Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: "localhost:6379",
		DB:   15,
	})
	t.Cleanup(func() { asynqClient.Close() })

	validate := validator.New()

	// Services — nil storage client triggers the mock URL fallback
	recognitionService := service.NewRecognitionService(redisClient, asynqClient)
	uploadService := service.NewUploadService(nil)
	gradingService := service.NewGradingService(recognitionService, 0.6)

	// Handlers
	recognitionHandler := handler.NewRecognitionHandler(recognitionService, uploadService, validate)
	gradingHandler := handler.NewGradingHandler(gradingService, validate)

	// Auth handler (for /auth/verify)
	authHandler := handler.NewAuthHandler(nil, testJWTSecret)

	// Auth middleware — legacy HMAC only
	authMiddleware := middleware.NewLegacyAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 25 * 1024 * 1024,
	})

	// Base routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": 1234567890})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"recognition": false,
				"r2":          false,
				"auth":        true,
			},
		})
	})
	app.Get("/auth/verify", authHandler.Verify)

	// API routes (authenticated)
	api := app.Group("/api", authMiddleware.Authenticate())

	// Use very high rate limits so tests don't get blocked
	recognition := api.Group("/recognition")
	recognition.Post("/submit", rateLimiter.SubmitLimit(10000), recognitionHandler.Submit)
	recognition.Get("/status/:jobId", rateLimiter.StatusLimit(10000), recognitionHandler.Status)
	recognition.Get("/result/:jobId", rateLimiter.StatusLimit(10000), recognitionHandler.Result)
	recognition.Post("/cancel/:jobId", recognitionHandler.Cancel)

	grading := api.Group("/grading", rateLimiter.GradingLimit(10000))
	grading.Post("/score", gradingHandler.Score)

	return &testApp{
		app:                app,
		recognitionService: recognitionService,
	}
}

// generateToken creates a legacy HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	claims := auth.LegacyClaims{
		UserID: "test-user-123",
		Email:  "test@example.com",
		Role:   "teacher",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "examsight-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// parseData unwraps the data object from a SUCCESS envelope.
func parseData(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	envelope := parseJSON(t, resp)
	if envelope["result"] != "SUCCESS" {
		t.Fatalf("expected SUCCESS envelope, got %v (message: %v)", envelope["result"], envelope["message"])
	}
	data, ok := envelope["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected data object in envelope, got %v", envelope["data"])
	}
	return data
}

// assertErrorCode checks an ERROR envelope's machine-readable code.
func assertErrorCode(t *testing.T, resp *http.Response, code string) {
	t.Helper()
	envelope := parseJSON(t, resp)
	if envelope["result"] != "ERROR" {
		t.Fatalf("expected ERROR envelope, got %v", envelope["result"])
	}
	data, ok := envelope["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error data in envelope, got %v", envelope["data"])
	}
	if data["code"] != code {
		t.Errorf("expected error code %s, got %v", code, data["code"])
	}
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
