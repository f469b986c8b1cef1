package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/layerpipe/api/internal/handler"
	"github.com/layerpipe/api/internal/middleware"
	"github.com/layerpipe/api/internal/model"
	"github.com/layerpipe/api/internal/scheduler"
)

func layerConfig(layerType, name string) model.LayerConfig {
	return model.LayerConfig{Type: model.LayerType(layerType), Name: name}
}

func layerConfigWithParams(layerType, name string, params map[string]interface{}) model.LayerConfig {
	cfg := layerConfig(layerType, name)
	cfg.Parameters = params
	return cfg
}

const testJWTSecret = "test-secret-for-handlers"

// testApp holds the components needed for handler tests
type testApp struct {
	app   *fiber.App
	sched *scheduler.Scheduler
	auth  *middleware.AuthMiddleware
}

// setupApp wires a Fiber app with the same routes as main.go. The rate
// limiter points at a redis that is usually absent in tests; it fails open.
func setupApp(t *testing.T, opts ...scheduler.Option) *testApp {
	t.Helper()

	sched := scheduler.New(opts...)
	validate := validator.New()

	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // keep test keys away from a local dev instance
	})
	t.Cleanup(func() { redisClient.Close() })

	layerHandler := handler.NewLayerHandler(sched, validate)
	jobHandler := handler.NewJobHandler(sched, validate, nil, 0)
	systemHandler := handler.NewSystemHandler(sched, 0)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", authMiddleware.Authenticate())

	// Very high limits so tests never trip the limiter even with redis up
	api.Post("/projects/:projectId/layers", rateLimiter.LayerLimit(100000), layerHandler.Create)
	api.Get("/projects/:projectId/layers", layerHandler.List)
	api.Get("/layers/:layerId", layerHandler.Get)
	api.Put("/layers/:layerId/status", layerHandler.UpdateStatus)
	api.Post("/layers/:layerId/audio", layerHandler.AttachAudio)
	api.Get("/layers/:layerId/audio", layerHandler.DownloadAudio)
	api.Delete("/layers/:layerId", layerHandler.Delete)

	api.Post("/jobs", rateLimiter.JobLimit(100000), jobHandler.Create)
	api.Get("/jobs", jobHandler.List)
	api.Get("/jobs/:jobId", jobHandler.Get)
	api.Post("/jobs/:jobId/status", jobHandler.UpdateStatus)
	api.Get("/jobs/:jobId/wait", jobHandler.Wait)

	api.Get("/stats", systemHandler.Stats)
	api.Post("/maintenance/sweep", systemHandler.Sweep)

	return &testApp{app: app, sched: sched, auth: authMiddleware}
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
func doAuthRequest(t *testing.T, ta *testApp, method, path, body string) (*http.Response, error) {
	t.Helper()
	token, err := ta.auth.GenerateToken("test-user-123", "test@example.com")
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return doRequest(ta.app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// doAudioUpload performs an authenticated multipart audio upload.
func doAudioUpload(t *testing.T, ta *testApp, path string, audio []byte, metadata string) (*http.Response, error) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", `form-data; name="file"; filename="take.wav"`)
	partHeader.Set("Content-Type", "audio/wav")
	part, err := w.CreatePart(partHeader)
	if err != nil {
		t.Fatalf("failed to create multipart part: %v", err)
	}
	if _, err := part.Write(audio); err != nil {
		t.Fatalf("failed to write audio part: %v", err)
	}
	if metadata != "" {
		if err := w.WriteField("metadata", metadata); err != nil {
			t.Fatalf("failed to write metadata field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	token, err := ta.auth.GenerateToken("test-user-123", "test@example.com")
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	return ta.app.Test(req, -1)
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

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// errorCode extracts the error.code field from an error envelope.
func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	result := parseJSON(t, resp)
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %v", result)
	}
	code, _ := errObj["code"].(string)
	return code
}
