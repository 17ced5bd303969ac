package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/gymbro/internal/app"
	"github.com/ayusman/gymbro/internal/coordinator"
	"github.com/ayusman/gymbro/internal/metrics"
	"github.com/ayusman/gymbro/internal/pose"
)

// newTestApp creates an App on the default engine with test metrics.
func newTestApp(t *testing.T) (*app.App, *metrics.Manager) {
	t.Helper()

	m := metrics.NewTestManager()
	a, err := app.New(app.Config{Engine: coordinator.DefaultConfig(), PluginDir: t.TempDir(), Metrics: m})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	t.Cleanup(a.Close)
	return a, m
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}

		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}

		for _, method := range methods {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})

	t.Run("reports active exercise", func(t *testing.T) {
		a, _ := newTestApp(t)
		s := New(Config{App: a})

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["exercise"] != "squat" {
			t.Errorf("expected exercise 'squat', got %v", response["exercise"])
		}
		if response["replay"] != false {
			t.Errorf("expected replay false, got %v", response["replay"])
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/nonexistent", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_EngineRoutesNeedApp(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/exercise", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	m, reg := metrics.NewTestManagerAndRegistry()
	a, err := app.New(app.Config{Engine: coordinator.DefaultConfig(), PluginDir: t.TempDir(), Metrics: m})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	defer a.Close()

	a.Process(pose.SquatFrame(150, 150))

	s := New(Config{App: a, Gatherer: reg})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "_frames{") {
		t.Errorf("expected frame counter in metrics output, got:\n%s", body)
	}
	if !strings.Contains(body, `exercise="squat"`) {
		t.Errorf("expected squat label in metrics output")
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	// Create a test HTML file
	testContent := "<html><body>Hello, World!</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	// Create a CSS file for testing direct file access
	cssContent := "body { color: red; }"
	if err := os.WriteFile(filepath.Join(tmpDir, "style.css"), []byte(cssContent), 0644); err != nil {
		t.Fatalf("failed to create test CSS file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	t.Run("serves index.html at root path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		if rec.Body.String() != testContent {
			t.Errorf("expected body %q, got %q", testContent, rec.Body.String())
		}
	})

	t.Run("serves static files from configured directory", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/style.css", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		if rec.Body.String() != cssContent {
			t.Errorf("expected body %q, got %q", cssContent, rec.Body.String())
		}
	})

	t.Run("returns 404 for non-existent static files", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nonexistent.html", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestServer_NoStaticDir(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	s := New(Config{})
	if err := s.Serve("127.0.0.1:0"); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	resp, err := http.Get("http://" + s.Addr().String() + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	s.GracefulShutdown()

	if _, err := http.Get("http://" + s.Addr().String() + "/api/health"); err == nil {
		t.Error("expected request after shutdown to fail")
	}
}

func TestServer_ServeBindError(t *testing.T) {
	first := New(Config{})
	if err := first.Serve("127.0.0.1:0"); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	defer first.GracefulShutdown()

	second := New(Config{})
	if err := second.Serve(first.Addr().String()); err == nil {
		second.GracefulShutdown()
		t.Error("expected bind error on a used port")
	}
}
