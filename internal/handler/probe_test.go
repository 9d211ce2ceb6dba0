package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func TestProbeHandler_Liveness(t *testing.T) {
	// Arrange
	handler := NewProbeHandler(zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	// Act
	handler.Liveness(rr, req)

	// Assert
	if rr.Code != http.StatusOK {
		t.Errorf("Liveness() status = %d, want %d", rr.Code, http.StatusOK)
	}
	var response ProbeResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Status != StatusHealthy {
		t.Errorf("Liveness() status = %s, want %s", response.Status, StatusHealthy)
	}
}

func TestProbeHandler_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		wantStatus int
		wantBody   string
	}{
		{"ready", true, http.StatusOK, StatusReady},
		{"not ready", false, http.StatusServiceUnavailable, StatusNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			handler := NewProbeHandler(zap.NewNop())
			handler.SetReady(tt.ready)
			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			rr := httptest.NewRecorder()

			// Act
			handler.Readiness(rr, req)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Errorf("Readiness() status = %d, want %d", rr.Code, tt.wantStatus)
			}
			var response ProbeResponse
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if response.Status != tt.wantBody {
				t.Errorf("Readiness() status = %s, want %s", response.Status, tt.wantBody)
			}
		})
	}
}

func TestProbeHandler_StartsNotReady(t *testing.T) {
	handler := NewProbeHandler(zap.NewNop())
	if handler.Ready() {
		t.Error("Ready() = true before SetReady")
	}
}

func TestProbeHandler_RegisterRoutes(t *testing.T) {
	// Arrange
	handler := NewProbeHandler(zap.NewNop())
	handler.SetReady(true)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	for _, path := range []string{"/health", "/ready"} {
		t.Run(path, func(t *testing.T) {
			// Act
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

			// Assert
			if rr.Code != http.StatusOK {
				t.Errorf("GET %s status = %d, want %d", path, rr.Code, http.StatusOK)
			}
		})
	}
}
