// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.


package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusStarting, "starting"},
		{StatusHealthy, "healthy"},
		{StatusUnhealthy, "unhealthy"},
		{Status(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("Status.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewServer_DefaultPort(t *testing.T) {
	server := NewServer(Config{})
	if server.port != DefaultPort {
		t.Errorf("Expected port %d, got %d", DefaultPort, server.port)
	}
}

func probe(t *testing.T, s *Server, path string) (int, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return rec.Code, resp
}

func TestProbes_FollowStatus(t *testing.T) {
	s := NewServer(Config{})

	if code, _ := probe(t, s, "/healthz"); code != http.StatusServiceUnavailable {
		t.Errorf("Expected starting server to be unhealthy, got %d", code)
	}
	if code, _ := probe(t, s, "/livez"); code != http.StatusOK {
		t.Errorf("Expected starting server to be live, got %d", code)
	}

	s.SetStatus(StatusHealthy)
	if code, resp := probe(t, s, "/healthz"); code != http.StatusOK || !resp.Healthy {
		t.Errorf("Expected healthy server, got %d %+v", code, resp)
	}

	s.SetStatus(StatusUnhealthy)
	if code, _ := probe(t, s, "/livez"); code != http.StatusServiceUnavailable {
		t.Errorf("Expected unhealthy server not to be live, got %d", code)
	}
}

func TestReadyz_RunsChecks(t *testing.T) {
	s := NewServer(Config{})
	s.SetStatus(StatusHealthy)

	lokiErr := errors.New("connection refused")
	var failing bool
	s.AddReadinessCheck("loki", func(context.Context) error {
		if failing {
			return lokiErr
		}
		return nil
	})

	if code, _ := probe(t, s, "/readyz"); code != http.StatusOK {
		t.Errorf("Expected ready, got %d", code)
	}

	failing = true
	code, resp := probe(t, s, "/readyz")
	if code != http.StatusServiceUnavailable {
		t.Errorf("Expected not ready, got %d", code)
	}
	if resp.Failures["loki"] != lokiErr.Error() {
		t.Errorf("Expected loki failure to be reported, got %+v", resp.Failures)
	}
}

func TestReadyz_RequiresHealthyStatus(t *testing.T) {
	s := NewServer(Config{})
	if ready, _ := s.Ready(context.Background()); ready {
		t.Error("Expected starting server not to be ready")
	}
}
