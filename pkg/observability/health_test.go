package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newMockDB(t *testing.T) (sqlmock.Sqlmock, *HealthChecker) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return mock, NewHealthChecker(db, nil)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestHealthChecker_Liveness(t *testing.T) {
	checker := NewHealthChecker(nil, nil)

	rr := httptest.NewRecorder()
	checker.Liveness(rr, httptest.NewRequest("GET", "/health/live", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != StatusHealthy {
		t.Errorf("status = %v, want %s", body["status"], StatusHealthy)
	}
}

func TestHealthChecker_Readiness(t *testing.T) {
	t.Run("no dependencies is healthy", func(t *testing.T) {
		checker := NewHealthChecker(nil, nil)
		rr := httptest.NewRecorder()
		checker.Readiness(rr, httptest.NewRequest("GET", "/health/ready", nil))
		if rr.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rr.Code)
		}
	})

	t.Run("database down returns 503", func(t *testing.T) {
		mock, checker := newMockDB(t)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		rr := httptest.NewRecorder()
		checker.Readiness(rr, httptest.NewRequest("GET", "/health/ready", nil))

		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rr.Code)
		}
		var body HealthStatus
		if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Status != StatusUnhealthy {
			t.Errorf("aggregate status = %s, want %s", body.Status, StatusUnhealthy)
		}
		if body.Dependencies["database"].Status != StatusUnhealthy {
			t.Error("database dependency should be unhealthy")
		}
	})
}

func TestHealthChecker_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy database", func(t *testing.T) {
		mock, checker := newMockDB(t)
		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		status := checker.Check(ctx)
		if status.Status != StatusHealthy {
			t.Errorf("status = %s, want healthy", status.Status)
		}
		if status.Version == "" {
			t.Error("version should be reported")
		}
	})

	t.Run("query failure is unhealthy", func(t *testing.T) {
		mock, checker := newMockDB(t)
		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("broken"))

		status := checker.Check(ctx)
		if status.Status != StatusUnhealthy {
			t.Errorf("status = %s, want unhealthy", status.Status)
		}
	})

	t.Run("redis down only degrades", func(t *testing.T) {
		mr, client := newTestRedis(t)
		mr.Close()

		checker := NewHealthChecker(nil, client)
		status := checker.Check(ctx)
		if status.Status != StatusDegraded {
			t.Errorf("status = %s, want degraded", status.Status)
		}
		if status.Dependencies["redis"].Status != StatusUnhealthy {
			t.Error("redis dependency should be unhealthy")
		}
	})

	t.Run("redis up is healthy with latency", func(t *testing.T) {
		_, client := newTestRedis(t)

		checker := NewHealthChecker(nil, client)
		status := checker.Check(ctx)
		if status.Status != StatusHealthy {
			t.Errorf("status = %s, want healthy", status.Status)
		}
		dep := status.Dependencies["redis"]
		if dep.Latency < 0 || dep.Timestamp.After(time.Now()) {
			t.Error("dependency latency and timestamp should be populated")
		}
	})
}

func TestRegisterHealthRoutes(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHealthRoutes(mux, NewHealthChecker(nil, nil))

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest("GET", path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rr.Code)
		}
	}
}
