package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const checkTimeout = 2 * time.Second

// HealthChecker reports whether one backing dependency is reachable.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// DatabaseHealthChecker pings a SQL backend.
type DatabaseHealthChecker struct {
	DB *sql.DB
}

func (d *DatabaseHealthChecker) Check(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

// MongoHealthChecker pings the primary.
type MongoHealthChecker struct {
	Client *mongo.Client
}

func (m *MongoHealthChecker) Check(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

// HealthStatus is the /health body.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    float64                `json:"uptime_seconds"`
	Checks    map[string]CheckStatus `json:"checks"`
}

// CheckStatus is the outcome of one dependency check.
type CheckStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Message   string `json:"message,omitempty"`
}

// runChecks runs every checker concurrently, each with its own deadline.
func runChecks(ctx context.Context, checkers map[string]HealthChecker) (map[string]CheckStatus, bool) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		healthy = true
		results = make(map[string]CheckStatus, len(checkers))
	)
	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, checker HealthChecker) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()

			start := time.Now()
			err := checker.Check(cctx)
			st := CheckStatus{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				st.Status = "unhealthy"
				st.Message = err.Error()
			}

			mu.Lock()
			results[name] = st
			if err != nil {
				healthy = false
			}
			mu.Unlock()
		}(name, checker)
	}
	wg.Wait()
	return results, healthy
}

// HealthHandler reports every dependency; 503 when any of them fails.
func HealthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks, ok := runChecks(r.Context(), checkers)
		health := HealthStatus{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Uptime:    time.Since(globalMetrics.StartTime).Seconds(),
			Checks:    checks,
		}
		statusCode := http.StatusOK
		if !ok {
			health.Status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(health)
	}
}

// ReadinessHandler accepts traffic only once the storage backends answer.
func ReadinessHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, ok := runChecks(r.Context(), checkers)
		status, code := "ready", http.StatusOK
		if !ok {
			status, code = "not ready", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    status,
			"timestamp": time.Now().UTC(),
		})
	}
}

// LivenessHandler only proves the process serves requests.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
