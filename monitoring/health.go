package monitoring

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fastcore-dev/fastcore/cache"
	"github.com/fastcore-dev/fastcore/httputil"
	"github.com/fastcore-dev/fastcore/schemas"
)

// Status is a health indicator.
type Status string

const (
	Healthy   Status = "healthy"
	Degraded  Status = "degraded"
	Unhealthy Status = "unhealthy"
)

func (s Status) worseThan(other Status) bool {
	rank := map[Status]int{Healthy: 0, Degraded: 1, Unhealthy: 2}
	return rank[s] > rank[other]
}

// Result is the outcome of one health check.
type Result struct {
	Status  Status                 `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// CheckFunc probes one component. Failures should be reported through the
// Result; a panic or error return is treated as unhealthy.
type CheckFunc func(ctx context.Context) Result

// CheckReport is one named entry in the aggregated report.
type CheckReport struct {
	Name    string                 `json:"name"`
	Status  Status                 `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
	Tags    []string               `json:"tags,omitempty"`
}

// Report is the aggregated health outcome.
type Report struct {
	Status Status        `json:"status"`
	Checks []CheckReport `json:"checks"`
}

type registered struct {
	name  string
	check CheckFunc
	tags  []string
}

// HealthRegistry holds named health checks and aggregates their outcomes.
type HealthRegistry struct {
	mu     sync.RWMutex
	checks []registered
}

// NewHealthRegistry returns an empty registry.
func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{}
}

// Register adds a named check.
func (r *HealthRegistry) Register(name string, check CheckFunc, tags ...string) {
	r.mu.Lock()
	r.checks = append(r.checks, registered{name: name, check: check, tags: tags})
	r.mu.Unlock()
}

// RunAll executes every check; overall status is the worst individual one.
func (r *HealthRegistry) RunAll(ctx context.Context) Report {
	r.mu.RLock()
	checks := make([]registered, len(r.checks))
	copy(checks, r.checks)
	r.mu.RUnlock()

	report := Report{Status: Healthy, Checks: []CheckReport{}}
	for _, reg := range checks {
		result := runCheck(ctx, reg.check)
		report.Checks = append(report.Checks, CheckReport{
			Name:    reg.name,
			Status:  result.Status,
			Details: result.Details,
			Tags:    reg.tags,
		})
		if result.Status.worseThan(report.Status) {
			report.Status = result.Status
		}
	}
	return report
}

func runCheck(ctx context.Context, check CheckFunc) (result Result) {
	defer func() {
		if p := recover(); p != nil {
			result = Result{Status: Unhealthy, Details: map[string]interface{}{"panic": p}}
		}
	}()
	return check(ctx)
}

// Handler serves the aggregated report in the success envelope, 503 with
// the error envelope when unhealthy. Details are stripped when
// includeDetails is false.
func (r *HealthRegistry) Handler(includeDetails bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
		defer cancel()

		report := r.RunAll(ctx)
		if !includeDetails {
			for i := range report.Checks {
				report.Checks[i].Details = nil
			}
		}

		if report.Status == Unhealthy {
			resp := schemas.NewErrorResponse("SERVICE_UNHEALTHY", "Service unhealthy")
			httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		httputil.WriteData(w, http.StatusOK, report)
	})
}

// DatabaseCheck probes relational connectivity.
func DatabaseCheck(pool *sqlx.DB) CheckFunc {
	return func(ctx context.Context) Result {
		if err := pool.PingContext(ctx); err != nil {
			return Result{Status: Unhealthy, Details: map[string]interface{}{"error": err.Error()}}
		}
		return Result{Status: Healthy, Details: map[string]interface{}{"connected": true}}
	}
}

// CacheCheck probes the cache backend.
func CacheCheck(store cache.Cache) CheckFunc {
	return func(ctx context.Context) Result {
		if err := store.Ping(ctx); err != nil {
			return Result{Status: Unhealthy, Details: map[string]interface{}{"error": err.Error()}}
		}
		return Result{Status: Healthy, Details: map[string]interface{}{"ping": true}}
	}
}
