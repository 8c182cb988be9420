package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

const DefaultCheckTimeout = 5 * time.Second

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type Checker interface {
	Check(ctx context.Context) error
	Name() string
}

type Health struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status     Status    `json:"status"`
	Message    string    `json:"message,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

type registeredChecker struct {
	Checker
	optional bool
}

// CheckerRegistry runs every registered checker concurrently. A failing
// required checker makes the service unhealthy; a failing optional one only
// degrades it.
type CheckerRegistry struct {
	checkers []registeredChecker
	timeout  time.Duration
}

func NewCheckerRegistry() *CheckerRegistry {
	return &CheckerRegistry{timeout: DefaultCheckTimeout}
}

// WithTimeout bounds each individual check.
func (r *CheckerRegistry) WithTimeout(timeout time.Duration) *CheckerRegistry {
	r.timeout = timeout
	return r
}

func (r *CheckerRegistry) Register(checker Checker) {
	r.checkers = append(r.checkers, registeredChecker{Checker: checker})
}

func (r *CheckerRegistry) RegisterOptional(checker Checker) {
	r.checkers = append(r.checkers, registeredChecker{Checker: checker, optional: true})
}

func (r *CheckerRegistry) Check(ctx context.Context) Health {
	results := make(map[string]CheckResult, len(r.checkers))
	var mu sync.Mutex

	var g errgroup.Group
	for _, checker := range r.checkers {
		g.Go(func() error {
			result := r.run(ctx, checker)
			mu.Lock()
			results[checker.Name()] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return Health{
		Status:    Overall(results),
		Timestamp: time.Now(),
		Checks:    results,
	}
}

func (r *CheckerRegistry) run(ctx context.Context, checker registeredChecker) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	err := checker.Check(ctx)
	result := CheckResult{
		Status:     StatusHealthy,
		DurationMs: time.Since(start).Milliseconds(),
		Timestamp:  time.Now(),
	}
	if err != nil {
		result.Message = err.Error()
		result.Status = StatusUnhealthy
		if checker.optional {
			result.Status = StatusDegraded
		}
	}
	return result
}

// Overall folds per-check results into the worst status seen.
func Overall(results map[string]CheckResult) Status {
	status := StatusHealthy
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc struct {
	CheckerName string
	Fn          func(ctx context.Context) error
}

func (c CheckerFunc) Name() string {
	return c.CheckerName
}

func (c CheckerFunc) Check(ctx context.Context) error {
	if err := c.Fn(ctx); err != nil {
		return fmt.Errorf("%s check failed: %w", c.CheckerName, err)
	}
	return nil
}

func NewPostgreSQLChecker(db *sql.DB) CheckerFunc {
	return CheckerFunc{CheckerName: "postgresql", Fn: db.PingContext}
}

func NewRedisChecker(client *redis.Client) CheckerFunc {
	return CheckerFunc{CheckerName: "redis", Fn: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
}

func NewMongoDBChecker(client *mongo.Client) CheckerFunc {
	return CheckerFunc{CheckerName: "mongodb", Fn: func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	}}
}

// NewKafkaChecker succeeds when any broker accepts a connection.
func NewKafkaChecker(brokers []string) CheckerFunc {
	return CheckerFunc{CheckerName: "kafka", Fn: func(ctx context.Context) error {
		if len(brokers) == 0 {
			return errors.New("no brokers configured")
		}
		var errs []error
		for _, addr := range brokers {
			conn, err := kafka.DialContext(ctx, "tcp", addr)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			_ = conn.Close()
			return nil
		}
		return errors.Join(errs...)
	}}
}
