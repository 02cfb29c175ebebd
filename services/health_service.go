package services

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"studioops_go/config"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const (
	overallStatusOK       = "ok"
	overallStatusDegraded = "degraded"
	overallStatusCritical = "critical"

	dependencyStatusUp       = "up"
	dependencyStatusDown     = "down"
	dependencyStatusDisabled = "disabled"

	defaultServiceName = "StudioOps Scheduler"
	defaultVersion     = "1.0.0"
	defaultTimeout     = 1500 * time.Millisecond
)

// HealthService aggregates dependency and runtime information for the
// health endpoint.
type HealthService struct {
	serviceName string
	version     string
	startTime   time.Time
	timeout     time.Duration

	db      *gorm.DB
	redis   *redis.Client
	cfg     *config.Config
	line    *LineMessagingService
	clients func() int
}

type HealthReport struct {
	Status        string             `json:"status"`
	Service       string             `json:"service"`
	Version       string             `json:"version"`
	Environment   string             `json:"environment"`
	Time          time.Time          `json:"time"`
	UptimeSeconds float64            `json:"uptime_seconds"`
	UptimeHuman   string             `json:"uptime_human"`
	Dependencies  []DependencyStatus `json:"dependencies"`
	Metrics       HealthMetrics      `json:"metrics"`
	Flags         HealthFlags        `json:"flags"`
}

// DependencyStatus captures the health of a single external dependency.
type DependencyStatus struct {
	Name      string                 `json:"name"`
	Status    string                 `json:"status"`
	LatencyMs int64                  `json:"latency_ms"`
	Error     string                 `json:"error,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

type HealthMetrics struct {
	Goroutines       int    `json:"goroutines"`
	HeapAllocBytes   uint64 `json:"heap_alloc_bytes"`
	WebSocketClients int    `json:"websocket_clients"`
	GoVersion        string `json:"go_version"`
}

// HealthFlags exposes the scheduling toggles in effect.
type HealthFlags struct {
	StrictOverlapGuard    bool   `json:"strict_overlap_guard"`
	UseRedisNotifications bool   `json:"use_redis_notifications"`
	DefaultTimezone       string `json:"default_timezone"`
}

type HealthOption func(*HealthService)

func WithHealthDB(db *gorm.DB) HealthOption          { return func(s *HealthService) { s.db = db } }
func WithHealthRedis(c *redis.Client) HealthOption   { return func(s *HealthService) { s.redis = c } }
func WithHealthConfig(c *config.Config) HealthOption { return func(s *HealthService) { s.cfg = c } }
func WithHealthLine(l *LineMessagingService) HealthOption {
	return func(s *HealthService) { s.line = l }
}
func WithClientCounter(f func() int) HealthOption { return func(s *HealthService) { s.clients = f } }

func NewHealthService(serviceName, version string, opts ...HealthOption) *HealthService {
	if strings.TrimSpace(serviceName) == "" {
		serviceName = defaultServiceName
	}
	if strings.TrimSpace(version) == "" {
		version = defaultVersion
	}
	s := &HealthService{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
		timeout:     defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetHealthReport probes every dependency within the service timeout.
func (s *HealthService) GetHealthReport(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	uptime := time.Since(s.startTime)
	report := HealthReport{
		Status:        overallStatusOK,
		Service:       s.serviceName,
		Version:       s.version,
		Environment:   s.environment(),
		Time:          time.Now().UTC(),
		UptimeSeconds: uptime.Seconds(),
		UptimeHuman:   humanizeDuration(uptime),
	}

	db, dbStatus := s.checkDatabase(ctx)
	rd, redisStatus := s.checkRedis(ctx)
	report.Dependencies = []DependencyStatus{db, rd, s.checkLine()}
	report.Status = combineStatus(combineStatus(report.Status, dbStatus), redisStatus)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	report.Metrics = HealthMetrics{
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: mem.HeapAlloc,
		GoVersion:      runtime.Version(),
	}
	if s.clients != nil {
		report.Metrics.WebSocketClients = s.clients()
	}
	if s.cfg != nil {
		report.Flags = HealthFlags{
			StrictOverlapGuard:    s.cfg.StrictOverlapGuard,
			UseRedisNotifications: s.cfg.UseRedisNotifications,
			DefaultTimezone:       s.cfg.DefaultTimezone,
		}
	}
	return report
}

// HTTPStatusForOverall maps a health status to an HTTP status code.
func (s *HealthService) HTTPStatusForOverall(status string) int {
	if status == overallStatusCritical {
		return 503
	}
	return 200
}

func (s *HealthService) checkDatabase(ctx context.Context) (DependencyStatus, string) {
	dep := DependencyStatus{Name: "database"}
	if s.db == nil {
		dep.Status = dependencyStatusDown
		dep.Error = "database connection not initialised"
		return dep, overallStatusCritical
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		dep.Status = dependencyStatusDown
		dep.Error = fmt.Sprintf("sql DB handle error: %v", err)
		return dep, overallStatusCritical
	}

	start := time.Now()
	err = sqlDB.PingContext(ctx)
	dep.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		dep.Status = dependencyStatusDown
		dep.Error = err.Error()
		return dep, overallStatusCritical
	}

	stats := sqlDB.Stats()
	dep.Status = dependencyStatusUp
	dep.Details = map[string]interface{}{
		"driver":           s.db.Dialector.Name(),
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
	}
	return dep, overallStatusOK
}

// checkRedis degrades the report only when a feature depends on Redis.
func (s *HealthService) checkRedis(ctx context.Context) (DependencyStatus, string) {
	dep := DependencyStatus{Name: "redis"}
	needed := s.cfg != nil && (s.cfg.UseRedisNotifications || s.cfg.StrictOverlapGuard)

	if s.redis == nil {
		if needed {
			dep.Status = dependencyStatusDown
			dep.Error = "redis client not initialised"
			return dep, overallStatusDegraded
		}
		dep.Status = dependencyStatusDisabled
		return dep, overallStatusOK
	}

	start := time.Now()
	err := s.redis.Ping(ctx).Err()
	dep.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		dep.Status = dependencyStatusDown
		dep.Error = err.Error()
		if needed {
			return dep, overallStatusDegraded
		}
		return dep, overallStatusOK
	}
	dep.Status = dependencyStatusUp
	dep.Details = map[string]interface{}{"address": s.redis.Options().Addr}
	return dep, overallStatusOK
}

func (s *HealthService) checkLine() DependencyStatus {
	if s.line.Enabled() {
		return DependencyStatus{Name: "line", Status: dependencyStatusUp}
	}
	return DependencyStatus{Name: "line", Status: dependencyStatusDisabled}
}

func (s *HealthService) environment() string {
	if s.cfg == nil || strings.TrimSpace(s.cfg.AppEnv) == "" {
		return "unknown"
	}
	return s.cfg.AppEnv
}

func combineStatus(current, candidate string) string {
	order := map[string]int{
		overallStatusOK:       0,
		overallStatusDegraded: 1,
		overallStatusCritical: 2,
	}
	if _, ok := order[current]; !ok {
		current = overallStatusOK
	}
	if v, ok := order[candidate]; ok && v > order[current] {
		return candidate
	}
	return current
}

func humanizeDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}

	d = d.Round(time.Second)
	days := d / (24 * time.Hour)
	d %= 24 * time.Hour
	hours := d / time.Hour
	d %= time.Hour
	minutes := d / time.Minute
	d %= time.Minute
	seconds := d / time.Second

	parts := []string{}
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, " ")
}
