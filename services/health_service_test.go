package services

import (
	"context"
	"testing"
	"time"

	"studioops_go/config"
	"studioops_go/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthReport(t *testing.T) {
	db, err := database.OpenSQLite("file:"+uuid.NewString()+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)

	svc := NewHealthService("", "",
		WithHealthDB(db),
		WithHealthConfig(&config.Config{AppEnv: "test", DefaultTimezone: "Asia/Kolkata"}),
		WithClientCounter(func() int { return 3 }),
	)
	report := svc.GetHealthReport(context.Background())
	assert.Equal(t, overallStatusOK, report.Status)
	assert.Equal(t, "test", report.Environment)
	assert.Equal(t, 3, report.Metrics.WebSocketClients)
	require.Len(t, report.Dependencies, 3)
	assert.Equal(t, dependencyStatusUp, report.Dependencies[0].Status)
	assert.Equal(t, dependencyStatusDisabled, report.Dependencies[1].Status)
	assert.Equal(t, dependencyStatusDisabled, report.Dependencies[2].Status)
	assert.Equal(t, 200, svc.HTTPStatusForOverall(report.Status))
}

func TestHealthReportWithoutDatabase(t *testing.T) {
	svc := NewHealthService("", "", WithHealthConfig(&config.Config{StrictOverlapGuard: true}))
	report := svc.GetHealthReport(context.Background())
	assert.Equal(t, overallStatusCritical, report.Status)
	assert.Equal(t, dependencyStatusDown, report.Dependencies[1].Status)
	assert.Equal(t, 503, svc.HTTPStatusForOverall(report.Status))
}

func TestHumanizeDuration(t *testing.T) {
	assert.Equal(t, "0s", humanizeDuration(0))
	assert.Equal(t, "1d 2h 3s", humanizeDuration(26*time.Hour+3*time.Second))
}
