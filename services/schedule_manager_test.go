package services

import (
	"context"
	"testing"
	"time"

	"studioops_go/models"
	"studioops_go/services/notifications"
	"studioops_go/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDueForReminder(t *testing.T) {
	now := time.Date(2024, 6, 10, 8, 30, 0, 0, time.UTC)
	rows := []models.ClassAssignment{
		existingClass("past", "i", "2024-06-10", "08:00", "09:00"),
		existingClass("soon", "i", "2024-06-10", "09:00", "10:00"),
		existingClass("edge", "i", "2024-06-10", "09:30", "10:30"),
		existingClass("later", "i", "2024-06-10", "09:31", "10:30"),
		existingClass("tomorrow", "i", "2024-06-11", "09:00", "10:00"),
	}
	cancelled := existingClass("cancelled", "i", "2024-06-10", "09:00", "10:00")
	cancelled.ClassStatus = models.ClassCancelled
	rows = append(rows, cancelled)

	due := dueForReminder(rows, now, time.Hour)
	assert.Equal(t, []string{"soon", "edge"}, assignmentIDs(due))
}

func TestMarkRemindedOncePerDay(t *testing.T) {
	sm := NewScheduleManager(nil, nil, "@daily", "@every 15m")
	assert.True(t, sm.markReminded("a", "2024-06-10"))
	assert.False(t, sm.markReminded("a", "2024-06-10"))
	assert.True(t, sm.markReminded("a", "2024-06-11"))
}

func TestScheduleManagerRejectsBadCron(t *testing.T) {
	sm := NewScheduleManager(nil, nil, "not a cron", "@every 15m")
	assert.Error(t, sm.Start())
}

func TestSendReminders(t *testing.T) {
	ctx := context.Background()
	store := newServiceStore(t)
	assignments := NewAssignmentService(store)
	sm := NewScheduleManager(assignments, notifications.NewService(store, nil, false), "@daily", "@every 15m")
	sm.now = func() time.Time { return time.Date(2024, 6, 10, 8, 30, 0, 0, time.UTC) }

	seedAssignment(t, store, "inst-a", "2024-06-11", "09:00", "10:00")
	seedAssignment(t, store, "inst-a", "2024-06-12", "09:00", "10:00")
	seedAssignment(t, store, "inst-b", "2024-06-30", "09:00", "10:00")
	upcoming := seedAssignment(t, store, "inst-c", "2024-06-10", "09:00", "10:00")
	_, err := assignments.Respond(ctx, upcoming.ID, "inst-c", true)
	require.NoError(t, err)

	require.NoError(t, sm.SendPendingResponseReminders(ctx))
	var notifs []models.Notification
	require.NoError(t, store.Select(ctx, models.TableNotifications, &notifs, []storage.Filter{}))
	require.Len(t, notifs, 1)
	assert.Equal(t, "inst-a", notifs[0].UserID)
	assert.Contains(t, notifs[0].Message, "2 class(es)")

	require.NoError(t, sm.SendUpcomingClassReminders(ctx))
	require.NoError(t, sm.SendUpcomingClassReminders(ctx))
	notifs = nil
	require.NoError(t, store.Select(ctx, models.TableNotifications, &notifs,
		[]storage.Filter{storage.Eq("user_id", "inst-c")}))
	require.Len(t, notifs, 1)
	assert.Equal(t, "Upcoming class", notifs[0].Title)
}
