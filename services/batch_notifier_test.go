package services

import (
	"context"
	"errors"
	"testing"

	"studioops_go/models"
	"studioops_go/services/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInbox struct {
	users [][]string
	sent  []notifications.Queued
	err   error
}

func (s *stubInbox) EnqueueOrCreate(_ context.Context, userIDs []string, n notifications.Queued) error {
	s.users = append(s.users, userIDs)
	s.sent = append(s.sent, n)
	return s.err
}

type stubGroup struct {
	enabled bool
	posts   []string
}

func (g *stubGroup) Enabled() bool { return g.enabled }

func (g *stubGroup) SendToStudioGroup(message string) error {
	g.posts = append(g.posts, message)
	return nil
}

func weeklyBatch() BatchSummary {
	return BatchSummary{
		BatchID:        "batch-1",
		InstructorID:   "inst-a",
		AssignmentType: models.AssignmentWeekly,
		Count:          6,
		Requested:      6,
		FirstDate:      "2024-06-03",
		LastDate:       "2024-06-19",
		StartTime:      "18:00",
	}
}

func TestDispatchNotifiesInstructorAndGroup(t *testing.T) {
	store := newServiceStore(t)
	asha := models.Profile{FullName: "Asha Rao"}
	asha.ID = "inst-a"
	seed(t, store, models.TableProfiles, &[]models.Profile{asha})

	inbox, group := &stubInbox{}, &stubGroup{enabled: true}
	d := NewNotificationDispatcher(inbox, group, NewCatalog(store))
	d.dispatch(context.Background(), weeklyBatch())

	require.Len(t, inbox.sent, 1)
	assert.Equal(t, []string{"inst-a"}, inbox.users[0])
	assert.Equal(t, "New classes assigned", inbox.sent[0].Title)
	assert.Contains(t, inbox.sent[0].Message, "6 new class(es)")

	require.Len(t, group.posts, 1)
	assert.Equal(t, "New weekly schedule for Asha Rao\n6 classes, Mon, Jun 3, 2024 to Wed, Jun 19, 2024, starting 6:00 PM", group.posts[0])
}

func TestDispatchSkipsDisabledGroup(t *testing.T) {
	inbox, group := &stubInbox{err: errors.New("queue down")}, &stubGroup{}
	d := NewNotificationDispatcher(inbox, group, nil)
	d.dispatch(context.Background(), weeklyBatch())

	assert.Len(t, inbox.sent, 1, "inbox failures are logged, not retried")
	assert.Empty(t, group.posts)

	NewNotificationDispatcher(nil, nil, nil).dispatch(context.Background(), weeklyBatch())
}

func TestFormatBatchSummary(t *testing.T) {
	single := BatchSummary{
		InstructorID:   "inst-a",
		AssignmentType: models.AssignmentCrashCourse,
		Count:          1,
		Requested:      1,
		FirstDate:      "2024-06-10",
		LastDate:       "2024-06-10",
		StartTime:      "09:00",
	}
	assert.Equal(t, "New crash course schedule for inst-a\nMon, Jun 10, 2024 at 9:00 AM", FormatBatchSummary(single, ""))

	partial := weeklyBatch()
	partial.Count = 3
	assert.Contains(t, FormatBatchSummary(partial, "Asha"), "\nOnly 3 of 6 classes were saved")
}
