package services

import (
	"context"
	"fmt"

	"studioops_go/services/notifications"

	"github.com/sirupsen/logrus"
)

// InboxSender delivers in-app notifications.
type InboxSender interface {
	EnqueueOrCreate(ctx context.Context, userIDs []string, n notifications.Queued) error
}

// GroupPoster posts to the studio chat group.
type GroupPoster interface {
	Enabled() bool
	SendToStudioGroup(message string) error
}

// NotificationDispatcher fans a created batch out to the instructor's inbox
// and the studio LINE group.
type NotificationDispatcher struct {
	notifier InboxSender
	line     GroupPoster
	catalog  *Catalog
}

func NewNotificationDispatcher(notifier InboxSender, line GroupPoster, catalog *Catalog) *NotificationDispatcher {
	return &NotificationDispatcher{notifier: notifier, line: line, catalog: catalog}
}

// BatchCreated runs in the background so the caller's response is not held up.
func (d *NotificationDispatcher) BatchCreated(ctx context.Context, b BatchSummary) {
	go d.dispatch(context.WithoutCancel(ctx), b)
}

func (d *NotificationDispatcher) dispatch(ctx context.Context, b BatchSummary) {
	logger := logrus.WithFields(logrus.Fields{"batch_id": b.BatchID, "instructor_id": b.InstructorID})

	if d.notifier != nil {
		msg := notifications.Message(
			"New classes assigned",
			fmt.Sprintf("You have %d new class(es) starting %s. Please accept or decline.", b.Count, b.FirstDate),
			"info",
			map[string]interface{}{"action": "respond", "batch_id": b.BatchID},
			"normal", "popup",
		)
		if err := d.notifier.EnqueueOrCreate(ctx, []string{b.InstructorID}, msg); err != nil {
			logger.WithError(err).Warn("instructor notification failed")
		}
	}

	if d.line != nil && d.line.Enabled() {
		name := ""
		if d.catalog != nil {
			if p, err := d.catalog.Instructor(ctx, b.InstructorID); err == nil && p != nil {
				name = p.FullName
			}
		}
		if err := d.line.SendToStudioGroup(FormatBatchSummary(b, name)); err != nil {
			logger.WithError(err).Warn("LINE batch summary failed")
		}
	}
}
