package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"studioops_go/models"
	"studioops_go/services/notifications"
	"studioops_go/utils"

	"github.com/robfig/cron/v3"
)

// ScheduleManager runs the periodic reminder jobs.
type ScheduleManager struct {
	assignments  *AssignmentService
	notifier     InboxSender
	cron         *cron.Cron
	reminderSpec string
	upcomingSpec string
	leadTime     time.Duration
	now          func() time.Time

	mu       sync.Mutex
	reminded map[string]string // assignment id -> date reminded
}

func NewScheduleManager(assignments *AssignmentService, notifier InboxSender, reminderSpec, upcomingSpec string) *ScheduleManager {
	return &ScheduleManager{
		assignments:  assignments,
		notifier:     notifier,
		cron:         cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		reminderSpec: reminderSpec,
		upcomingSpec: upcomingSpec,
		leadTime:     time.Hour,
		now:          time.Now,
		reminded:     make(map[string]string),
	}
}

// Start registers the jobs and starts the cron runner.
func (sm *ScheduleManager) Start() error {
	if _, err := sm.cron.AddFunc(sm.reminderSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := sm.SendPendingResponseReminders(ctx); err != nil {
			log.Printf("[scheduler] pending reminders failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("add pending reminder job %q: %w", sm.reminderSpec, err)
	}
	if _, err := sm.cron.AddFunc(sm.upcomingSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := sm.SendUpcomingClassReminders(ctx); err != nil {
			log.Printf("[scheduler] upcoming reminders failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("add upcoming reminder job %q: %w", sm.upcomingSpec, err)
	}
	sm.cron.Start()
	log.Printf("[scheduler] started reminders=%q upcoming=%q", sm.reminderSpec, sm.upcomingSpec)
	return nil
}

// Stop waits for running jobs to finish.
func (sm *ScheduleManager) Stop() {
	<-sm.cron.Stop().Done()
}

// SendPendingResponseReminders nudges every instructor who still has
// unanswered classes in the coming week.
func (sm *ScheduleManager) SendPendingResponseReminders(ctx context.Context) error {
	today := sm.now()
	rows, err := sm.assignments.ListByStatus(ctx, models.InstructorPending,
		utils.FormatISODate(today), utils.FormatISODate(today.AddDate(0, 0, 7)))
	if err != nil {
		return err
	}
	groups := pendingByInstructor(rows)
	for _, instructorID := range sortedKeys(groups) {
		classes := groups[instructorID]
		msg := notifications.Message(
			"Classes awaiting your response",
			fmt.Sprintf("You have %d class(es) waiting for you to accept or decline, the first on %s.",
				len(classes), utils.FormatDate(classes[0].Date)),
			"warning",
			map[string]interface{}{"action": "respond", "assignment_ids": assignmentIDs(classes)},
			"normal", "popup",
		)
		if err := sm.notifier.EnqueueOrCreate(ctx, []string{instructorID}, msg); err != nil {
			log.Printf("[scheduler] reminder for %s failed: %v", instructorID, err)
		}
	}
	return nil
}

// SendUpcomingClassReminders notifies instructors of accepted classes that
// start within the lead time. Each class is reminded once.
func (sm *ScheduleManager) SendUpcomingClassReminders(ctx context.Context) error {
	now := sm.now()
	date := utils.FormatISODate(now)
	rows, err := sm.assignments.ListByStatus(ctx, models.InstructorAccepted, date, date)
	if err != nil {
		return err
	}
	for _, a := range dueForReminder(rows, now, sm.leadTime) {
		if !sm.markReminded(a.ID, date) {
			continue
		}
		msg := notifications.Message(
			"Upcoming class",
			fmt.Sprintf("Your class starts at %s today.", utils.FormatTime(a.StartTime)),
			"info",
			map[string]interface{}{"assignment_id": a.ID},
			"normal", "popup",
		)
		if err := sm.notifier.EnqueueOrCreate(ctx, []string{a.InstructorID}, msg); err != nil {
			log.Printf("[scheduler] upcoming reminder for %s failed: %v", a.ID, err)
		}
	}
	return nil
}

// markReminded returns false when the assignment was already reminded today
// and forgets entries from earlier days.
func (sm *ScheduleManager) markReminded(id, date string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for k, d := range sm.reminded {
		if d != date {
			delete(sm.reminded, k)
		}
	}
	if sm.reminded[id] == date {
		return false
	}
	sm.reminded[id] = date
	return true
}

func pendingByInstructor(rows []models.ClassAssignment) map[string][]models.ClassAssignment {
	out := make(map[string][]models.ClassAssignment)
	for _, r := range rows {
		out[r.InstructorID] = append(out[r.InstructorID], r)
	}
	return out
}

// dueForReminder picks rows on now's date whose start falls in (now, now+lead].
func dueForReminder(rows []models.ClassAssignment, now time.Time, lead time.Duration) []models.ClassAssignment {
	date := utils.FormatISODate(now)
	cur := now.Hour()*60 + now.Minute()
	limit := cur + int(lead/time.Minute)
	var out []models.ClassAssignment
	for _, r := range rows {
		if r.Date != date || r.ClassStatus == models.ClassCancelled {
			continue
		}
		start, ok := utils.ParseClock(r.StartTime)
		if ok && start > cur && start <= limit {
			out = append(out, r)
		}
	}
	return out
}

func assignmentIDs(rows []models.ClassAssignment) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

func sortedKeys(m map[string][]models.ClassAssignment) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
