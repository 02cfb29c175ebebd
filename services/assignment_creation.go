package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"studioops_go/models"
	"studioops_go/storage"
	"studioops_go/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PlannedInstance is one class the creation service is about to persist.
type PlannedInstance struct {
	Date          string  `json:"date"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	PaymentAmount float64 `json:"payment_amount"`
}

type CreateRequest struct {
	Form       FormData
	AssignedBy string
	// Key identifies the submitting form. Defaults to the caller and the
	// instructor, so one admin cannot double-submit for the same instructor.
	Key string
}

type CreateResult struct {
	BatchID     string                   `json:"batch_id"`
	Count       int                      `json:"count"`
	Requested   int                      `json:"requested"`
	Assignments []models.ClassAssignment `json:"assignments"`
}

// BatchSummary is what notifiers hear about a finished batch.
type BatchSummary struct {
	BatchID        string
	InstructorID   string
	AssignmentType models.AssignmentType
	Count          int
	Requested      int
	FirstDate      string
	LastDate       string
	StartTime      string
}

// BatchNotifier is told about every batch that persisted at least one row.
type BatchNotifier interface {
	BatchCreated(ctx context.Context, summary BatchSummary)
}

type CreationOption func(*AssignmentCreationService)

// WithStrictGuard locks the instructor's calendar for the whole batch and
// rechecks every instance against fresh rows before inserting it.
func WithStrictGuard(locker SlotLocker) CreationOption {
	return func(s *AssignmentCreationService) {
		s.strict = true
		s.locker = locker
	}
}

func WithNotifier(n BatchNotifier) CreationOption {
	return func(s *AssignmentCreationService) { s.notifier = n }
}

// WithDefaultTimezone sets the zone stored on rows whose form carries none.
func WithDefaultTimezone(tz string) CreationOption {
	return func(s *AssignmentCreationService) { s.defaultTZ = tz }
}

func WithClock(now func() time.Time) CreationOption {
	return func(s *AssignmentCreationService) { s.now = now }
}

// AssignmentCreationService turns a validated form into persisted rows.
type AssignmentCreationService struct {
	store    storage.QueryStore
	catalog  *Catalog
	detector *ConflictDetector
	locker   SlotLocker
	notifier BatchNotifier
	strict   bool
	lockTTL  time.Duration
	now      func() time.Time

	defaultTZ string

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewAssignmentCreationService(store storage.QueryStore, opts ...CreationOption) *AssignmentCreationService {
	s := &AssignmentCreationService{
		store:    store,
		catalog:  NewCatalog(store),
		detector: NewConflictDetector(),
		lockTTL:  30 * time.Second,
		now:      time.Now,
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.strict && s.locker == nil {
		s.locker = NewLocalSlotLocker()
	}
	return s
}

// InFlight reports whether a submission for key is running.
func (s *AssignmentCreationService) InFlight(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[key]
	return ok
}

func (s *AssignmentCreationService) begin(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inFlight[key]; ok {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *AssignmentCreationService) end(key string) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}

// Plan expands the form into concrete instances without writing anything.
func (s *AssignmentCreationService) Plan(ctx context.Context, f FormData) ([]PlannedInstance, error) {
	var pkg *models.ClassPackage
	if f.PackageID != "" {
		p, err := s.catalog.Package(ctx, f.PackageID)
		if err != nil {
			return nil, err
		}
		pkg = p
	}

	type slot struct {
		date, start, end string
		override         *float64
	}
	var slots []slot
	startTime, endTime := utils.NormalizeClock(f.StartTime), utils.NormalizeClock(f.EndTime)

	switch {
	case f.AssignmentType == models.AssignmentAdhoc:
		if d, ok := utils.ParseDate(f.Date); ok {
			slots = append(slots, slot{date: utils.FormatISODate(d), start: startTime, end: endTime})
		}

	case f.templateMode():
		tpl, err := s.catalog.Template(ctx, f.SelectedTemplateID)
		if err != nil {
			return nil, err
		}
		switch {
		case !tpl.IsActive:
			return nil, ValidationErrors{"selected_template_id": "Template is not active"}
		case tpl.InstructorID != f.InstructorID:
			return nil, ValidationErrors{"selected_template_id": "Template belongs to another instructor"}
		}
		ts, _ := utils.ParseClock(tpl.StartTime)
		startTime, endTime = utils.MinutesToTime(ts), utils.MinutesToTime(ts+tpl.DurationMinutes)
		in := f.recurrenceInput(nil, s.now())
		in.WeeklyDays = []int{tpl.DayOfWeek}
		if in.StartDate == "" {
			in.StartDate = utils.FormatISODate(s.now())
		}
		for _, d := range Calculate(in).DateStrings() {
			slots = append(slots, slot{date: d, start: startTime, end: endTime})
		}

	case f.AssignmentType == models.AssignmentMonthly && len(f.ManualSelections) > 0:
		for _, sel := range f.ManualSelections {
			d, ok := utils.ParseDate(sel.Date)
			if !ok {
				continue
			}
			st, et := startTime, endTime
			if sel.StartTime != "" {
				st = utils.NormalizeClock(sel.StartTime)
			}
			if sel.EndTime != "" {
				et = utils.NormalizeClock(sel.EndTime)
			}
			slots = append(slots, slot{date: utils.FormatISODate(d), start: st, end: et, override: sel.PaymentAmount})
		}

	default:
		for _, d := range Calculate(f.recurrenceInput(pkg, s.now())).DateStrings() {
			slots = append(slots, slot{date: d, start: startTime, end: endTime})
		}
	}

	if len(slots) == 0 {
		return nil, ErrNoInstances
	}
	out := make([]PlannedInstance, len(slots))
	for i, sl := range slots {
		out[i] = PlannedInstance{
			Date:          sl.date,
			StartTime:     sl.start,
			EndTime:       sl.end,
			PaymentAmount: resolvePayment(f, pkg, sl.date, sl.override, len(slots)),
		}
	}
	return out, nil
}

// resolvePayment applies, in order: a per-instance override, the package
// price per class, then the form's flat amount. Flat amounts of total-style
// payment types are split evenly across the batch.
func resolvePayment(f FormData, pkg *models.ClassPackage, date string, override *float64, n int) float64 {
	if override != nil && *override > 0 {
		return *override
	}
	if v, ok := f.PaymentOverrides[date]; ok && v > 0 {
		return v
	}
	if pkg != nil && pkg.Price > 0 && pkg.ClassCount > 0 {
		return roundCents(pkg.Price / float64(pkg.ClassCount))
	}
	if n > 0 && (f.PaymentType == models.PaymentTotalDuration || f.PaymentType == models.PaymentPerClassTotal) {
		return roundCents(f.PaymentAmount / float64(n))
	}
	return f.PaymentAmount
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Create validates, expands and persists the form. It returns a result and a
// *BatchError when a write fails part way; created rows are never rolled back.
// ctx is honored until the first insert. After that the batch runs to the end
// or to the first failure.
func (s *AssignmentCreationService) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	f := req.Form
	key := req.Key
	if key == "" {
		key = req.AssignedBy + ":" + f.InstructorID
	}
	if !s.begin(key) {
		return nil, ErrSubmissionInFlight
	}
	defer s.end(key)

	pkgs, err := s.catalog.Packages(ctx)
	if err != nil {
		return nil, err
	}
	if pkgs == nil {
		pkgs = []models.ClassPackage{}
	}
	if errs := Validate(f, FormEnv{Packages: pkgs, Now: s.now()}); len(errs) > 0 {
		return nil, errs
	}

	instances, err := s.Plan(ctx, f)
	if err != nil {
		return nil, err
	}

	var client models.Booking
	if len(f.BookingIDs) > 0 {
		bookings, err := s.loadBookings(ctx, f.BookingIDs)
		if err != nil {
			return nil, err
		}
		if err := s.checkDuplicateBookings(ctx, f.BookingIDs, instances); err != nil {
			return nil, err
		}
		client = bookings[0]
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	if s.strict {
		unlock, err := s.locker.Lock(ctx, "instructor:"+f.InstructorID, s.lockTTL)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	batchID := uuid.NewString()
	result := &CreateResult{BatchID: batchID, Requested: len(instances)}
	logger := logrus.WithFields(logrus.Fields{
		"batch_id":        batchID,
		"instructor_id":   f.InstructorID,
		"assignment_type": f.AssignmentType,
		"requested":       len(instances),
	})

	fail := func(err error) (*CreateResult, error) {
		logger.WithError(err).WithField("created", result.Count).Error("assignment batch failed")
		s.notify(ctx, f, result, instances)
		return result, &BatchError{BatchID: batchID, Created: result.Count, Requested: len(instances), Err: err}
	}

	for _, inst := range instances {
		if s.strict {
			if err := s.recheck(ctx, f.InstructorID, inst); err != nil {
				return fail(err)
			}
		}
		row := models.ClassAssignment{
			BatchID:          batchID,
			ClassTypeID:      f.ClassTypeID,
			InstructorID:     f.InstructorID,
			PackageID:        f.PackageID,
			Date:             inst.Date,
			StartTime:        inst.StartTime,
			EndTime:          inst.EndTime,
			PaymentAmount:    inst.PaymentAmount,
			PaymentType:      f.PaymentType,
			ClassStatus:      models.ClassScheduled,
			PaymentStatus:    models.PaymentPending,
			ScheduleType:     models.ScheduleTypeFor(f.AssignmentType),
			InstructorStatus: models.InstructorPending,
			BookingType:      f.BookingType,
			ClientName:       client.ClientName,
			ClientEmail:      client.ClientEmail,
			Timezone:         f.Timezone,
			DayOfMonth:       f.DayOfMonth,
			Notes:            f.Notes,
			AssignedBy:       req.AssignedBy,
		}
		if row.Timezone == "" {
			row.Timezone = s.defaultTZ
		}
		if row.PaymentType == "" {
			row.PaymentType = AllowedPaymentTypes(f.AssignmentType)[0]
		}
		row.ID = uuid.NewString()

		rows := []models.ClassAssignment{row}
		if err := s.store.Insert(ctx, models.TableClassAssignments, &rows); err != nil {
			return fail(fmt.Errorf("insert assignment for %s: %w", inst.Date, err))
		}
		result.Count++
		result.Assignments = append(result.Assignments, rows[0])

		if len(f.BookingIDs) > 0 {
			links := make([]models.AssignmentBooking, 0, len(f.BookingIDs))
			for _, id := range f.BookingIDs {
				links = append(links, models.AssignmentBooking{AssignmentID: row.ID, BookingID: id})
			}
			if err := s.store.Insert(ctx, models.TableAssignmentBookings, &links); err != nil {
				return fail(fmt.Errorf("link bookings for %s: %w", inst.Date, err))
			}
		}
	}

	logger.WithField("created", result.Count).Info("assignment batch created")
	s.notify(ctx, f, result, instances)
	return result, nil
}

func (s *AssignmentCreationService) notify(ctx context.Context, f FormData, result *CreateResult, instances []PlannedInstance) {
	if s.notifier == nil || result.Count == 0 {
		return
	}
	s.notifier.BatchCreated(ctx, BatchSummary{
		BatchID:        result.BatchID,
		InstructorID:   f.InstructorID,
		AssignmentType: f.AssignmentType,
		Count:          result.Count,
		Requested:      result.Requested,
		FirstDate:      instances[0].Date,
		LastDate:       result.Assignments[len(result.Assignments)-1].Date,
		StartTime:      instances[0].StartTime,
	})
}

// recheck reads the instructor's rows for the instance date again. Only
// called while holding the instructor lock.
func (s *AssignmentCreationService) recheck(ctx context.Context, instructorID string, inst PlannedInstance) error {
	existing, err := s.catalog.InstructorSnapshot(ctx, instructorID, inst.Date)
	if err != nil {
		return err
	}
	start, _ := utils.ParseClock(inst.StartTime)
	end, _ := utils.ParseClock(inst.EndTime)
	for _, a := range existing {
		es, ok1 := utils.ParseClock(a.StartTime)
		ee, ok2 := utils.ParseClock(a.EndTime)
		if ok1 && ok2 && utils.Overlaps(start, end, es, ee) {
			return fmt.Errorf("%w: %s %s-%s", ErrSlotTaken, inst.Date, a.StartTime, a.EndTime)
		}
	}
	return nil
}

// loadBookings returns the bookings in the order of ids.
func (s *AssignmentCreationService) loadBookings(ctx context.Context, ids []string) ([]models.Booking, error) {
	var rows []models.Booking
	if err := s.store.Select(ctx, models.TableBookings, &rows, []storage.Filter{storage.In("id", ids)}); err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	byID := make(map[string]models.Booking, len(rows))
	for _, b := range rows {
		byID[b.ID] = b
	}
	out := make([]models.Booking, 0, len(ids))
	for _, id := range ids {
		b, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, id)
		}
		out = append(out, b)
	}
	return out, nil
}

// checkDuplicateBookings fails when any booking is already linked to a live
// assignment in one of the planned slots.
func (s *AssignmentCreationService) checkDuplicateBookings(ctx context.Context, ids []string, instances []PlannedInstance) error {
	var links []models.AssignmentBooking
	if err := s.store.Select(ctx, models.TableAssignmentBookings, &links, []storage.Filter{storage.In("booking_id", ids)}); err != nil {
		return fmt.Errorf("load booking links: %w", err)
	}
	if len(links) == 0 {
		return nil
	}
	assignmentIDs := make([]string, 0, len(links))
	for _, l := range links {
		assignmentIDs = append(assignmentIDs, l.AssignmentID)
	}
	var existing []models.ClassAssignment
	err := s.store.Select(ctx, models.TableClassAssignments, &existing, []storage.Filter{
		storage.In("id", assignmentIDs),
		storage.Neq("class_status", string(models.ClassCancelled)),
	})
	if err != nil {
		return fmt.Errorf("load booked assignments: %w", err)
	}

	planned := make(map[string]bool, len(instances))
	for _, inst := range instances {
		planned[inst.Date+"|"+inst.StartTime] = true
	}
	for _, a := range existing {
		if planned[a.Date+"|"+utils.NormalizeClock(a.StartTime)] {
			return fmt.Errorf("%w: %s at %s", ErrDuplicateBooking, a.Date, utils.NormalizeClock(a.StartTime))
		}
	}
	return nil
}
