package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"studioops_go/models"
	"studioops_go/utils"

	"github.com/go-playground/validator/v10"
)

// ManualSelection is one hand-picked calendar slot.
type ManualSelection struct {
	Date          string   `json:"date"`
	StartTime     string   `json:"start_time"`
	EndTime       string   `json:"end_time"`
	PaymentAmount *float64 `json:"payment_amount,omitempty"`
}

// FormData is the in-progress scheduling request. Derived is owned by
// Recompute and overwritten on every call.
type FormData struct {
	AssignmentType models.AssignmentType `json:"assignment_type"`

	Date      string `json:"date,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`

	CourseDurationValue int               `json:"course_duration_value,omitempty"`
	CourseDurationUnit  DurationUnit      `json:"course_duration_unit,omitempty" validate:"omitempty,oneof=weeks months"`
	ClassFrequency      ClassFrequency    `json:"class_frequency,omitempty" validate:"omitempty,oneof=daily weekly"`
	WeeklyDays          []int             `json:"weekly_days,omitempty" validate:"omitempty,dive,min=0,max=6"`
	ManualSelections    []ManualSelection `json:"manual_selections,omitempty"`
	DayOfWeek           *int              `json:"day_of_week,omitempty" validate:"omitempty,min=0,max=6"`
	DayOfMonth          *int              `json:"day_of_month,omitempty" validate:"omitempty,min=1,max=31"`

	PackageID          string `json:"package_id,omitempty"`
	UseTemplate        bool   `json:"use_template,omitempty"`
	SelectedTemplateID string `json:"selected_template_id,omitempty"`

	BookingIDs  []string           `json:"booking_ids,omitempty"`
	BookingType models.BookingType `json:"booking_type,omitempty"`

	PaymentAmount    float64            `json:"payment_amount"`
	PaymentType      models.PaymentType `json:"payment_type,omitempty" validate:"omitempty,oneof=per_class monthly total_duration per_member per_class_total per_student_per_class"`
	PaymentOverrides map[string]float64 `json:"payment_overrides,omitempty"`

	InstructorID string `json:"instructor_id"`
	ClassTypeID  string `json:"class_type_id,omitempty"`
	Timezone     string `json:"timezone,omitempty" validate:"omitempty,studio_tz"`
	Notes        string `json:"notes,omitempty"`

	Derived DerivedFields `json:"derived"`
}

// DerivedFields are never edited by hand.
type DerivedFields struct {
	EndDate             string               `json:"end_date"`
	TimelineDescription string               `json:"timeline_description"`
	TotalClasses        int                  `json:"total_classes"`
	ValidityEndDate     string               `json:"validity_end_date,omitempty"`
	AllowedPaymentTypes []models.PaymentType `json:"allowed_payment_types"`
	ClassDates          []string             `json:"class_dates,omitempty"`
}

// FormEnv is the outside data derivation depends on.
type FormEnv struct {
	Packages []models.ClassPackage
	Now      time.Time
}

func (e FormEnv) findPackage(id string) *models.ClassPackage {
	if id == "" {
		return nil
	}
	for i := range e.Packages {
		if e.Packages[i].ID == id {
			return &e.Packages[i]
		}
	}
	return nil
}

var allowedPaymentTypes = map[models.AssignmentType][]models.PaymentType{
	models.AssignmentAdhoc:       {models.PaymentPerClass, models.PaymentPerMember, models.PaymentPerStudentPerClass},
	models.AssignmentWeekly:      {models.PaymentPerClass, models.PaymentMonthly, models.PaymentPerMember, models.PaymentPerStudentPerClass},
	models.AssignmentMonthly:     {models.PaymentMonthly, models.PaymentPerClass, models.PaymentTotalDuration, models.PaymentPerStudentPerClass},
	models.AssignmentCrashCourse: {models.PaymentTotalDuration, models.PaymentPerClassTotal, models.PaymentPerClass},
	models.AssignmentPackage:     {models.PaymentTotalDuration, models.PaymentPerClassTotal, models.PaymentPerClass},
}

// AllowedPaymentTypes returns the payment types a form of type t may use.
func AllowedPaymentTypes(t models.AssignmentType) []models.PaymentType {
	src := allowedPaymentTypes[t]
	out := make([]models.PaymentType, len(src))
	copy(out, src)
	return out
}

func paymentTypeAllowed(t models.AssignmentType, p models.PaymentType) bool {
	for _, a := range allowedPaymentTypes[t] {
		if a == p {
			return true
		}
	}
	return false
}

func validAssignmentType(t models.AssignmentType) bool {
	_, ok := allowedPaymentTypes[t]
	return ok
}

// DefaultBookingType is the booking type a fresh form of type t starts with.
func DefaultBookingType(t models.AssignmentType) models.BookingType {
	switch t {
	case models.AssignmentCrashCourse:
		return models.BookingCorporate
	case models.AssignmentWeekly:
		return models.BookingPublicGroup
	default:
		return models.BookingIndividual
	}
}

// SetAssignmentType switches the form to t, clearing booking selections and
// applying the default booking type.
func SetAssignmentType(f FormData, t models.AssignmentType) FormData {
	if f.AssignmentType == t {
		return f
	}
	f.AssignmentType = t
	f.BookingIDs = nil
	f.BookingType = DefaultBookingType(t)
	return f
}

// templateMode is true when a weekly form reuses an existing template.
func (f FormData) templateMode() bool {
	return f.AssignmentType == models.AssignmentWeekly && (f.UseTemplate || f.SelectedTemplateID != "")
}

// recurrenceInput builds the calculator input for every non-manual,
// non-adhoc shape. Creation and derivation share it so previews match what
// gets persisted.
func (f FormData) recurrenceInput(pkg *models.ClassPackage, now time.Time) RecurrenceInput {
	in := RecurrenceInput{
		StartDate:     f.StartDate,
		EndDate:       f.EndDate,
		DurationValue: f.CourseDurationValue,
		DurationUnit:  f.CourseDurationUnit,
		WeeklyDays:    f.WeeklyDays,
	}
	switch f.AssignmentType {
	case models.AssignmentWeekly:
		if len(in.WeeklyDays) == 0 && f.DayOfWeek != nil {
			in.WeeklyDays = []int{*f.DayOfWeek}
		}
		if in.EndDate == "" && in.DurationValue <= 0 {
			in.EndDate = endOfYear(now)
		}
	case models.AssignmentMonthly:
		in.Frequency = f.ClassFrequency
	case models.AssignmentPackage, models.AssignmentCrashCourse:
		in.Frequency = f.ClassFrequency
		in.Package = pkg
	}
	return in
}

func endOfYear(now time.Time) string {
	return fmt.Sprintf("%04d-12-31", now.Year())
}

// Recompute derives every computed field from the authoritative inputs. It
// is pure: the same form and env always give the same result, and applying it
// twice changes nothing.
func Recompute(f FormData, env FormEnv) FormData {
	if len(f.WeeklyDays) > 0 {
		f.WeeklyDays = normalizeWeekdays(f.WeeklyDays)
	}
	d := DerivedFields{AllowedPaymentTypes: AllowedPaymentTypes(f.AssignmentType)}
	if len(d.AllowedPaymentTypes) > 0 && !paymentTypeAllowed(f.AssignmentType, f.PaymentType) {
		f.PaymentType = d.AllowedPaymentTypes[0]
	}
	if f.BookingType == "" && validAssignmentType(f.AssignmentType) {
		f.BookingType = DefaultBookingType(f.AssignmentType)
	}

	pkg := env.findPackage(f.PackageID)
	if pkg != nil && pkg.ValidityDays > 0 {
		if start, ok := utils.ParseDate(f.StartDate); ok {
			d.ValidityEndDate = utils.FormatISODate(start.AddDate(0, 0, pkg.ValidityDays))
		}
	}

	switch {
	case f.AssignmentType == models.AssignmentAdhoc:
		if date, ok := utils.ParseDate(f.Date); ok {
			iso := utils.FormatISODate(date)
			d.EndDate = iso
			d.TotalClasses = 1
			d.ClassDates = []string{iso}
			d.TimelineDescription = "Single class on " + utils.FormatDate(iso)
			if _, ok := utils.ParseClock(f.StartTime); ok {
				d.TimelineDescription += " at " + utils.FormatTime(f.StartTime)
			}
		} else {
			d.TimelineDescription = "Select a date for the class"
		}

	case f.templateMode():
		d.TimelineDescription = "Weekly class using existing template"

	case f.AssignmentType == models.AssignmentMonthly && len(f.ManualSelections) > 0:
		dates := manualDates(f.ManualSelections)
		d.TotalClasses = len(dates)
		d.ClassDates = dates
		if len(dates) > 0 {
			d.EndDate = dates[len(dates)-1]
			d.TimelineDescription = fmt.Sprintf("%d hand-picked classes from %s until %s",
				len(dates), utils.FormatDate(dates[0]), utils.FormatDate(d.EndDate))
		} else {
			d.TimelineDescription = "Pick at least one valid date"
		}

	case validAssignmentType(f.AssignmentType):
		plan := Calculate(f.recurrenceInput(pkg, env.Now))
		d.TimelineDescription = plan.Description
		d.TotalClasses = plan.TotalClasses
		d.ClassDates = plan.DateStrings()
		if !plan.EndDate.IsZero() {
			d.EndDate = utils.FormatISODate(plan.EndDate)
		}

	default:
		d.TimelineDescription = "Choose an assignment type"
	}

	f.Derived = d
	return f
}

// manualDates returns the parseable selection dates in input order.
func manualDates(sel []ManualSelection) []string {
	out := make([]string, 0, len(sel))
	for _, s := range sel {
		if date, ok := utils.ParseDate(s.Date); ok {
			out = append(out, utils.FormatISODate(date))
		}
	}
	return out
}

// Validate returns every field error for the form. An empty map means the
// form may be submitted.
func Validate(f FormData, env FormEnv) ValidationErrors {
	errs := ValidationErrors{}

	if !validAssignmentType(f.AssignmentType) {
		errs.add("assignment_type", "Choose an assignment type")
		return errs
	}
	if strings.TrimSpace(f.InstructorID) == "" {
		errs.add("instructor_id", "Instructor is required")
	}
	if f.PaymentAmount <= 0 {
		errs.add("payment_amount", "Payment amount must be greater than 0")
	}
	addFieldErrors(errs, formValidator.Struct(f))
	if f.PaymentType != "" && !paymentTypeAllowed(f.AssignmentType, f.PaymentType) {
		errs.add("payment_type", fmt.Sprintf("Payment type %s is not available for %s assignments", f.PaymentType, f.AssignmentType))
	}

	if !f.templateMode() {
		validateTimes(errs, "start_time", "end_time", f.StartTime, f.EndTime)
	}

	switch f.AssignmentType {
	case models.AssignmentAdhoc:
		requireDate(errs, "date", f.Date)

	case models.AssignmentWeekly:
		if f.templateMode() {
			if f.SelectedTemplateID == "" {
				errs.add("selected_template_id", "Select a template")
			}
			if f.StartDate != "" {
				requireDate(errs, "start_date", f.StartDate)
			}
			break
		}
		requireDate(errs, "start_date", f.StartDate)
		requireDuration(errs, f)
		if f.DayOfWeek == nil && len(f.WeeklyDays) == 0 {
			errs.add("day_of_week", "Day of week is required")
		}
		validateEndDate(errs, f.StartDate, f.EndDate)

	case models.AssignmentMonthly:
		requireDate(errs, "start_date", f.StartDate)
		requireDuration(errs, f)
		if len(f.WeeklyDays) == 0 && len(f.ManualSelections) == 0 {
			errs.add("weekly_days", "Pick weekdays or choose dates manually")
		}
		for i, s := range f.ManualSelections {
			if _, ok := utils.ParseDate(s.Date); !ok {
				errs.add("manual_selections", fmt.Sprintf("Selection %d has an invalid date", i+1))
				continue
			}
			if s.StartTime != "" || s.EndTime != "" {
				sub := ValidationErrors{}
				validateTimes(sub, "start", "end", s.StartTime, s.EndTime)
				if len(sub) > 0 {
					errs.add("manual_selections", fmt.Sprintf("Selection %d has invalid times", i+1))
				}
			}
		}

	case models.AssignmentPackage, models.AssignmentCrashCourse:
		if f.PackageID == "" {
			errs.add("package_id", "Package is required")
		} else if env.Packages != nil && env.findPackage(f.PackageID) == nil {
			errs.add("package_id", "Unknown package")
		}
		requireDate(errs, "start_date", f.StartDate)
		if f.AssignmentType == models.AssignmentCrashCourse {
			if f.ClassFrequency == "" {
				errs.add("class_frequency", "Class frequency is required")
			}
			if f.DayOfMonth == nil {
				errs.add("day_of_month", "Day of month is required")
			}
		}
	}
	return errs
}

var formValidator = newFormValidator()

// fieldMessages are the messages for tag failures on FormData, keyed by json
// field name.
var fieldMessages = map[string]string{
	"course_duration_unit": "Duration unit must be weeks or months",
	"class_frequency":      "Class frequency must be daily or weekly",
	"weekly_days":          "Weekdays must be between 0 and 6",
	"day_of_week":          "Day of week must be between 0 and 6",
	"day_of_month":         "Day of month must be between 1 and 31",
	"payment_type":         "Unknown payment type",
	"timezone":             "Unsupported timezone",
}

func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("studio_tz", func(fl validator.FieldLevel) bool {
		return utils.IsSupportedTimezone(fl.Field().String())
	})
	return v
}

// addFieldErrors folds validator failures into errs under their json names.
// Element failures such as weekly_days[2] are reported on the slice field.
func addFieldErrors(errs ValidationErrors, err error) {
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		return
	}
	for _, fe := range fes {
		field, _, _ := strings.Cut(fe.Field(), "[")
		msg, ok := fieldMessages[field]
		if !ok {
			msg = fmt.Sprintf("Failed %s check", fe.Tag())
		}
		errs.add(field, msg)
	}
}

func requireDate(errs ValidationErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		errs.add(field, "Date is required")
		return
	}
	if _, ok := utils.ParseDate(value); !ok {
		errs.add(field, "Invalid date")
	}
}

func requireDuration(errs ValidationErrors, f FormData) {
	if f.CourseDurationValue <= 0 {
		errs.add("course_duration_value", "Course duration must be greater than 0")
	}
}

func validateTimes(errs ValidationErrors, startField, endField, start, end string) {
	s, okS := utils.ParseClock(start)
	e, okE := utils.ParseClock(end)
	switch {
	case strings.TrimSpace(start) == "":
		errs.add(startField, "Start time is required")
	case !okS:
		errs.add(startField, "Invalid time")
	}
	switch {
	case strings.TrimSpace(end) == "":
		errs.add(endField, "End time is required")
	case !okE:
		errs.add(endField, "Invalid time")
	}
	if okS && okE && e <= s {
		errs.add(endField, "End time must be after start time")
	}
}

func validateEndDate(errs ValidationErrors, start, end string) {
	if end == "" {
		return
	}
	e, ok := utils.ParseDate(end)
	if !ok {
		errs.add("end_date", "Invalid date")
		return
	}
	if s, ok := utils.ParseDate(start); ok && e.Before(s) {
		errs.add("end_date", "End date must be on or after the start date")
	}
}

// AssignmentFormService wires form derivation and validation to live data.
type AssignmentFormService struct {
	catalog  *Catalog
	detector *ConflictDetector
	now      func() time.Time
}

func NewAssignmentFormService(catalog *Catalog, detector *ConflictDetector) *AssignmentFormService {
	if detector == nil {
		detector = NewConflictDetector()
	}
	return &AssignmentFormService{catalog: catalog, detector: detector, now: time.Now}
}

// Env loads the data Recompute and Validate need.
func (s *AssignmentFormService) Env(ctx context.Context) (FormEnv, error) {
	pkgs, err := s.catalog.Packages(ctx)
	if err != nil {
		return FormEnv{}, err
	}
	if pkgs == nil {
		pkgs = []models.ClassPackage{}
	}
	return FormEnv{Packages: pkgs, Now: s.now()}, nil
}

// Preview recomputes derived fields and, for adhoc forms, the primary conflict.
func (s *AssignmentFormService) Preview(ctx context.Context, f FormData) (FormData, *ConflictFinding, error) {
	env, err := s.Env(ctx)
	if err != nil {
		return f, nil, err
	}
	f = Recompute(f, env)
	finding, err := s.adhocConflict(ctx, f)
	return f, finding, err
}

// Validate returns field errors plus the advisory conflict for adhoc forms.
// The conflict never blocks on its own.
func (s *AssignmentFormService) Validate(ctx context.Context, f FormData) (ValidationErrors, *ConflictFinding, error) {
	env, err := s.Env(ctx)
	if err != nil {
		return nil, nil, err
	}
	errs := Validate(f, env)
	finding, err := s.adhocConflict(ctx, f)
	return errs, finding, err
}

// Conflicts runs an explicit check and returns all findings plus the primary one.
func (s *AssignmentFormService) Conflicts(ctx context.Context, req ConflictRequest) ([]ConflictFinding, *ConflictFinding, error) {
	if !req.Ready() {
		return nil, nil, nil
	}
	existing, templates, err := s.snapshot(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	findings := s.detector.Detect(req, existing, templates)
	return findings, PrimaryFinding(findings), nil
}

func (s *AssignmentFormService) adhocConflict(ctx context.Context, f FormData) (*ConflictFinding, error) {
	if f.AssignmentType != models.AssignmentAdhoc {
		return nil, nil
	}
	req := ConflictRequest{InstructorID: f.InstructorID, Date: f.Date, StartTime: f.StartTime, EndTime: f.EndTime}
	if !req.Ready() {
		return nil, nil
	}
	existing, templates, err := s.snapshot(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.detector.Check(req, existing, templates), nil
}

func (s *AssignmentFormService) snapshot(ctx context.Context, req ConflictRequest) ([]models.ClassAssignment, []models.WeeklyScheduleTemplate, error) {
	date := ""
	if d, ok := utils.ParseDate(req.Date); ok {
		date = utils.FormatISODate(d)
	}
	existing, err := s.catalog.InstructorSnapshot(ctx, req.InstructorID, date)
	if err != nil {
		return nil, nil, err
	}
	templates, err := s.catalog.ActiveTemplates(ctx, req.InstructorID)
	if err != nil {
		return nil, nil, err
	}
	return existing, templates, nil
}
