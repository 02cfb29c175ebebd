package services

import (
	"fmt"
	"strings"
	"time"

	"studioops_go/models"
	"studioops_go/utils"
)

type ConflictType string

const (
	ConflictInstructor ConflictType = "instructor"
	ConflictTiming     ConflictType = "timing"
	ConflictResource   ConflictType = "resource"
	ConflictCapacity   ConflictType = "capacity"
)

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ConflictingEntity identifies the row a finding was raised against.
type ConflictingEntity struct {
	Kind      string `json:"kind"` // assignment | template
	ID        string `json:"id"`
	Date      string `json:"date,omitempty"`
	DayOfWeek *int   `json:"day_of_week,omitempty"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ConflictFinding is advisory. It is recomputed on every check and never stored.
type ConflictFinding struct {
	HasConflict       bool               `json:"hasConflict"`
	ConflictingEntity *ConflictingEntity `json:"conflictingEntity,omitempty"`
	Message           string             `json:"message"`
	ConflictType      ConflictType       `json:"conflictType"`
	Severity          Severity           `json:"severity"`
	Suggestions       []string           `json:"suggestions,omitempty"`
}

// ConflictRequest is the proposed slot.
type ConflictRequest struct {
	InstructorID string `json:"instructor_id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
}

// Ready reports whether all four inputs needed for a check are present.
func (r ConflictRequest) Ready() bool {
	return strings.TrimSpace(r.InstructorID) != "" && strings.TrimSpace(r.Date) != "" &&
		strings.TrimSpace(r.StartTime) != "" && strings.TrimSpace(r.EndTime) != ""
}

// ConflictDetector holds the sanity thresholds, in minutes.
type ConflictDetector struct {
	MinDuration int
	MaxDuration int
	DayStart    int
	DayEnd      int
}

func NewConflictDetector() *ConflictDetector {
	return &ConflictDetector{
		MinDuration: 30,
		MaxDuration: 180,
		DayStart:    6 * 60,
		DayEnd:      22 * 60,
	}
}

// Detect runs every check against a read-only snapshot of the instructor's
// assignments and templates and returns findings in evaluation order.
//
// The snapshot is not re-read and nothing is locked, so two callers checking
// the same instructor at the same time can both get a clean result. Callers
// that need a hard guarantee must recheck at write time.
func (d *ConflictDetector) Detect(req ConflictRequest, assignments []models.ClassAssignment, templates []models.WeeklyScheduleTemplate) []ConflictFinding {
	if !req.Ready() {
		return nil
	}
	start, okStart := utils.ParseClock(req.StartTime)
	end, okEnd := utils.ParseClock(req.EndTime)
	date, okDate := utils.ParseDate(req.Date)
	dateKey := req.Date
	if okDate {
		dateKey = utils.FormatISODate(date)
	}

	var findings []ConflictFinding

	if okStart && okEnd {
		findings = append(findings, d.assignmentOverlaps(req.InstructorID, dateKey, start, end, assignments)...)
		if okDate {
			findings = append(findings, d.templateOverlaps(req.InstructorID, int(date.Weekday()), start, end, templates)...)
		}
		if f, ok := d.durationCheck(start, end); ok {
			findings = append(findings, f)
		}
		if f, ok := d.timeOfDayCheck(start, end); ok {
			findings = append(findings, f)
		}
	}
	if okDate {
		if f, ok := weekendCheck(date); ok {
			findings = append(findings, f)
		}
	}
	return findings
}

// Check returns the single finding a caller should surface: the first error,
// otherwise the first warning, otherwise nil.
func (d *ConflictDetector) Check(req ConflictRequest, assignments []models.ClassAssignment, templates []models.WeeklyScheduleTemplate) *ConflictFinding {
	return PrimaryFinding(d.Detect(req, assignments, templates))
}

// PrimaryFinding picks the first error-severity finding, else the first warning.
func PrimaryFinding(findings []ConflictFinding) *ConflictFinding {
	for i := range findings {
		if findings[i].Severity == SeverityError {
			return &findings[i]
		}
	}
	for i := range findings {
		if findings[i].Severity == SeverityWarning {
			return &findings[i]
		}
	}
	return nil
}

func (d *ConflictDetector) assignmentOverlaps(instructorID, dateKey string, start, end int, assignments []models.ClassAssignment) []ConflictFinding {
	var out []ConflictFinding
	for _, a := range assignments {
		if a.InstructorID != instructorID || a.ClassStatus == models.ClassCancelled {
			continue
		}
		if ad, ok := utils.ParseDate(a.Date); !ok || utils.FormatISODate(ad) != dateKey {
			continue
		}
		es, ok1 := utils.ParseClock(a.StartTime)
		ee, ok2 := utils.ParseClock(a.EndTime)
		if !ok1 || !ok2 || !utils.Overlaps(start, end, es, ee) {
			continue
		}
		out = append(out, ConflictFinding{
			HasConflict: true,
			ConflictingEntity: &ConflictingEntity{
				Kind:      "assignment",
				ID:        a.ID,
				Date:      dateKey,
				StartTime: utils.MinutesToTime(es),
				EndTime:   utils.MinutesToTime(ee),
			},
			Message: fmt.Sprintf("Instructor already has a class from %s to %s on %s",
				utils.FormatTime(a.StartTime), utils.FormatTime(a.EndTime), utils.FormatDate(dateKey)),
			ConflictType: ConflictInstructor,
			Severity:     SeverityError,
			Suggestions:  slotSuggestions(start, end, es, ee),
		})
	}
	return out
}

func (d *ConflictDetector) templateOverlaps(instructorID string, weekday, start, end int, templates []models.WeeklyScheduleTemplate) []ConflictFinding {
	var out []ConflictFinding
	for _, t := range templates {
		if !t.IsActive || t.InstructorID != instructorID || t.DayOfWeek != weekday {
			continue
		}
		ts, ok := utils.ParseClock(t.StartTime)
		if !ok {
			continue
		}
		te := ts + t.DurationMinutes
		if !utils.Overlaps(start, end, ts, te) {
			continue
		}
		day := t.DayOfWeek
		out = append(out, ConflictFinding{
			HasConflict: true,
			ConflictingEntity: &ConflictingEntity{
				Kind:      "template",
				ID:        t.ID,
				DayOfWeek: &day,
				StartTime: utils.MinutesToTime(ts),
				EndTime:   utils.MinutesToTime(te),
			},
			Message: fmt.Sprintf("Instructor has a recurring %s class from %s to %s",
				utils.WeekdayName(weekday), utils.FormatTime(utils.MinutesToTime(ts)), utils.FormatTime(utils.MinutesToTime(te))),
			ConflictType: ConflictInstructor,
			Severity:     SeverityWarning,
			Suggestions: append(slotSuggestions(start, end, ts, te),
				"Choose a different day", "Check whether the weekly class is still running"),
		})
	}
	return out
}

func (d *ConflictDetector) durationCheck(start, end int) (ConflictFinding, bool) {
	dur := end - start
	switch {
	case dur < d.MinDuration:
		return ConflictFinding{
			HasConflict:  true,
			Message:      fmt.Sprintf("Class is only %d minutes long; the minimum is %d", dur, d.MinDuration),
			ConflictType: ConflictTiming,
			Severity:     SeverityWarning,
		}, true
	case dur > d.MaxDuration:
		return ConflictFinding{
			HasConflict:  true,
			Message:      fmt.Sprintf("Class is %d minutes long; the maximum is %d", dur, d.MaxDuration),
			ConflictType: ConflictTiming,
			Severity:     SeverityWarning,
		}, true
	}
	return ConflictFinding{}, false
}

func (d *ConflictDetector) timeOfDayCheck(start, end int) (ConflictFinding, bool) {
	if start >= d.DayStart && end <= d.DayEnd {
		return ConflictFinding{}, false
	}
	return ConflictFinding{
		HasConflict: true,
		Message: fmt.Sprintf("Class runs outside studio hours (%s to %s)",
			utils.FormatTime(utils.MinutesToTime(d.DayStart)), utils.FormatTime(utils.MinutesToTime(d.DayEnd))),
		ConflictType: ConflictTiming,
		Severity:     SeverityWarning,
	}, true
}

func weekendCheck(date time.Time) (ConflictFinding, bool) {
	wd := date.Weekday()
	if wd != time.Saturday && wd != time.Sunday {
		return ConflictFinding{}, false
	}
	return ConflictFinding{
		HasConflict:  true,
		Message:      fmt.Sprintf("%s is a weekend day", utils.WeekdayName(int(wd))),
		ConflictType: ConflictTiming,
		Severity:     SeverityWarning,
	}, true
}

// slotSuggestions proposes moving the class right after or right before the
// blocking slot while keeping its length.
func slotSuggestions(start, end, blockStart, blockEnd int) []string {
	dur := end - start
	var out []string
	if blockEnd+dur <= 24*60 {
		out = append(out, fmt.Sprintf("Start at %s instead", utils.FormatTime(utils.MinutesToTime(blockEnd))))
	}
	if blockStart-dur >= 0 {
		out = append(out, fmt.Sprintf("End by %s instead (start %s)",
			utils.FormatTime(utils.MinutesToTime(blockStart)), utils.FormatTime(utils.MinutesToTime(blockStart-dur))))
	}
	return out
}
