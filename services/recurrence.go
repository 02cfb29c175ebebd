package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"studioops_go/models"
	"studioops_go/utils"

	"github.com/teambition/rrule-go"
)

type DurationUnit string

const (
	UnitWeeks  DurationUnit = "weeks"
	UnitMonths DurationUnit = "months"
)

type ClassFrequency string

const (
	FrequencyDaily  ClassFrequency = "daily"
	FrequencyWeekly ClassFrequency = "weekly"
)

// AddDuration moves start forward by value weeks (exactly 7*value days) or
// value calendar months. A month step keeps the day of month and clamps to
// the last day when the target month is shorter (Jan 31 + 1 month = Feb 28/29).
func AddDuration(start time.Time, value int, unit DurationUnit) time.Time {
	switch unit {
	case UnitMonths:
		return addMonthsClamped(start, value)
	default:
		return start.AddDate(0, 0, 7*value)
	}
}

func addMonthsClamped(start time.Time, months int) time.Time {
	y, m, d := start.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, start.Location()).AddDate(0, months, 0)
	last := daysIn(first.Year(), first.Month())
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), start.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// CountWeeklyOccurrences is the number of 7-day periods between start and
// end, rounded up, never below 1. It counts periods, not weekday matches.
func CountWeeklyOccurrences(start, end time.Time) int {
	days := end.Sub(start).Hours() / 24
	n := int(math.Ceil(days / 7))
	if n < 1 {
		return 1
	}
	return n
}

// durationWeeks normalizes a duration into weeks with months counted as 4.
func durationWeeks(value int, unit DurationUnit) int {
	if unit == UnitMonths {
		return value * 4
	}
	return value
}

// CountByFrequency approximates a class count from a duration: weeks times 7
// for daily classes, weeks times 1 for weekly classes.
func CountByFrequency(value int, unit DurationUnit, frequency ClassFrequency) int {
	if value <= 0 {
		return 0
	}
	weeks := durationWeeks(value, unit)
	if frequency == FrequencyDaily {
		return weeks * 7
	}
	return weeks
}

// CountByWeekdays is ceil(totalWeeks * len(weekdays)) where totalWeeks is the
// calendar span of the duration from start expressed in weeks.
func CountByWeekdays(start time.Time, value int, unit DurationUnit, weekdays []int) int {
	days := normalizeWeekdays(weekdays)
	if value <= 0 || len(days) == 0 {
		return 0
	}
	var weeks float64
	if start.IsZero() {
		weeks = float64(durationWeeks(value, unit))
	} else {
		weeks = AddDuration(start, value, unit).Sub(start).Hours() / 24 / 7
	}
	return int(math.Ceil(weeks * float64(len(days))))
}

// rruleWeekdays maps time.Weekday values onto rrule weekdays.
var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// EnumerateDates lists the dates from first whose weekday is in weekdays, in
// order. A non-zero last bounds the list inclusively and limit > 0 stops
// after that many dates. At least one bound is required.
func EnumerateDates(first, last time.Time, weekdays []int, limit int) []time.Time {
	days := normalizeWeekdays(weekdays)
	if len(days) == 0 || first.IsZero() {
		return nil
	}
	opt := rrule.ROption{Freq: rrule.WEEKLY, Dtstart: first}
	for _, d := range days {
		opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
	}
	if !last.IsZero() {
		if last.Before(first) {
			return nil
		}
		opt.Until = last
	}
	if limit > 0 {
		opt.Count = limit
	}
	if opt.Until.IsZero() && opt.Count == 0 {
		return nil
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil
	}
	return rule.All()
}

// normalizeWeekdays drops out-of-range and duplicate values and sorts.
func normalizeWeekdays(in []int) []int {
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, d := range in {
		if d < 0 || d > 6 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

var allWeekdays = []int{0, 1, 2, 3, 4, 5, 6}

// RecurrenceInput is everything the calculator may use. Which fields matter
// depends on the caller; missing required inputs produce an empty plan.
type RecurrenceInput struct {
	StartDate     string
	EndDate       string // explicit, inclusive
	DurationValue int
	DurationUnit  DurationUnit
	Frequency     ClassFrequency
	WeeklyDays    []int
	Package       *models.ClassPackage
}

// RecurrencePlan is the calculator's answer. Dates are exact calendar
// matches; TotalClasses follows the period approximations.
type RecurrencePlan struct {
	StartDate    time.Time
	EndDate      time.Time
	LastDate     time.Time
	TotalClasses int
	Dates        []time.Time
	Description  string
}

// Empty reports whether the plan could not be computed.
func (p RecurrencePlan) Empty() bool {
	return p.StartDate.IsZero() || p.TotalClasses == 0
}

// Calculate resolves end date, class count and concrete dates. Package data
// wins over duration fields: class_count fixes the count, validity_days the
// end date.
func Calculate(in RecurrenceInput) RecurrencePlan {
	start, ok := utils.ParseDate(in.StartDate)
	if !ok {
		return RecurrencePlan{Description: "Select a start date to see the schedule"}
	}
	plan := RecurrencePlan{StartDate: start}

	pkgCount, pkgValidity := 0, 0
	if in.Package != nil {
		pkgCount, pkgValidity = in.Package.ClassCount, in.Package.ValidityDays
	}

	// end date: exclusive when derived from a span, inclusive when explicit
	switch {
	case pkgValidity > 0:
		plan.EndDate = start.AddDate(0, 0, pkgValidity)
		plan.LastDate = plan.EndDate.AddDate(0, 0, -1)
	case strings.TrimSpace(in.EndDate) != "":
		end, ok := utils.ParseDate(in.EndDate)
		if !ok || end.Before(start) {
			return RecurrencePlan{StartDate: start, Description: "End date must be on or after the start date"}
		}
		plan.EndDate = end
		plan.LastDate = end
	case in.DurationValue > 0:
		plan.EndDate = AddDuration(start, in.DurationValue, in.DurationUnit)
		plan.LastDate = plan.EndDate.AddDate(0, 0, -1)
	case pkgCount > 0:
		// count-only package: the dates alone bound the plan
	default:
		return RecurrencePlan{StartDate: start, Description: "Enter a course duration to see the schedule"}
	}

	weekdays := normalizeWeekdays(in.WeeklyDays)
	if len(weekdays) == 0 {
		if in.Frequency == FrequencyDaily {
			weekdays = allWeekdays
		} else {
			weekdays = []int{int(start.Weekday())}
		}
	}

	switch {
	case pkgCount > 0:
		plan.TotalClasses = pkgCount
	case len(in.WeeklyDays) > 0 && in.DurationValue > 0:
		plan.TotalClasses = CountByWeekdays(start, in.DurationValue, in.DurationUnit, weekdays)
	case in.Frequency != "" && in.DurationValue > 0:
		plan.TotalClasses = CountByFrequency(in.DurationValue, in.DurationUnit, in.Frequency)
	default:
		plan.TotalClasses = CountWeeklyOccurrences(start, plan.LastDate) * len(weekdays)
	}

	if pkgCount > 0 {
		// class_count is authoritative: the list always holds that many dates,
		// even when the last ones fall after the validity end.
		plan.Dates = EnumerateDates(start, time.Time{}, weekdays, pkgCount)
		if len(plan.Dates) > 0 {
			plan.LastDate = plan.Dates[len(plan.Dates)-1]
			if plan.EndDate.IsZero() {
				plan.EndDate = plan.LastDate
			}
		}
	} else {
		plan.Dates = EnumerateDates(start, plan.LastDate, weekdays, 0)
	}
	plan.Description = describePlan(plan, weekdays)
	return plan
}

func describePlan(p RecurrencePlan, weekdays []int) string {
	names := make([]string, 0, len(weekdays))
	for _, d := range weekdays {
		names = append(names, utils.WeekdayName(d)[:3])
	}
	endLabel := utils.Placeholder
	if !p.EndDate.IsZero() {
		endLabel = utils.FormatDate(utils.FormatISODate(p.EndDate))
	}
	return fmt.Sprintf("%d classes on %s from %s until %s",
		p.TotalClasses, strings.Join(names, ", "),
		utils.FormatDate(utils.FormatISODate(p.StartDate)), endLabel)
}

// DateStrings formats plan dates as "YYYY-MM-DD".
func (p RecurrencePlan) DateStrings() []string {
	out := make([]string, len(p.Dates))
	for i, d := range p.Dates {
		out[i] = utils.FormatISODate(d)
	}
	return out
}
