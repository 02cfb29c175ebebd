package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrPackageNotFound    = errors.New("package not found")
	ErrTemplateNotFound   = errors.New("weekly schedule template not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrDuplicateBooking   = errors.New("booking is already assigned to a class in this slot")
	ErrNoInstances        = errors.New("request does not produce any class dates")
	ErrSubmissionInFlight = errors.New("a submission for this form is already in progress")
	ErrSlotTaken          = errors.New("instructor already has a class in this slot")
	ErrSlotLocked         = errors.New("instructor schedule is being updated, try again")
	ErrNotAssignedToYou   = errors.New("assignment belongs to another instructor")
	ErrAlreadyResponded   = errors.New("assignment has already been answered")
	ErrInvalidStatus      = errors.New("invalid status value")
)

// ValidationErrors maps a form field to the problem with it. Every invalid
// field is reported, not just the first.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Has(field string) bool {
	_, ok := v[field]
	return ok
}

func (v ValidationErrors) add(field, msg string) {
	if _, ok := v[field]; !ok {
		v[field] = msg
	}
}

// BatchError reports a persistence failure part way through a batch.
type BatchError struct {
	BatchID   string
	Created   int
	Requested int
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("created %d of %d requested instances: %v", e.Created, e.Requested, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// IsPartial is true when some but not all instances were persisted.
func (e *BatchError) IsPartial() bool {
	return e.Created > 0 && e.Created < e.Requested
}
