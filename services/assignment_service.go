package services

import (
	"context"
	"fmt"

	"studioops_go/models"
	"studioops_go/storage"
	"studioops_go/utils"

	"github.com/sirupsen/logrus"
)

// AssignmentService covers what happens to rows after creation. Every
// mutation touches exactly one row; batch siblings are left alone.
type AssignmentService struct {
	store storage.QueryStore
}

func NewAssignmentService(store storage.QueryStore) *AssignmentService {
	return &AssignmentService{store: store}
}

// ListForInstructor returns the instructor's rows in [from, to], either bound
// optional, ordered by date and start time.
func (s *AssignmentService) ListForInstructor(ctx context.Context, instructorID, from, to string) ([]models.ClassAssignment, error) {
	filters := []storage.Filter{storage.Eq("instructor_id", instructorID)}
	if d, ok := utils.ParseDate(from); ok {
		filters = append(filters, storage.Gte("date", utils.FormatISODate(d)))
	}
	if d, ok := utils.ParseDate(to); ok {
		filters = append(filters, storage.Lte("date", utils.FormatISODate(d)))
	}
	var rows []models.ClassAssignment
	if err := s.store.Select(ctx, models.TableClassAssignments, &rows, filters,
		storage.Asc("date"), storage.Asc("start_time")); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return rows, nil
}

// ListByStatus returns rows in the given instructor status whose date falls
// in [from, to].
func (s *AssignmentService) ListByStatus(ctx context.Context, status models.InstructorStatus, from, to string) ([]models.ClassAssignment, error) {
	filters := []storage.Filter{
		storage.Eq("instructor_status", string(status)),
		storage.Neq("class_status", string(models.ClassCancelled)),
	}
	if from != "" {
		filters = append(filters, storage.Gte("date", from))
	}
	if to != "" {
		filters = append(filters, storage.Lte("date", to))
	}
	var rows []models.ClassAssignment
	if err := s.store.Select(ctx, models.TableClassAssignments, &rows, filters,
		storage.Asc("date"), storage.Asc("start_time")); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return rows, nil
}

func (s *AssignmentService) Get(ctx context.Context, id string) (*models.ClassAssignment, error) {
	var rows []models.ClassAssignment
	if err := s.store.Select(ctx, models.TableClassAssignments, &rows, []storage.Filter{storage.Eq("id", id)}); err != nil {
		return nil, fmt.Errorf("load assignment: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrAssignmentNotFound
	}
	return &rows[0], nil
}

// Respond records the assigned instructor's accept or reject. Only pending
// rows can be answered. Rejecting leaves class_status unchanged.
func (s *AssignmentService) Respond(ctx context.Context, id, instructorID string, accept bool) (*models.ClassAssignment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.InstructorID != instructorID {
		return nil, ErrNotAssignedToYou
	}
	if a.InstructorStatus != models.InstructorPending {
		return nil, ErrAlreadyResponded
	}
	status := models.InstructorRejected
	if accept {
		status = models.InstructorAccepted
	}
	if err := s.patch(ctx, id, map[string]interface{}{"instructor_status": string(status)}); err != nil {
		return nil, err
	}
	a.InstructorStatus = status
	logrus.WithFields(logrus.Fields{"assignment_id": id, "instructor_id": instructorID, "status": status}).Info("instructor responded")
	return a, nil
}

func (s *AssignmentService) UpdateClassStatus(ctx context.Context, id string, status models.ClassStatus) (*models.ClassAssignment, error) {
	if !utils.IsValidClassStatus(string(status)) {
		return nil, fmt.Errorf("%w: class_status %q", ErrInvalidStatus, status)
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.patch(ctx, id, map[string]interface{}{"class_status": string(status)}); err != nil {
		return nil, err
	}
	a.ClassStatus = status
	return a, nil
}

func (s *AssignmentService) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.ClassAssignment, error) {
	if !utils.IsValidPaymentStatus(string(status)) {
		return nil, fmt.Errorf("%w: payment_status %q", ErrInvalidStatus, status)
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.patch(ctx, id, map[string]interface{}{"payment_status": string(status)}); err != nil {
		return nil, err
	}
	a.PaymentStatus = status
	return a, nil
}

func (s *AssignmentService) patch(ctx context.Context, id string, patch map[string]interface{}) error {
	if err := s.store.Update(ctx, models.TableClassAssignments, []storage.Filter{storage.Eq("id", id)}, patch); err != nil {
		return fmt.Errorf("update assignment %s: %w", id, err)
	}
	return nil
}

// Delete removes one assignment and its booking links.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.BulkDelete(ctx, []string{id})
}

// BulkDelete removes the given assignments and their booking links. Unknown
// ids are ignored.
func (s *AssignmentService) BulkDelete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.store.Delete(ctx, models.TableAssignmentBookings, []storage.Filter{storage.In("assignment_id", ids)}); err != nil {
		return fmt.Errorf("delete booking links: %w", err)
	}
	if err := s.store.Delete(ctx, models.TableClassAssignments, []storage.Filter{storage.In("id", ids)}); err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	logrus.WithField("count", len(ids)).Info("assignments deleted")
	return nil
}
