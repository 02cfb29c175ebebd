package services

import (
	"context"
	"fmt"

	"studioops_go/models"
	"studioops_go/storage"
)

// Catalog is the read side the scheduler needs: packages, class types,
// templates and an instructor's current assignments.
type Catalog struct {
	store storage.QueryStore
}

func NewCatalog(store storage.QueryStore) *Catalog {
	return &Catalog{store: store}
}

func (c *Catalog) Packages(ctx context.Context) ([]models.ClassPackage, error) {
	var pkgs []models.ClassPackage
	if err := c.store.Select(ctx, models.TableClassPackages, &pkgs,
		[]storage.Filter{storage.Eq("is_active", true)}, storage.Asc("name")); err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}
	return pkgs, nil
}

func (c *Catalog) Package(ctx context.Context, id string) (*models.ClassPackage, error) {
	var pkgs []models.ClassPackage
	if err := c.store.Select(ctx, models.TableClassPackages, &pkgs,
		[]storage.Filter{storage.Eq("id", id)}); err != nil {
		return nil, fmt.Errorf("load package: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, ErrPackageNotFound
	}
	return &pkgs[0], nil
}

func (c *Catalog) ClassTypes(ctx context.Context) ([]models.ClassType, error) {
	var types []models.ClassType
	if err := c.store.Select(ctx, models.TableClassTypes, &types,
		[]storage.Filter{storage.Eq("is_active", true)}, storage.Asc("name")); err != nil {
		return nil, fmt.Errorf("load class types: %w", err)
	}
	return types, nil
}

func (c *Catalog) Template(ctx context.Context, id string) (*models.WeeklyScheduleTemplate, error) {
	var rows []models.WeeklyScheduleTemplate
	if err := c.store.Select(ctx, models.TableClassSchedules, &rows,
		[]storage.Filter{storage.Eq("id", id)}); err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrTemplateNotFound
	}
	return &rows[0], nil
}

// ActiveTemplates returns the instructor's active weekly slots.
func (c *Catalog) ActiveTemplates(ctx context.Context, instructorID string) ([]models.WeeklyScheduleTemplate, error) {
	var rows []models.WeeklyScheduleTemplate
	err := c.store.Select(ctx, models.TableClassSchedules, &rows, []storage.Filter{
		storage.Eq("instructor_id", instructorID),
		storage.Eq("is_active", true),
	}, storage.Asc("day_of_week"), storage.Asc("start_time"))
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	return rows, nil
}

// InstructorSnapshot returns the instructor's non-cancelled assignments,
// limited to one date when date is not empty.
func (c *Catalog) InstructorSnapshot(ctx context.Context, instructorID, date string) ([]models.ClassAssignment, error) {
	filters := []storage.Filter{
		storage.Eq("instructor_id", instructorID),
		storage.Neq("class_status", string(models.ClassCancelled)),
	}
	if date != "" {
		filters = append(filters, storage.Eq("date", date))
	}
	var rows []models.ClassAssignment
	if err := c.store.Select(ctx, models.TableClassAssignments, &rows, filters,
		storage.Asc("date"), storage.Asc("start_time")); err != nil {
		return nil, fmt.Errorf("load instructor assignments: %w", err)
	}
	return rows, nil
}

// Instructor returns the profile of an instructor, or nil when unknown.
func (c *Catalog) Instructor(ctx context.Context, id string) (*models.Profile, error) {
	var rows []models.Profile
	if err := c.store.Select(ctx, models.TableProfiles, &rows, []storage.Filter{storage.Eq("id", id)}); err != nil {
		return nil, fmt.Errorf("load instructor: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// IsInstructor reports whether the user holds the instructor role.
func (c *Catalog) IsInstructor(ctx context.Context, userID string) (bool, error) {
	var rows []models.UserRole
	err := c.store.Select(ctx, models.TableUserRoles, &rows, []storage.Filter{
		storage.Eq("user_id", userID),
		storage.Eq("role", "instructor"),
	})
	if err != nil {
		return false, fmt.Errorf("load roles: %w", err)
	}
	return len(rows) > 0, nil
}
