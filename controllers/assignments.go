package controllers

import (
	"errors"
	"fmt"
	"strings"

	"studioops_go/middleware"
	"studioops_go/models"
	"studioops_go/services"
	"studioops_go/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ConflictCheckRequest struct {
	InstructorID string `json:"instructor_id" validate:"required"`
	Date         string `json:"date" validate:"required"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
}

type RespondRequest struct {
	Action string `json:"action" validate:"required,oneof=accept reject"`
}

type ClassStatusRequest struct {
	ClassStatus string `json:"class_status" validate:"required"`
}

type PaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required"`
}

type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

type ArchiveRequest struct {
	InstructorID string `json:"instructor_id" validate:"required"`
	From         string `json:"from"`
	To           string `json:"to"`
}

// AssignmentController exposes the scheduling form, creation and lifecycle
// operations over HTTP.
type AssignmentController struct {
	forms       *services.AssignmentFormService
	creator     *services.AssignmentCreationService
	assignments *services.AssignmentService
	exports     *services.ExportService
	validate    *validator.Validate
}

func NewAssignmentController(forms *services.AssignmentFormService, creator *services.AssignmentCreationService,
	assignments *services.AssignmentService, exports *services.ExportService) *AssignmentController {
	return &AssignmentController{
		forms:       forms,
		creator:     creator,
		assignments: assignments,
		exports:     exports,
		validate:    validator.New(),
	}
}

// parse binds and validates the body. ok is false when a 400 was written.
func (ac *AssignmentController) parse(c *fiber.Ctx, dst interface{}) (ok bool, err error) {
	if err := c.BodyParser(dst); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := ac.validate.Struct(dst); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "details": validationDetails(err)})
	}
	return true, nil
}

func validationDetails(err error) map[string]string {
	out := map[string]string{}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		out["_"] = err.Error()
		return out
	}
	for _, fe := range ve {
		out[strings.ToLower(fe.Field())] = fmt.Sprintf("failed %s", fe.Tag())
	}
	return out
}

// Preview - POST /api/assignments/preview
func (ac *AssignmentController) Preview(c *fiber.Ctx) error {
	var form services.FormData
	if err := c.BodyParser(&form); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	out, conflict, err := ac.forms.Preview(c.UserContext(), form)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"form": out, "conflict": conflict})
}

// Validate - POST /api/assignments/validate
func (ac *AssignmentController) Validate(c *fiber.Ctx) error {
	var form services.FormData
	if err := c.BodyParser(&form); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	errs, conflict, err := ac.forms.Validate(c.UserContext(), form)
	if err != nil {
		return respondServiceError(c, err)
	}
	if errs == nil {
		errs = services.ValidationErrors{}
	}
	return c.JSON(fiber.Map{"valid": len(errs) == 0, "errors": errs, "conflict": conflict})
}

// CheckConflicts - POST /api/assignments/conflicts
func (ac *AssignmentController) CheckConflicts(c *fiber.Ctx) error {
	var req ConflictCheckRequest
	if ok, err := ac.parse(c, &req); !ok {
		return err
	}
	findings, primary, err := ac.forms.Conflicts(c.UserContext(), services.ConflictRequest{
		InstructorID: req.InstructorID,
		Date:         req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	if findings == nil {
		findings = []services.ConflictFinding{}
	}
	return c.JSON(fiber.Map{"conflicts": findings, "primary": primary})
}

// Create - POST /api/assignments
// X-Form-Key identifies the submitting form; without it the caller and
// instructor pair is the in-flight key.
func (ac *AssignmentController) Create(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return err
	}
	var form services.FormData
	if err := c.BodyParser(&form); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	form.Notes = utils.SanitizeString(form.Notes)

	result, err := ac.creator.Create(c.UserContext(), services.CreateRequest{
		Form:       form,
		AssignedBy: claims.UserID,
		Key:        c.Get("X-Form-Key"),
	})

	var batchErr *services.BatchError
	switch {
	case err == nil:
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": fmt.Sprintf("%d class(es) scheduled", result.Count),
			"data":    result,
		})
	case errors.As(err, &batchErr) && batchErr.IsPartial():
		return c.Status(fiber.StatusMultiStatus).JSON(fiber.Map{
			"error": batchErr.Error(),
			"data":  result,
		})
	default:
		return respondServiceError(c, err)
	}
}

// List - GET /api/assignments?instructor_id=&from=&to=&status=
// Instructors always see their own rows.
func (ac *AssignmentController) List(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return err
	}
	instructorID := c.Query("instructor_id")
	if claims.Role == middleware.RoleInstructor {
		instructorID = claims.UserID
	}
	from, to := c.Query("from"), c.Query("to")

	var rows []models.ClassAssignment
	switch {
	case instructorID != "":
		rows, err = ac.assignments.ListForInstructor(c.UserContext(), instructorID, from, to)
	case c.Query("status") != "":
		rows, err = ac.assignments.ListByStatus(c.UserContext(), models.InstructorStatus(c.Query("status")), from, to)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "instructor_id or status is required"})
	}
	if err != nil {
		return respondServiceError(c, err)
	}

	out := make([]utils.AssignmentDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, utils.ToAssignmentDTO(r, nil))
	}
	return c.JSON(fiber.Map{"data": out, "total": len(out)})
}

// Respond - PATCH /api/assignments/:id/respond
func (ac *AssignmentController) Respond(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return err
	}
	var req RespondRequest
	if ok, err := ac.parse(c, &req); !ok {
		return err
	}
	a, err := ac.assignments.Respond(c.UserContext(), c.Params("id"), claims.UserID, req.Action == "accept")
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"data": utils.ToAssignmentDTO(*a, nil)})
}

// UpdateClassStatus - PATCH /api/assignments/:id/status
func (ac *AssignmentController) UpdateClassStatus(c *fiber.Ctx) error {
	var req ClassStatusRequest
	if ok, err := ac.parse(c, &req); !ok {
		return err
	}
	a, err := ac.assignments.UpdateClassStatus(c.UserContext(), c.Params("id"), models.ClassStatus(req.ClassStatus))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"data": utils.ToAssignmentDTO(*a, nil)})
}

// UpdatePaymentStatus - PATCH /api/assignments/:id/payment
func (ac *AssignmentController) UpdatePaymentStatus(c *fiber.Ctx) error {
	var req PaymentStatusRequest
	if ok, err := ac.parse(c, &req); !ok {
		return err
	}
	a, err := ac.assignments.UpdatePaymentStatus(c.UserContext(), c.Params("id"), models.PaymentStatus(req.PaymentStatus))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"data": utils.ToAssignmentDTO(*a, nil)})
}

// Delete - DELETE /api/assignments/:id
func (ac *AssignmentController) Delete(c *fiber.Ctx) error {
	if err := ac.assignments.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Assignment deleted successfully"})
}

// BulkDelete - POST /api/assignments/bulk-delete
func (ac *AssignmentController) BulkDelete(c *fiber.Ctx) error {
	var req BulkDeleteRequest
	if ok, err := ac.parse(c, &req); !ok {
		return err
	}
	if err := ac.assignments.BulkDelete(c.UserContext(), req.IDs); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Assignments deleted successfully", "count": len(req.IDs)})
}

// Export - GET /api/assignments/export?instructor_id=&from=&to=
func (ac *AssignmentController) Export(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return err
	}
	instructorID := c.Query("instructor_id")
	if claims.Role == middleware.RoleInstructor {
		instructorID = claims.UserID
	}
	if instructorID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "instructor_id is required"})
	}

	data, err := ac.exports.Export(c.UserContext(), instructorID, c.Query("from"), c.Query("to"))
	if err != nil {
		return respondServiceError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="assignments_%s.xlsx"`, instructorID))
	return c.Send(data)
}

// Archive - POST /api/assignments/export/archive
func (ac *AssignmentController) Archive(c *fiber.Ctx) error {
	var req ArchiveRequest
	if ok, err := ac.parse(c, &req); !ok {
		return err
	}
	key, err := ac.exports.Archive(c.UserContext(), req.InstructorID, req.From, req.To)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"key": key})
}

// respondServiceError maps service errors onto HTTP responses.
func respondServiceError(c *fiber.Ctx, err error) error {
	var verrs services.ValidationErrors
	var batchErr *services.BatchError
	switch {
	case errors.As(err, &verrs):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Validation failed", "fields": verrs})
	case errors.Is(err, services.ErrNoInstances):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrAssignmentNotFound),
		errors.Is(err, services.ErrPackageNotFound),
		errors.Is(err, services.ErrTemplateNotFound),
		errors.Is(err, services.ErrBookingNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrSubmissionInFlight),
		errors.Is(err, services.ErrDuplicateBooking),
		errors.Is(err, services.ErrSlotTaken),
		errors.Is(err, services.ErrSlotLocked),
		errors.Is(err, services.ErrAlreadyResponded):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotAssignedToYou):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrExportDisabled):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &batchErr):
		logrus.WithError(err).WithField("batch_id", batchErr.BatchID).Error("assignment batch failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":     "Failed to create assignments",
			"batch_id":  batchErr.BatchID,
			"created":   batchErr.Created,
			"requested": batchErr.Requested,
		})
	default:
		logrus.WithError(err).WithField("path", c.Path()).Error("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}
