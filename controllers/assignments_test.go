package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"studioops_go/database"
	"studioops_go/middleware"
	"studioops_go/models"
	"studioops_go/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app   *fiber.App
	store *database.GormStore
}

// newTestApp mounts the assignment handlers behind a stub identity taken from
// the X-User and X-Role headers.
func newTestApp(t *testing.T) testEnv {
	t.Helper()
	db, err := database.OpenSQLite("file:"+uuid.NewString()+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	store := database.NewGormStore(db)

	catalog := services.NewCatalog(store)
	assignments := services.NewAssignmentService(store)
	ctl := NewAssignmentController(
		services.NewAssignmentFormService(catalog, nil),
		services.NewAssignmentCreationService(store),
		assignments,
		services.NewExportService(assignments, catalog, "ap-south-1", ""),
	)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("claims", &middleware.Claims{UserID: c.Get("X-User"), Role: c.Get("X-Role")})
		return c.Next()
	})
	app.Post("/api/assignments", ctl.Create)
	app.Get("/api/assignments", ctl.List)
	app.Post("/api/assignments/validate", ctl.Validate)
	app.Post("/api/assignments/conflicts", ctl.CheckConflicts)
	app.Patch("/api/assignments/:id/respond", ctl.Respond)
	app.Patch("/api/assignments/:id/status", ctl.UpdateClassStatus)
	app.Delete("/api/assignments/:id", ctl.Delete)
	app.Get("/api/assignments/export", ctl.Export)
	app.Post("/api/assignments/export/archive", ctl.Archive)
	return testEnv{app: app, store: store}
}

func (e testEnv) do(t *testing.T, method, path, user, role string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", user)
	req.Header.Set("X-Role", role)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]interface{}{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func adhocBody() map[string]interface{} {
	return map[string]interface{}{
		"assignment_type": "adhoc",
		"instructor_id":   "inst-1",
		"date":            "2024-06-10",
		"start_time":      "09:00",
		"end_time":        "10:00",
		"payment_amount":  500,
	}
}

func TestCreateAssignmentHandler(t *testing.T) {
	env := newTestApp(t)

	resp, body := env.do(t, "POST", "/api/assignments", "admin-1", middleware.RoleAdmin, adhocBody())
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])

	invalid := adhocBody()
	delete(invalid, "date")
	invalid["payment_amount"] = 0
	resp, body = env.do(t, "POST", "/api/assignments", "admin-1", middleware.RoleAdmin, invalid)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	fields := body["fields"].(map[string]interface{})
	assert.Contains(t, fields, "date")
	assert.Contains(t, fields, "payment_amount")

	resp, body = env.do(t, "POST", "/api/assignments/conflicts", "admin-1", middleware.RoleAdmin, map[string]interface{}{
		"instructor_id": "inst-1", "date": "2024-06-10", "start_time": "09:30", "end_time": "10:30",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	primary := body["primary"].(map[string]interface{})
	assert.Equal(t, "instructor", primary["conflictType"])

	resp, _ = env.do(t, "POST", "/api/assignments/conflicts", "admin-1", middleware.RoleAdmin, map[string]interface{}{
		"instructor_id": "inst-1",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestValidateHandlerReportsConflict(t *testing.T) {
	env := newTestApp(t)
	resp, _ := env.do(t, "POST", "/api/assignments", "admin-1", middleware.RoleAdmin, adhocBody())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, body := env.do(t, "POST", "/api/assignments/validate", "admin-1", middleware.RoleAdmin, adhocBody())
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["valid"])
	assert.NotNil(t, body["conflict"])
}

func TestRespondAndStatusHandlers(t *testing.T) {
	env := newTestApp(t)
	resp, body := env.do(t, "POST", "/api/assignments", "admin-1", middleware.RoleAdmin, adhocBody())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	rows := body["data"].(map[string]interface{})["assignments"].([]interface{})
	id := rows[0].(map[string]interface{})["id"].(string)

	resp, _ = env.do(t, "PATCH", "/api/assignments/"+id+"/respond", "inst-2", middleware.RoleInstructor, map[string]string{"action": "accept"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = env.do(t, "PATCH", "/api/assignments/"+id+"/respond", "inst-1", middleware.RoleInstructor, map[string]string{"action": "maybe"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, "PATCH", "/api/assignments/"+id+"/respond", "inst-1", middleware.RoleInstructor, map[string]string{"action": "accept"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, string(models.InstructorAccepted), body["data"].(map[string]interface{})["instructor_status"])

	resp, _ = env.do(t, "PATCH", "/api/assignments/"+id+"/respond", "inst-1", middleware.RoleInstructor, map[string]string{"action": "reject"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, "PATCH", "/api/assignments/"+id+"/status", "admin-1", middleware.RoleAdmin, map[string]string{"class_status": "postponed"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, "PATCH", "/api/assignments/missing/status", "admin-1", middleware.RoleAdmin, map[string]string{"class_status": "completed"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, "DELETE", "/api/assignments/"+id, "admin-1", middleware.RoleAdmin, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestListAndExportHandlers(t *testing.T) {
	env := newTestApp(t)
	resp, _ := env.do(t, "POST", "/api/assignments", "admin-1", middleware.RoleAdmin, adhocBody())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, body := env.do(t, "GET", "/api/assignments?instructor_id=someone-else", "inst-1", middleware.RoleInstructor, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])

	resp, _ = env.do(t, "GET", "/api/assignments", "admin-1", middleware.RoleAdmin, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, "GET", "/api/assignments/export", "inst-1", middleware.RoleInstructor, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "assignments_inst-1.xlsx")

	resp, _ = env.do(t, "POST", "/api/assignments/export/archive", "admin-1", middleware.RoleAdmin, map[string]string{"instructor_id": "inst-1"})
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
