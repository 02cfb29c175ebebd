package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"studioops_go/models"
	"studioops_go/services"

	"github.com/gofiber/fiber/v2"
	"github.com/line/line-bot-sdk-go/linebot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSignature(t *testing.T) {
	body := []byte(`{"events":[]}`)
	sig := computeSignature("secret", body)
	assert.True(t, validateSignature("secret", body, sig))
	assert.False(t, validateSignature("other", body, sig))
	assert.False(t, validateSignature("secret", []byte(`{}`), sig))
}

func TestFormatDaySchedule(t *testing.T) {
	assert.Contains(t, FormatDaySchedule("2024-06-10", nil), "No confirmed classes")

	rows := []models.ClassAssignment{
		{InstructorID: "inst-1", StartTime: "09:00", EndTime: "10:00"},
		{InstructorID: "inst-2", StartTime: "18:00", EndTime: "19:15"},
	}
	out := FormatDaySchedule("2024-06-10", rows)
	assert.Equal(t, 3, len(strings.Split(out, "\n")))
	assert.Contains(t, out, "inst-2")
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	bot, err := linebot.New("secret", "token")
	require.NoError(t, err)
	h := NewLineWebhookHandler(&services.LineMessagingService{Bot: bot}, "secret", nil)

	app := fiber.New()
	app.Post("/line/webhook", h.Handle)

	req := httptest.NewRequest("POST", "/line/webhook", strings.NewReader(`{"events":[]}`))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest("POST", "/line/webhook", strings.NewReader(`{"events":[]}`))
	req.Header.Set("X-Line-Signature", "bogus")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	body := `{"events":[]}`
	req = httptest.NewRequest("POST", "/line/webhook", strings.NewReader(body))
	req.Header.Set("X-Line-Signature", computeSignature("secret", []byte(body)))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
