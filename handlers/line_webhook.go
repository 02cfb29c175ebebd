package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"studioops_go/models"
	"studioops_go/services"
	"studioops_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/line/line-bot-sdk-go/linebot"
	"github.com/sirupsen/logrus"
)

// LineWebhookHandler answers the studio LINE group. Joining a group replies
// with its id so it can be configured as LINE_GROUP_ID; "today" lists the
// day's accepted classes.
type LineWebhookHandler struct {
	line        *services.LineMessagingService
	secret      string
	assignments *services.AssignmentService
	now         func() time.Time
}

func NewLineWebhookHandler(line *services.LineMessagingService, secret string, assignments *services.AssignmentService) *LineWebhookHandler {
	return &LineWebhookHandler{line: line, secret: secret, assignments: assignments, now: time.Now}
}

// Handle - POST /line/webhook
func (h *LineWebhookHandler) Handle(c *fiber.Ctx) error {
	if h.line == nil || h.line.Bot == nil {
		return c.SendStatus(fiber.StatusOK)
	}

	signature := c.Get("X-Line-Signature")
	if signature == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if !validateSignature(h.secret, c.Body(), signature) {
		logrus.Warn("LINE webhook signature mismatch")
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var webhook struct {
		Events []*linebot.Event `json:"events"`
	}
	if err := json.Unmarshal(c.Body(), &webhook); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	// Reply after acknowledging so LINE does not retry slow deliveries.
	go func(events []*linebot.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, event := range events {
			if reply := h.replyFor(ctx, event); reply != "" && event.ReplyToken != "" {
				if _, err := h.line.Bot.ReplyMessage(event.ReplyToken, linebot.NewTextMessage(reply)).Do(); err != nil {
					logrus.WithError(err).Warn("LINE reply failed")
				}
			}
		}
	}(webhook.Events)

	return c.SendStatus(fiber.StatusOK)
}

func (h *LineWebhookHandler) replyFor(ctx context.Context, event *linebot.Event) string {
	switch event.Type {
	case linebot.EventTypeJoin:
		if event.Source == nil || event.Source.GroupID == "" {
			return ""
		}
		logrus.WithField("group_id", event.Source.GroupID).Info("LINE bot joined group")
		return "Group ID: " + event.Source.GroupID

	case linebot.EventTypeMessage:
		msg, ok := event.Message.(*linebot.TextMessage)
		if !ok || !strings.EqualFold(strings.TrimSpace(msg.Text), "today") {
			return ""
		}
		today := utils.FormatISODate(h.now())
		rows, err := h.assignments.ListByStatus(ctx, models.InstructorAccepted, today, today)
		if err != nil {
			logrus.WithError(err).Error("LINE today listing failed")
			return ""
		}
		return FormatDaySchedule(today, rows)
	}
	return ""
}

// FormatDaySchedule renders one line per class for date.
func FormatDaySchedule(date string, rows []models.ClassAssignment) string {
	if len(rows) == 0 {
		return fmt.Sprintf("No confirmed classes on %s", utils.FormatDate(date))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Classes on %s", utils.FormatDate(date))
	for _, r := range rows {
		fmt.Fprintf(&sb, "\n%s - %s  %s", utils.FormatTime(r.StartTime), utils.FormatTime(r.EndTime), r.InstructorID)
	}
	return sb.String()
}

func computeSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func validateSignature(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(computeSignature(secret, body)))
}
