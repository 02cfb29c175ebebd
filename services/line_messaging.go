package services

import (
	"fmt"
	"log"
	"strings"

	"studioops_go/config"
	"studioops_go/utils"

	"github.com/line/line-bot-sdk-go/linebot"
)

// LineMessagingService handles the LINE Messaging API connection
type LineMessagingService struct {
	Bot     *linebot.Client
	GroupID string
}

// NewLineMessagingService builds a client from config. A missing secret or
// token disables it without failing startup.
func NewLineMessagingService(cfg *config.Config) *LineMessagingService {
	if cfg == nil || cfg.LineChannelSecret == "" || cfg.LineChannelToken == "" {
		log.Println("LINE Messaging API disabled: missing LINE_CHANNEL_SECRET or LINE_CHANNEL_ACCESS_TOKEN")
		return &LineMessagingService{}
	}

	bot, err := linebot.New(cfg.LineChannelSecret, cfg.LineChannelToken)
	if err != nil {
		log.Printf("Cannot create LINE bot client: %v", err)
		return &LineMessagingService{}
	}
	return &LineMessagingService{Bot: bot, GroupID: cfg.LineGroupID}
}

// Enabled reports whether messages can be pushed to the studio group.
func (s *LineMessagingService) Enabled() bool {
	return s != nil && s.Bot != nil && s.GroupID != ""
}

// SendLineMessageToGroup pushes a text message to groupID
func (s *LineMessagingService) SendLineMessageToGroup(groupID string, message string) error {
	if s.Bot == nil {
		return fmt.Errorf("LINE Bot client is not initialized")
	}

	if _, err := s.Bot.PushMessage(groupID, linebot.NewTextMessage(message)).Do(); err != nil {
		return fmt.Errorf("LINE Messaging API failed: %w", err)
	}
	return nil
}

// SendToStudioGroup pushes message to the configured group.
func (s *LineMessagingService) SendToStudioGroup(message string) error {
	if !s.Enabled() {
		return nil
	}
	return s.SendLineMessageToGroup(s.GroupID, message)
}

// FormatBatchSummary renders the group message for a created batch.
func FormatBatchSummary(b BatchSummary, instructorName string) string {
	if instructorName == "" {
		instructorName = b.InstructorID
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "New %s schedule for %s\n", strings.ReplaceAll(string(b.AssignmentType), "_", " "), instructorName)
	if b.FirstDate == b.LastDate {
		fmt.Fprintf(&sb, "%s at %s", utils.FormatDate(b.FirstDate), utils.FormatTime(b.StartTime))
	} else {
		fmt.Fprintf(&sb, "%d classes, %s to %s, starting %s",
			b.Count, utils.FormatDate(b.FirstDate), utils.FormatDate(b.LastDate), utils.FormatTime(b.StartTime))
	}
	if b.Count < b.Requested {
		fmt.Fprintf(&sb, "\nOnly %d of %d classes were saved", b.Count, b.Requested)
	}
	return sb.String()
}
