package utils

import (
	"strings"
	"time"

	"studioops_go/models"
)

// Compact representations used across APIs
type InstructorShort struct {
	ID       string `json:"id"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

type Sender struct {
	Type string `json:"type"` // "system" or "user"
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type Recipient struct {
	Type string `json:"type"` // "user", "role", etc.
	ID   string `json:"id"`
}

// AssignmentDTO is a ClassAssignment plus display strings.
type AssignmentDTO struct {
	models.ClassAssignment
	Instructor      *InstructorShort `json:"instructor,omitempty"`
	DateLabel       string           `json:"date_label"`
	TimeLabel       string           `json:"time_label"`
	DurationMinutes int              `json:"duration_minutes"`
}

// ToAssignmentDTO maps an assignment for API output. profile may be nil.
func ToAssignmentDTO(a models.ClassAssignment, profile *models.Profile) AssignmentDTO {
	dto := AssignmentDTO{
		ClassAssignment: a,
		DateLabel:       FormatDate(a.Date),
		TimeLabel:       FormatTime(a.StartTime) + " - " + FormatTime(a.EndTime),
		DurationMinutes: DurationMinutes(a.StartTime, a.EndTime),
	}
	if dto.DurationMinutes < 0 {
		dto.DurationMinutes = 0
	}
	if profile != nil {
		dto.Instructor = &InstructorShort{ID: profile.ID, FullName: profile.FullName, Email: profile.Email}
	}
	return dto
}

type NotificationDTO struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	UserID    string          `json:"user_id"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Type      string          `json:"type"`
	Read      bool            `json:"read"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
	Data      models.JSON     `json:"data,omitempty"`
	User      InstructorShort `json:"user"`
	Sender    Sender          `json:"sender"`
	Recipient Recipient       `json:"recipient"`
}

// ToNotificationDTO maps a models.Notification to the compact DTO.
// profile may be nil when the recipient has no profile row.
func ToNotificationDTO(n models.Notification, profile *models.Profile) NotificationDTO {
	us := InstructorShort{ID: n.UserID}
	if profile != nil {
		us.FullName = profile.FullName
		us.Email = profile.Email
		// Fallback: use email local-part if no name exists
		if us.FullName == "" && profile.Email != "" {
			us.FullName = strings.Split(profile.Email, "@")[0]
		}
	}

	// Sender: models don't track created_by; default to system.
	sender := Sender{Type: "system", Name: "Scheduling Service"}

	return NotificationDTO{
		ID:        n.ID,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		Data:      n.Data,
		User:      us,
		Sender:    sender,
		Recipient: Recipient{Type: "user", ID: n.UserID},
	}
}
