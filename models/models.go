package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields. Ids are generated client-side so a batch
// insert never needs to read rows back.
type BaseModel struct {
	ID        string    `json:"id" gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate fills the id when the caller did not.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = append((*j)[0:0], v...)
	}
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// Table names shared by the query store callers.
const (
	TableClassAssignments   = "class_assignments"
	TableClassSchedules     = "class_schedules"
	TableClassTypes         = "class_types"
	TableClassPackages      = "class_packages"
	TableBookings           = "bookings"
	TableAssignmentBookings = "assignment_bookings"
	TableProfiles           = "profiles"
	TableUserRoles          = "user_roles"
	TableNotifications      = "notifications"
	TableActivityLogs       = "activity_logs"
)

// AssignmentType is the scheduling intent a form describes.
type AssignmentType string

const (
	AssignmentAdhoc       AssignmentType = "adhoc"
	AssignmentWeekly      AssignmentType = "weekly"
	AssignmentMonthly     AssignmentType = "monthly"
	AssignmentCrashCourse AssignmentType = "crash_course"
	AssignmentPackage     AssignmentType = "package"
)

// ScheduleType records where a persisted instance came from.
type ScheduleType string

const (
	ScheduleAdhoc   ScheduleType = "adhoc"
	ScheduleWeekly  ScheduleType = "weekly"
	ScheduleMonthly ScheduleType = "monthly"
	ScheduleCrash   ScheduleType = "crash"
	SchedulePackage ScheduleType = "package"
)

// ScheduleTypeFor maps a form's assignment type to the origin stored on rows.
func ScheduleTypeFor(t AssignmentType) ScheduleType {
	switch t {
	case AssignmentWeekly:
		return ScheduleWeekly
	case AssignmentMonthly:
		return ScheduleMonthly
	case AssignmentCrashCourse:
		return ScheduleCrash
	case AssignmentPackage:
		return SchedulePackage
	default:
		return ScheduleAdhoc
	}
}

type PaymentType string

const (
	PaymentPerClass           PaymentType = "per_class"
	PaymentMonthly            PaymentType = "monthly"
	PaymentTotalDuration      PaymentType = "total_duration"
	PaymentPerMember          PaymentType = "per_member"
	PaymentPerClassTotal      PaymentType = "per_class_total"
	PaymentPerStudentPerClass PaymentType = "per_student_per_class"
)

type ClassStatus string

const (
	ClassScheduled ClassStatus = "scheduled"
	ClassCompleted ClassStatus = "completed"
	ClassCancelled ClassStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentApproved  PaymentStatus = "approved"
	PaymentWithheld  PaymentStatus = "withheld"
	PaymentReversed  PaymentStatus = "reversed"
)

type InstructorStatus string

const (
	InstructorPending  InstructorStatus = "pending"
	InstructorAccepted InstructorStatus = "accepted"
	InstructorRejected InstructorStatus = "rejected"
)

// BookingType is a UX default attached to a form, not a business rule.
type BookingType string

const (
	BookingIndividual   BookingType = "individual"
	BookingPublicGroup  BookingType = "public_group"
	BookingPrivateGroup BookingType = "private_group"
	BookingCorporate    BookingType = "corporate"
)

// ClassAssignment is one concrete scheduled class instance. Instances created
// together share a BatchID but carry no live link to a recurrence rule.
type ClassAssignment struct {
	BaseModel
	BatchID          string           `json:"batch_id" gorm:"type:char(36);index"`
	ClassTypeID      string           `json:"class_type_id" gorm:"type:char(36)"`
	InstructorID     string           `json:"instructor_id" gorm:"type:char(36);not null;index:idx_instructor_date"`
	PackageID        string           `json:"package_id,omitempty" gorm:"type:char(36)"`
	Date             string           `json:"date" gorm:"size:10;not null;index:idx_instructor_date"`
	StartTime        string           `json:"start_time" gorm:"size:8"`
	EndTime          string           `json:"end_time" gorm:"size:8"`
	PaymentAmount    float64          `json:"payment_amount" gorm:"not null"`
	PaymentType      PaymentType      `json:"payment_type" gorm:"size:32;not null"`
	ClassStatus      ClassStatus      `json:"class_status" gorm:"size:16;not null;default:'scheduled'"`
	PaymentStatus    PaymentStatus    `json:"payment_status" gorm:"size:16;not null;default:'pending'"`
	ScheduleType     ScheduleType     `json:"schedule_type" gorm:"size:16;not null"`
	InstructorStatus InstructorStatus `json:"instructor_status" gorm:"size:16;not null;default:'pending'"`
	BookingType      BookingType      `json:"booking_type,omitempty" gorm:"size:32"`
	ClientName       string           `json:"client_name,omitempty" gorm:"size:255"`
	ClientEmail      string           `json:"client_email,omitempty" gorm:"size:255"`
	Timezone         string           `json:"timezone,omitempty" gorm:"size:64"`
	DayOfMonth       *int             `json:"day_of_month,omitempty"`
	Notes            string           `json:"notes,omitempty" gorm:"type:text"`
	AssignedBy       string           `json:"assigned_by,omitempty" gorm:"type:char(36)"`
}

func (ClassAssignment) TableName() string { return TableClassAssignments }

// WeeklyScheduleTemplate is a recurring weekly slot independent of dates.
type WeeklyScheduleTemplate struct {
	BaseModel
	ClassTypeID     string `json:"class_type_id" gorm:"type:char(36)"`
	InstructorID    string `json:"instructor_id" gorm:"type:char(36);index"`
	DayOfWeek       int    `json:"day_of_week" gorm:"not null"`
	StartTime       string `json:"start_time" gorm:"size:8;not null"`
	DurationMinutes int    `json:"duration_minutes" gorm:"not null"`
	IsActive        bool   `json:"is_active" gorm:"default:true"`
}

func (WeeklyScheduleTemplate) TableName() string { return TableClassSchedules }

type ClassType struct {
	BaseModel
	Name            string `json:"name" gorm:"size:255;not null"`
	DurationMinutes int    `json:"duration_minutes"`
	IsActive        bool   `json:"is_active" gorm:"default:true"`
}

func (ClassType) TableName() string { return TableClassTypes }

// ClassPackage is a sellable bundle. ClassCount and ValidityDays, when set,
// override duration-derived counts on forms that reference the package.
type ClassPackage struct {
	BaseModel
	Name         string  `json:"name" gorm:"size:255;not null"`
	ClassCount   int     `json:"class_count"`
	ValidityDays int     `json:"validity_days"`
	Price        float64 `json:"price"`
	CourseType   string  `json:"course_type" gorm:"size:32"`
	IsActive     bool    `json:"is_active" gorm:"default:true"`
}

func (ClassPackage) TableName() string { return TableClassPackages }

// Booking is owned by the booking flow; the scheduler only reads it.
type Booking struct {
	BaseModel
	ClientName  string `json:"client_name" gorm:"size:255"`
	ClientEmail string `json:"client_email" gorm:"size:255"`
	ClassTypeID string `json:"class_type_id" gorm:"type:char(36)"`
	Status      string `json:"status" gorm:"size:32"`
}

func (Booking) TableName() string { return TableBookings }

// AssignmentBooking joins an assignment to the bookings it fulfils.
type AssignmentBooking struct {
	BaseModel
	AssignmentID string `json:"assignment_id" gorm:"type:char(36);index"`
	BookingID    string `json:"booking_id" gorm:"type:char(36);index"`
}

func (AssignmentBooking) TableName() string { return TableAssignmentBookings }

// Profile is the read-only instructor identity record.
type Profile struct {
	BaseModel
	FullName string `json:"full_name" gorm:"size:255"`
	Email    string `json:"email" gorm:"size:255"`
	Status   string `json:"status" gorm:"size:32;default:'active'"`
}

func (Profile) TableName() string { return TableProfiles }

type UserRole struct {
	BaseModel
	UserID string `json:"user_id" gorm:"type:char(36);index"`
	Role   string `json:"role" gorm:"size:32"`
}

func (UserRole) TableName() string { return TableUserRoles }

// Notification model
type Notification struct {
	BaseModel
	UserID   string     `json:"user_id" gorm:"type:char(36);not null;index"`
	Title    string     `json:"title" gorm:"size:255;not null"`
	Message  string     `json:"message" gorm:"type:text;not null"`
	Type     string     `json:"type" gorm:"size:50;not null"` // info, warning, error, success
	Channels JSON       `json:"channels" gorm:"type:json"`
	Data     JSON       `json:"data,omitempty" gorm:"type:json"`
	Read     bool       `json:"read" gorm:"default:false"`
	ReadAt   *time.Time `json:"read_at"`
}

func (Notification) TableName() string { return TableNotifications }

// Log model for activity tracking
type ActivityLog struct {
	BaseModel
	UserID     string `json:"user_id" gorm:"type:char(36)"`
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID string `json:"resource_id" gorm:"size:64"`
	Details    JSON   `json:"details" gorm:"type:json"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`
}

func (ActivityLog) TableName() string { return TableActivityLogs }
