package models

import (
	"time"

	"github.com/google/uuid"
)

/* =============================== Enums ================================== */

// Role defines the type of user in the system.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleLawyer Role = "lawyer"
	RoleClient Role = "client"
)

// CaseStatus defines lifecycle states for a case.
type CaseStatus string

const (
	CaseOpen    CaseStatus = "open"
	CasePending CaseStatus = "pending"
	CaseClosed  CaseStatus = "closed"
)

// AppointmentStatus defines lifecycle states for an appointment.
type AppointmentStatus string

const (
	AppointmentPending     AppointmentStatus = "pending"
	AppointmentAccepted    AppointmentStatus = "accepted"
	AppointmentRejected    AppointmentStatus = "rejected"
	AppointmentRescheduled AppointmentStatus = "rescheduled"
	AppointmentCompleted   AppointmentStatus = "completed"
	AppointmentCancelled   AppointmentStatus = "cancelled"
)

// Specialization is the practice area of a lawyer.
type Specialization string

const (
	SpecCriminal       Specialization = "criminal"
	SpecCivil          Specialization = "civil"
	SpecCorporate      Specialization = "corporate"
	SpecFamily         Specialization = "family"
	SpecImmigration    Specialization = "immigration"
	SpecIP             Specialization = "ip"
	SpecLabor          Specialization = "labor"
	SpecRealEstate     Specialization = "real_estate"
	SpecTax            Specialization = "tax"
	SpecPersonalInjury Specialization = "personal_injury"
)

// Specializations lists every valid practice area.
var Specializations = []Specialization{
	SpecCriminal, SpecCivil, SpecCorporate, SpecFamily, SpecImmigration,
	SpecIP, SpecLabor, SpecRealEstate, SpecTax, SpecPersonalInjury,
}

/* =============================== Entities =============================== */

// User is the base account record every profile hangs off of.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"index;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         Role      `gorm:"type:varchar(20);not null;default:'client'" json:"role"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	IsSuperuser  bool      `gorm:"not null;default:false" json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
}

// Client is the client profile, normally 1:1 with a User.
// Email is unique across clients and kept equal to the account's email.
type Client struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	Name        string     `gorm:"not null;index" json:"name"`
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	Phone       string     `json:"phone"`
	Address     string     `json:"address"`
	DateOfBirth *time.Time `gorm:"type:date" json:"date_of_birth"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// Lawyer is the lawyer profile. Unlike Client it always requires an
// existing User account.
type Lawyer struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Name            string         `gorm:"not null;index" json:"name"`
	Email           string         `gorm:"uniqueIndex;not null" json:"email"`
	Phone           string         `json:"phone"`
	Specialization  Specialization `gorm:"type:varchar(30);not null" json:"specialization"`
	BarNumber       string         `json:"bar_number"`
	YearsExperience int            `json:"years_experience"`
	Bio             string         `gorm:"type:text" json:"bio"`
	IsAvailable     bool           `gorm:"not null;default:true" json:"is_available"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// Case is a legal matter owned by a client, optionally staffed by a lawyer.
type Case struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	ClientID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	LawyerID    *uuid.UUID `gorm:"type:uuid;index" json:"lawyer_id"` // assigned lawyer's user id
	Description string     `gorm:"type:text" json:"description"`
	Status      CaseStatus `gorm:"type:varchar(20);not null;default:'open'" json:"status"`
	OpenedOn    time.Time  `gorm:"type:date;not null" json:"opened_on"` // set at creation, never mutated
	DueDate     *time.Time `gorm:"type:date" json:"due_date"`

	Client    Client     `gorm:"foreignKey:ClientID" json:"-"`
	Documents []Document `json:"documents"`
}

// Document is a file attached to a case. Blobs live in object storage
// keyed per case; the row carries the storage key.
type Document struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CaseID     uuid.UUID `gorm:"type:uuid;not null;index" json:"case_id"`
	Title      string    `gorm:"not null" json:"title"`
	Key        string    `gorm:"not null" json:"-"`
	Mime       string    `json:"mime"`
	Size       int       `json:"size"`
	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`

	Case Case `gorm:"foreignKey:CaseID;references:ID" json:"-"`
}

// Appointment is a meeting request from a client, claimed by a lawyer.
// OriginalDate/OriginalTime hold the first booked slot: written once by
// the first date/time change and never overwritten afterwards.
type Appointment struct {
	ID               uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"client_id"`
	LawyerID         *uuid.UUID        `gorm:"type:uuid;index" json:"lawyer_id"` // assigned lawyer's user id
	Date             time.Time         `gorm:"type:date;not null" json:"date"`
	Time             string            `gorm:"type:varchar(5);not null" json:"time"` // "15:04"
	Message          string            `gorm:"type:text" json:"message"`
	Status           AppointmentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	OriginalDate     *time.Time        `gorm:"type:date" json:"original_date"`
	OriginalTime     *string           `gorm:"type:varchar(5)" json:"original_time"`
	RescheduleReason string            `gorm:"type:text" json:"reschedule_reason"`
	LawyerNotes      string            `gorm:"type:text" json:"lawyer_notes"`
	RejectionReason  string            `gorm:"type:text" json:"rejection_reason"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`

	Client Client `gorm:"foreignKey:ClientID" json:"-"`
}

// Visitor is a landing-page inquiry. Append-only, no relations.
type Visitor struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Email       string    `gorm:"not null" json:"email"`
	Message     string    `gorm:"type:text;not null" json:"message"`
	SubmittedAt time.Time `gorm:"autoCreateTime" json:"submitted_at"`
}

// AuditEntry records important status changes on cases and appointments.
type AuditEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EntityType string    `gorm:"type:varchar(20);not null;index"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index"`
	ActorID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Action     string    `gorm:"type:varchar(50);not null"`
	OldStatus  string    `gorm:"type:varchar(20)"`
	NewStatus  string    `gorm:"type:varchar(20)"`
	Reason     string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}
