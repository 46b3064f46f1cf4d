// Package policy is the authorization predicate for the whole app.
// Role checks are pure functions over the actor and the resource so they
// can be tested without a database or a live group table.
package policy

import (
	"github.com/google/uuid"

	"github.com/mfadhilr/lawfirm-backend/pkg/models"
)

// Action names an operation gated by the access policy.
type Action string

const (
	CaseCreate   Action = "case_create"
	CaseView     Action = "case_view"
	CaseUpdate   Action = "case_update"
	CaseDelete   Action = "case_delete"
	ClientCreate Action = "client_create"
	ClientView   Action = "client_view"
	ClientUpdate Action = "client_update"
	ClientDelete Action = "client_delete"

	DocumentUpload Action = "document_upload"

	AppointmentView       Action = "appointment_view"
	AppointmentRespond    Action = "appointment_respond"
	AppointmentReschedule Action = "appointment_reschedule"

	InquiryView    Action = "inquiry_view"
	LawyerActivate Action = "lawyer_activate"
)

// Actor is the authenticated account performing an action. ClientID is
// set when the account owns a client profile.
type Actor struct {
	UserID      uuid.UUID
	Role        models.Role
	IsSuperuser bool
	ClientID    *uuid.UUID
}

// Resource describes the record an action targets. ClientID is the owning
// client profile; LawyerID is the assigned lawyer's user id, when one is
// assigned. The zero value stands for "no particular record".
type Resource struct {
	ClientID *uuid.UUID
	LawyerID *uuid.UUID
}

// CanPerform reports whether the actor may run action against res.
func CanPerform(a Actor, action Action, res Resource) bool {
	if a.IsSuperuser || a.Role == models.RoleAdmin {
		return true
	}

	switch a.Role {
	case models.RoleLawyer:
		return lawyerCan(a, action, res)
	case models.RoleClient:
		return clientCan(a, action, res)
	}
	return false
}

// Lawyers manage cases and clients freely but may only touch an
// appointment that is unassigned or assigned to themselves.
func lawyerCan(a Actor, action Action, res Resource) bool {
	switch action {
	case CaseCreate, CaseView, CaseUpdate,
		ClientCreate, ClientView, ClientUpdate,
		DocumentUpload, InquiryView:
		return true
	case AppointmentView, AppointmentRespond, AppointmentReschedule:
		return res.LawyerID == nil || *res.LawyerID == a.UserID
	}
	return false
}

// Clients only reach their own profile, their own cases, and uploads to
// their own cases.
func clientCan(a Actor, action Action, res Resource) bool {
	if a.ClientID == nil || res.ClientID == nil || *a.ClientID != *res.ClientID {
		return false
	}
	switch action {
	case ClientView, ClientUpdate, CaseView, CaseUpdate, DocumentUpload, AppointmentView:
		return true
	}
	return false
}
