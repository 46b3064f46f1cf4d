package appointments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mfadhilr/lawfirm-backend/internal/policy"
	"github.com/mfadhilr/lawfirm-backend/pkg/apperr"
	"github.com/mfadhilr/lawfirm-backend/pkg/audit"
	"github.com/mfadhilr/lawfirm-backend/pkg/models"
)

// sameDate compares calendar days, ignoring the time-of-day the driver
// happens to attach to a date column.
func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// beforeToday reports whether d falls on a calendar day before today.
func beforeToday(d time.Time, now time.Time) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, d.Location())
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	return day.Before(today)
}

func validTime(at string) bool {
	_, err := time.Parse("15:04", at)
	return err == nil
}

func validStatus(s models.AppointmentStatus) bool {
	switch s {
	case models.AppointmentPending, models.AppointmentAccepted,
		models.AppointmentRejected, models.AppointmentRescheduled,
		models.AppointmentCompleted, models.AppointmentCancelled:
		return true
	}
	return false
}

/* ================================ Book ================================== */

// Book creates a pending appointment for a client. The date must be today
// or later.
func Book(db *gorm.DB, clientID uuid.UUID, date time.Time, at, message string) (*models.Appointment, error) {
	if !validTime(at) {
		return nil, apperr.Validation("time", "invalid_time", "Time must be in HH:MM format")
	}
	if beforeToday(date, time.Now()) {
		return nil, apperr.Validation("date", "past_date", "Appointment date cannot be in the past")
	}

	appt := models.Appointment{
		ClientID: clientID,
		Date:     date,
		Time:     at,
		Message:  strings.TrimSpace(message),
		Status:   models.AppointmentPending,
	}
	if err := db.Create(&appt).Error; err != nil {
		return nil, apperr.Integrity("create appointment", err)
	}
	return &appt, nil
}

/* =============================== Respond ================================ */

// RespondInput carries a status response and, for reschedules, the new
// slot. Nil NewDate/NewTime leave the current slot untouched.
type RespondInput struct {
	Status           models.AppointmentStatus
	LawyerNotes      string
	RejectionReason  string
	RescheduleReason string
	NewDate          *time.Time
	NewTime          *string
}

// Respond applies a status change to an appointment inside one
// transaction. The row is locked for the duration so two lawyers racing to
// claim an unassigned appointment serialize: the first commit wins and the
// loser fails the policy check against the now-assigned row.
//
// A date/time change captures the previously persisted slot into
// OriginalDate/OriginalTime if — and only if — they are still unset.
func Respond(db *gorm.DB, actor policy.Actor, apptID uuid.UUID, in RespondInput) (*models.Appointment, error) {
	if !validStatus(in.Status) {
		return nil, apperr.Validation("status", "invalid_status", "Unknown appointment status")
	}
	if in.Status == models.AppointmentRejected && strings.TrimSpace(in.RejectionReason) == "" {
		return nil, apperr.Validation("rejection_reason", "reason_required", "A rejection reason is required")
	}
	if in.Status == models.AppointmentRescheduled && strings.TrimSpace(in.RescheduleReason) == "" {
		return nil, apperr.Validation("reschedule_reason", "reason_required", "A reschedule reason is required")
	}
	if in.NewTime != nil && !validTime(*in.NewTime) {
		return nil, apperr.Validation("time", "invalid_time", "Time must be in HH:MM format")
	}
	if in.NewDate != nil && beforeToday(*in.NewDate, time.Now()) {
		return nil, apperr.Validation("date", "past_date", "Appointment date cannot be in the past")
	}

	var out *models.Appointment
	err := db.Transaction(func(tx *gorm.DB) error {
		var appt models.Appointment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&appt, "id = ?", apptID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound
			}
			return apperr.Integrity("load appointment", err)
		}

		res := policy.Resource{ClientID: &appt.ClientID, LawyerID: appt.LawyerID}
		action := policy.AppointmentRespond
		if in.Status == models.AppointmentRescheduled {
			action = policy.AppointmentReschedule
		}
		if !policy.CanPerform(actor, action, res) {
			return apperr.ErrPermission
		}

		oldStatus := appt.Status

		if in.NewDate != nil || in.NewTime != nil {
			newDate := appt.Date
			if in.NewDate != nil {
				newDate = *in.NewDate
			}
			newTime := appt.Time
			if in.NewTime != nil {
				newTime = *in.NewTime
			}
			if !sameDate(newDate, appt.Date) || newTime != appt.Time {
				if appt.OriginalDate == nil && appt.OriginalTime == nil {
					prevDate, prevTime := appt.Date, appt.Time
					appt.OriginalDate = &prevDate
					appt.OriginalTime = &prevTime
				}
				appt.Date = newDate
				appt.Time = newTime
			}
		}

		appt.Status = in.Status
		if in.LawyerNotes != "" {
			appt.LawyerNotes = in.LawyerNotes
		}
		if in.RejectionReason != "" {
			appt.RejectionReason = in.RejectionReason
		}
		if in.RescheduleReason != "" {
			appt.RescheduleReason = in.RescheduleReason
		}

		// Responding to an unassigned appointment claims it.
		if actor.Role == models.RoleLawyer && appt.LawyerID == nil {
			id := actor.UserID
			appt.LawyerID = &id
		}

		if err := tx.Save(&appt).Error; err != nil {
			return apperr.Integrity("save appointment", err)
		}

		reason := in.RejectionReason
		if in.Status == models.AppointmentRescheduled {
			reason = in.RescheduleReason
		}
		audit.Log(context.Background(), tx, "appointment", appt.ID, actor.UserID,
			"responded", string(oldStatus), string(appt.Status), reason)

		out = &appt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reschedule moves an appointment to a new slot with a mandatory reason.
// It is Respond with status "rescheduled".
func Reschedule(db *gorm.DB, actor policy.Actor, apptID uuid.UUID, newDate time.Time, newTime, reason string) (*models.Appointment, error) {
	return Respond(db, actor, apptID, RespondInput{
		Status:           models.AppointmentRescheduled,
		RescheduleReason: reason,
		NewDate:          &newDate,
		NewTime:          &newTime,
	})
}
