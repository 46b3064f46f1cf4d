package appointments

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mfadhilr/lawfirm-backend/internal/policy"
	"github.com/mfadhilr/lawfirm-backend/internal/profiles"
	"github.com/mfadhilr/lawfirm-backend/pkg/apperr"
	"github.com/mfadhilr/lawfirm-backend/pkg/models"
	"github.com/mfadhilr/lawfirm-backend/pkg/validation"
)

/* ================================ DTOs ================================= */

type BookRequest struct {
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Time    string `json:"time" validate:"required"`
	Message string `json:"message" validate:"omitempty,max=2000"`
}

type RespondRequest struct {
	Status           string `json:"status" validate:"required,oneof=pending accepted rejected rescheduled completed cancelled"`
	LawyerNotes      string `json:"lawyer_notes" validate:"omitempty,max=2000"`
	RejectionReason  string `json:"rejection_reason" validate:"omitempty,max=2000"`
	RescheduleReason string `json:"reschedule_reason" validate:"omitempty,max=2000"`
	Date             string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time             string `json:"time"`
}

type RescheduleRequest struct {
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Time   string `json:"time" validate:"required"`
	Reason string `json:"reason" validate:"required,max=2000"`
}

/* ============================== Handler ================================= */

type Handler struct{ db *gorm.DB }

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

/* ================================ Book ================================== */

// Book Appointment godoc
// @Summary      Book an appointment
// @Description  Client books a meeting slot; past dates are refused
// @Tags         appointments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  BookRequest  true  "Booking payload"
// @Success      201  {object}  models.Appointment
// @Failure      400  {object}  models.ValidationErrorResponse
// @Router       /appointments [post]
func (h *Handler) Book(c *fiber.Ctx) error {
	var in BookRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	actor, err := profiles.ActorFrom(h.db, c)
	if err != nil {
		return err
	}
	if actor.ClientID == nil {
		return fiber.NewError(fiber.StatusBadRequest, "no client profile for this account")
	}

	date, _ := time.Parse("2006-01-02", in.Date)
	appt, err := Book(h.db, *actor.ClientID, date, in.Time, in.Message)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(appt)
}

/* ================================ List ================================== */

// List Appointments godoc
// @Summary      List appointments
// @Description  Clients see their own; lawyers see unassigned plus their own; admins see everything
// @Tags         appointments
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  models.Appointment
// @Router       /appointments [get]
func (h *Handler) List(c *fiber.Ctx) error {
	actor, err := profiles.ActorFrom(h.db, c)
	if err != nil {
		return err
	}

	dbq := h.db.Model(&models.Appointment{}).Order("date DESC, time DESC")
	switch {
	case actor.IsSuperuser || actor.Role == models.RoleAdmin:
		// everything
	case actor.Role == models.RoleLawyer:
		dbq = dbq.Where("lawyer_id IS NULL OR lawyer_id = ?", actor.UserID)
	case actor.ClientID != nil:
		dbq = dbq.Where("client_id = ?", *actor.ClientID)
	default:
		return apperr.ErrPermission
	}

	var list []models.Appointment
	if err := dbq.Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(list)
}

// Get Appointment godoc
// @Summary      Appointment detail
// @Tags         appointments
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "appointment id (uuid)"
// @Success      200  {object}  models.Appointment
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /appointments/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid appointment id")
	}
	var appt models.Appointment
	if err := h.db.First(&appt, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperr.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	actor, err := profiles.ActorFrom(h.db, c)
	if err != nil {
		return err
	}
	res := policy.Resource{ClientID: &appt.ClientID, LawyerID: appt.LawyerID}
	if !policy.CanPerform(actor, policy.AppointmentView, res) {
		return apperr.ErrPermission
	}
	return c.JSON(appt)
}

/* =============================== Respond ================================ */

// Respond godoc
// @Summary      Respond to an appointment
// @Description  Lawyer (or admin) sets the status; rejecting or rescheduling requires a reason; responding to an unassigned appointment claims it
// @Tags         appointments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string          true  "appointment id (uuid)"
// @Param        payload  body  RespondRequest  true  "Response payload"
// @Success      200  {object}  models.Appointment
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /appointments/{id}/respond [post]
func (h *Handler) Respond(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid appointment id")
	}

	var in RespondRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	actor, err := profiles.ActorFrom(h.db, c)
	if err != nil {
		return err
	}

	input := RespondInput{
		Status:           models.AppointmentStatus(in.Status),
		LawyerNotes:      in.LawyerNotes,
		RejectionReason:  in.RejectionReason,
		RescheduleReason: in.RescheduleReason,
	}
	if in.Date != "" {
		d, _ := time.Parse("2006-01-02", in.Date)
		input.NewDate = &d
	}
	if in.Time != "" {
		t := in.Time
		input.NewTime = &t
	}

	appt, err := Respond(h.db, actor, id, input)
	if err != nil {
		return err
	}
	return c.JSON(appt)
}

/* ============================== Reschedule ============================== */

// Reschedule godoc
// @Summary      Reschedule an appointment
// @Description  Moves the slot with a mandatory reason; the first booked slot is preserved in original_date/original_time
// @Tags         appointments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "appointment id (uuid)"
// @Param        payload  body  RescheduleRequest  true  "Reschedule payload"
// @Success      200  {object}  models.Appointment
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /appointments/{id}/reschedule [post]
func (h *Handler) RescheduleHTTP(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid appointment id")
	}

	var in RescheduleRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	actor, err := profiles.ActorFrom(h.db, c)
	if err != nil {
		return err
	}

	date, _ := time.Parse("2006-01-02", in.Date)
	appt, err := Reschedule(h.db, actor, id, date, in.Time, in.Reason)
	if err != nil {
		return err
	}
	return c.JSON(appt)
}
