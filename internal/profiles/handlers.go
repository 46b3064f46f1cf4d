package profiles

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mfadhilr/lawfirm-backend/internal/auth"
	"github.com/mfadhilr/lawfirm-backend/internal/policy"
	"github.com/mfadhilr/lawfirm-backend/internal/storage"
	"github.com/mfadhilr/lawfirm-backend/pkg/apperr"
	"github.com/mfadhilr/lawfirm-backend/pkg/models"
	"github.com/mfadhilr/lawfirm-backend/pkg/validation"
)

/* ================================ DTOs ================================= */

type ClientInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Email       string `json:"email" validate:"required,email,max=120"`
	Phone       string `json:"phone" validate:"omitempty,max=20"`
	Address     string `json:"address" validate:"omitempty,max=500"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02,adult"`
}

type LawyerPatch struct {
	Name            string `json:"name" validate:"omitempty,max=255"`
	Email           string `json:"email" validate:"omitempty,email,max=120"`
	Phone           string `json:"phone" validate:"omitempty,max=20"`
	Specialization  string `json:"specialization" validate:"omitempty,practicearea"`
	BarNumber       string `json:"bar_number" validate:"omitempty,barnum"`
	YearsExperience *int   `json:"years_experience" validate:"omitempty,gte=0,lte=70"`
	Bio             string `json:"bio" validate:"omitempty,max=2000"`
	IsAvailable     *bool  `json:"is_available"`
}

/* ============================== Handler ================================= */

type Handler struct {
	db *gorm.DB
	sb *storage.Supabase
}

func NewHandler(db *gorm.DB, sb *storage.Supabase) *Handler {
	return &Handler{db: db, sb: sb}
}

func parseDOB(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

/* ============================ Own profile =============================== */

// getOrCreateClient returns the client profile for a user, creating a
// minimal one on first access.
func (h *Handler) getOrCreateClient(userID uuid.UUID) (*models.Client, error) {
	var cl models.Client
	err := h.db.First(&cl, "user_id = ?", userID).Error
	if err == nil {
		return &cl, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.ErrInternalServerError
	}

	var u models.User
	if err := h.db.First(&u, "id = ?", userID).Error; err != nil {
		return nil, apperr.ErrNotFound
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	email := u.Email
	if email == "" {
		email = u.Username + "@example.com"
	}
	cl = models.Client{UserID: &u.ID, Name: name, Email: email}
	if err := SaveClient(h.db, &cl); err != nil {
		return nil, err
	}
	return &cl, nil
}

// Get Own Profile godoc
// @Summary      Get my client profile
// @Description  Returns the caller's client profile, creating a minimal one on first access
// @Tags         profile
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  models.Client
// @Failure      401  {object}  models.ErrorResponse
// @Router       /profile [get]
func (h *Handler) GetOwnProfile(c *fiber.Ctx) error {
	uid, err := uuid.Parse(auth.MustUserID(c))
	if err != nil {
		return fiber.ErrUnauthorized
	}
	cl, err := h.getOrCreateClient(uid)
	if err != nil {
		return err
	}
	return c.JSON(cl)
}

// Update Own Profile godoc
// @Summary      Update my client profile
// @Description  Re-runs the profile/account sync contract
// @Tags         profile
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  ClientInput  true  "Profile payload"
// @Success      200  {object}  models.Client
// @Failure      400  {object}  models.ValidationErrorResponse
// @Router       /profile [patch]
func (h *Handler) UpdateOwnProfile(c *fiber.Ctx) error {
	uid, err := uuid.Parse(auth.MustUserID(c))
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var in ClientInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	cl, err := h.getOrCreateClient(uid)
	if err != nil {
		return err
	}

	actor, err := ActorFrom(h.db, c)
	if err != nil {
		return err
	}
	if !policy.CanPerform(actor, policy.ClientUpdate, policy.Resource{ClientID: &cl.ID}) {
		return apperr.ErrPermission
	}

	cl.Name = in.Name
	cl.Email = in.Email
	cl.Phone = in.Phone
	cl.Address = in.Address
	cl.DateOfBirth = parseDOB(in.DateOfBirth)
	if err := SaveClient(h.db, cl); err != nil {
		return err
	}
	return c.JSON(cl)
}

/* ============================ Client CRUD =============================== */

// Create Client godoc
// @Summary      Create client
// @Description  Staff creates a client record; an account is derived from the email when none is linked
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  ClientInput  true  "Client payload"
// @Success      201  {object}  models.Client
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Router       /clients [post]
func (h *Handler) CreateClient(c *fiber.Ctx) error {
	actor, err := ActorFrom(h.db, c)
	if err != nil {
		return err
	}
	if !policy.CanPerform(actor, policy.ClientCreate, policy.Resource{}) {
		return apperr.ErrPermission
	}

	var in ClientInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	cl := models.Client{
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		Address:     in.Address,
		DateOfBirth: parseDOB(in.DateOfBirth),
	}
	if err := SaveClient(h.db, &cl); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(cl)
}

// List Clients godoc
// @Summary      List clients
// @Description  Staff lists clients, optionally filtered by a name/email search term
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        q  query  string  false  "search term"
// @Success      200  {array}  models.Client
// @Failure      403  {object}  models.ErrorResponse
// @Router       /clients [get]
func (h *Handler) ListClients(c *fiber.Ctx) error {
	actor, err := ActorFrom(h.db, c)
	if err != nil {
		return err
	}
	if !policy.CanPerform(actor, policy.ClientView, policy.Resource{}) {
		return apperr.ErrPermission
	}

	q := strings.TrimSpace(c.Query("q"))
	dbq := h.db.Model(&models.Client{}).Order("name ASC")
	if q != "" {
		like := "%" + q + "%"
		dbq = dbq.Where("name ILIKE ? OR email ILIKE ?", like, like)
	}
	var list []models.Client
	if err := dbq.Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(list)
}

func (h *Handler) loadClient(c *fiber.Ctx) (*models.Client, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid client id")
	}
	var cl models.Client
	if err := h.db.First(&cl, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fiber.ErrInternalServerError
	}
	return &cl, nil
}

// Get Client godoc
// @Summary      Client detail
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "client id (uuid)"
// @Success      200  {object}  models.Client
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /clients/{id} [get]
func (h *Handler) GetClient(c *fiber.Ctx) error {
	cl, err := h.loadClient(c)
	if err != nil {
		return err
	}
	actor, err := ActorFrom(h.db, c)
	if err != nil {
		return err
	}
	if !policy.CanPerform(actor, policy.ClientView, policy.Resource{ClientID: &cl.ID}) {
		return apperr.ErrPermission
	}
	return c.JSON(cl)
}

// Update Client godoc
// @Summary      Update client
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string       true  "client id (uuid)"
// @Param        payload  body  ClientInput  true  "Client payload"
// @Success      200  {object}  models.Client
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Router       /clients/{id} [patch]
func (h *Handler) UpdateClient(c *fiber.Ctx) error {
	cl, err := h.loadClient(c)
	if err != nil {
		return err
	}
	actor, err := ActorFrom(h.db, c)
	if err != nil {
		return err
	}
	if !policy.CanPerform(actor, policy.ClientUpdate, policy.Resource{ClientID: &cl.ID}) {
		return apperr.ErrPermission
	}

	var in ClientInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	cl.Name = in.Name
	cl.Email = in.Email
	cl.Phone = in.Phone
	cl.Address = in.Address
	cl.DateOfBirth = parseDOB(in.DateOfBirth)
	if err := SaveClient(h.db, cl); err != nil {
		return err
	}
	return c.JSON(cl)
}

// Delete Client godoc
// @Summary      Delete client
// @Description  Removes the client with its cases and appointments; the account goes too unless a lawyer profile remains
// @Tags         clients
// @Security     BearerAuth
// @Param        id  path  string  true  "client id (uuid)"
// @Success      204
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /clients/{id} [delete]
func (h *Handler) DeleteClientByID(c *fiber.Ctx) error {
	cl, err := h.loadClient(c)
	if err != nil {
		return err
	}
	actor, err := ActorFrom(h.db, c)
	if err != nil {
		return err
	}
	if !policy.CanPerform(actor, policy.ClientDelete, policy.Resource{ClientID: &cl.ID}) {
		return apperr.ErrPermission
	}
	keys, err := DeleteClient(h.db, cl)
	if err != nil {
		return err
	}
	// Blob cleanup is best-effort; orphaned objects are harmless.
	if h.sb != nil {
		_ = h.sb.BulkDelete(keys)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

/* =========================== Lawyer directory =========================== */

// List Lawyers godoc
// @Summary      Lawyer directory
// @Tags         lawyers
// @Security     BearerAuth
// @Produce      json
// @Param        specialization  query  string  false  "practice area"
// @Param        available       query  bool    false  "only available lawyers"
// @Success      200  {array}  models.Lawyer
// @Router       /lawyers [get]
func (h *Handler) ListLawyers(c *fiber.Ctx) error {
	dbq := h.db.Model(&models.Lawyer{}).Order("name ASC")
	if spec := strings.TrimSpace(c.Query("specialization")); spec != "" {
		dbq = dbq.Where("specialization = ?", spec)
	}
	if c.Query("available") == "true" {
		dbq = dbq.Where("is_available = ?", true)
	}
	var list []models.Lawyer
	if err := dbq.Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(list)
}

// Update Lawyer godoc
// @Summary      Update lawyer profile
// @Description  Lawyer updates their own profile; admins may update anyone's
// @Tags         lawyers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string       true  "lawyer id (uuid)"
// @Param        payload  body  LawyerPatch  true  "Fields to change"
// @Success      200  {object}  models.Lawyer
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Router       /lawyers/{id} [patch]
func (h *Handler) UpdateLawyer(c *fiber.Ctx) error {
	id := c.Params("id")
	var lw models.Lawyer
	if err := h.db.First(&lw, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	actor, err := ActorFrom(h.db, c)
	if err != nil {
		return err
	}
	isSelf := actor.Role == models.RoleLawyer && lw.UserID == actor.UserID
	if !isSelf && !(actor.IsSuperuser || actor.Role == models.RoleAdmin) {
		return apperr.ErrPermission
	}

	var in LawyerPatch
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	if in.Name != "" {
		lw.Name = in.Name
	}
	if in.Email != "" {
		lw.Email = in.Email
	}
	if in.Phone != "" {
		lw.Phone = in.Phone
	}
	if in.Specialization != "" {
		lw.Specialization = models.Specialization(in.Specialization)
	}
	if in.BarNumber != "" {
		lw.BarNumber = in.BarNumber
	}
	if in.YearsExperience != nil {
		lw.YearsExperience = *in.YearsExperience
	}
	if in.Bio != "" {
		lw.Bio = in.Bio
	}
	if in.IsAvailable != nil {
		lw.IsAvailable = *in.IsAvailable
	}
	if err := SaveLawyer(h.db, &lw); err != nil {
		return err
	}
	return c.JSON(lw)
}

// Activate Lawyer godoc
// @Summary      Activate a lawyer account
// @Description  Admin approves a pending lawyer registration
// @Tags         lawyers
// @Security     BearerAuth
// @Param        id  path  string  true  "lawyer id (uuid)"
// @Success      200  {object}  models.Lawyer
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /lawyers/{id}/activate [post]
func (h *Handler) ActivateLawyer(c *fiber.Ctx) error {
	actor, err := ActorFrom(h.db, c)
	if err != nil {
		return err
	}
	if !policy.CanPerform(actor, policy.LawyerActivate, policy.Resource{}) {
		return apperr.ErrPermission
	}

	id := c.Params("id")
	var lw models.Lawyer
	if err := h.db.First(&lw, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	if err := h.db.Model(&models.User{}).Where("id = ?", lw.UserID).
		Update("is_active", true).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(lw)
}
