package accounts

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mfadhilr/lawfirm-backend/internal/auth"
	"github.com/mfadhilr/lawfirm-backend/internal/profiles"
	"github.com/mfadhilr/lawfirm-backend/pkg/models"
	"github.com/mfadhilr/lawfirm-backend/pkg/validation"
)

/* ================================ DTOs ================================= */

// Request body for client registration
type RegisterClientRequest struct {
	Username    string `json:"username" validate:"required,username,max=150"`
	Name        string `json:"name" validate:"required,min=2,max=255"`
	Email       string `json:"email" validate:"required,email,max=120"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	Phone       string `json:"phone" validate:"omitempty,max=20"`
	Address     string `json:"address" validate:"omitempty,max=500"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02,adult"`
}

// Request body for lawyer registration
type RegisterLawyerRequest struct {
	Username        string `json:"username" validate:"required,username,max=150"`
	Name            string `json:"name" validate:"required,min=2,max=255"`
	Email           string `json:"email" validate:"required,email,max=120"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	Phone           string `json:"phone" validate:"omitempty,max=20"`
	Specialization  string `json:"specialization" validate:"required,practicearea"`
	BarNumber       string `json:"bar_number" validate:"omitempty,barnum"`
	YearsExperience int    `json:"years_experience" validate:"omitempty,gte=0,lte=70"`
	Bio             string `json:"bio" validate:"omitempty,max=2000"`
}

// Request body for /login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required"`
}

// Standard auth response
type AuthResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

/* ============================== Handler ================================= */

type Handler struct{ db *gorm.DB }

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

// takenErrors checks username/email against existing accounts and returns
// validation errors in the usual field->messages shape.
func (h *Handler) takenErrors(username, email string) (map[string][]string, error) {
	errs := map[string][]string{}
	var cnt int64
	if err := h.db.Model(&models.User{}).Where("LOWER(username) = LOWER(?)", username).Count(&cnt).Error; err != nil {
		return nil, err
	}
	if cnt > 0 {
		errs["username"] = append(errs["username"], "This username is already taken")
	}
	if err := h.db.Model(&models.User{}).Where("LOWER(email) = ?", email).Count(&cnt).Error; err != nil {
		return nil, err
	}
	if cnt > 0 {
		errs["email"] = append(errs["email"], "This email is already registered")
	}
	if len(errs) == 0 {
		return nil, nil
	}
	return errs, nil
}

/* =========================== Registration =============================== */

// Register Client godoc
// @Summary      Register as a client
// @Description  Creates the account and the linked client profile in one transaction
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  RegisterClientRequest  true  "Registration payload"
// @Success      201  {object}  AuthResponse
// @Failure      400  {object}  models.ValidationErrorResponse
// @Router       /register [post]
func (h *Handler) RegisterClient(c *fiber.Ctx) error {
	var in RegisterClientRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)

	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	if strings.EqualFold(in.Username, in.Email) {
		return validation.Respond(c, map[string][]string{
			"username": {"Username cannot be the same as your email address"},
		})
	}
	if errs, err := h.takenErrors(in.Username, in.Email); err != nil {
		return fiber.ErrInternalServerError
	} else if errs != nil {
		return validation.Respond(c, errs)
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	first, last := profiles.SplitName(in.Name)

	u := models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    first,
		LastName:     last,
		Role:         models.RoleClient,
		IsActive:     true,
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		cl := models.Client{
			UserID:      &u.ID,
			Name:        in.Name,
			Email:       in.Email,
			Phone:       in.Phone,
			Address:     in.Address,
			DateOfBirth: parseDate(in.DateOfBirth),
		}
		return profiles.SaveClient(tx, &cl)
	})
	if err != nil {
		return err
	}

	token, _ := auth.IssueToken(u.ID.String(), string(u.Role))
	return c.Status(fiber.StatusCreated).JSON(AuthResponse{Token: token, Role: string(u.Role)})
}

// Register Lawyer godoc
// @Summary      Register as a lawyer
// @Description  Creates an inactive account plus the lawyer profile; an admin must activate it before login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  RegisterLawyerRequest  true  "Registration payload"
// @Success      201  {object}  map[string]string
// @Failure      400  {object}  models.ValidationErrorResponse
// @Router       /register/lawyer [post]
func (h *Handler) RegisterLawyer(c *fiber.Ctx) error {
	var in RegisterLawyerRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)

	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	if errs, err := h.takenErrors(in.Username, in.Email); err != nil {
		return fiber.ErrInternalServerError
	} else if errs != nil {
		return validation.Respond(c, errs)
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	first, last := profiles.SplitName(in.Name)

	u := models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    first,
		LastName:     last,
		Role:         models.RoleLawyer,
		IsActive:     false, // pending admin approval
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		lw := models.Lawyer{
			UserID:          u.ID,
			Name:            in.Name,
			Email:           in.Email,
			Phone:           in.Phone,
			Specialization:  models.Specialization(in.Specialization),
			BarNumber:       in.BarNumber,
			YearsExperience: in.YearsExperience,
			Bio:             in.Bio,
		}
		return profiles.SaveLawyer(tx, &lw)
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":      u.ID.String(),
		"message": "Registration received; an administrator will review your account",
	})
}

/* ================================ Login ================================= */

// Login godoc
// @Summary      Login
// @Description  Authenticate and receive a JWT
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  LoginRequest  true  "Login payload"
// @Success      200  {object}  AuthResponse
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Router       /login [post]
func (h *Handler) Login(c *fiber.Ctx) error {
	var in LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var u models.User
	if err := h.db.Where("email = ?", in.Email).First(&u).Error; err != nil {
		return fiber.ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return fiber.ErrUnauthorized
	}
	if !u.IsActive {
		return fiber.NewError(fiber.StatusForbidden, "account is pending approval")
	}

	token, _ := auth.IssueToken(u.ID.String(), string(u.Role))
	return c.JSON(AuthResponse{Token: token, Role: string(u.Role)})
}

/* ================================= Me =================================== */

// Me godoc
// @Summary      Get current account
// @Description  Returns the account plus the linked profile, if any
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      401  {object}  models.ErrorResponse
// @Router       /me [get]
func (h *Handler) Me(c *fiber.Ctx) error {
	uid, err := uuid.Parse(auth.MustUserID(c))
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var u models.User
	if err := h.db.First(&u, "id = ?", uid).Error; err != nil {
		return fiber.ErrUnauthorized
	}

	out := fiber.Map{"user": u}
	switch u.Role {
	case models.RoleClient:
		var cl models.Client
		if err := h.db.First(&cl, "user_id = ?", uid).Error; err == nil {
			out["profile"] = cl
		}
	case models.RoleLawyer:
		var lw models.Lawyer
		if err := h.db.First(&lw, "user_id = ?", uid).Error; err == nil {
			out["profile"] = lw
		}
	}
	return c.JSON(out)
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
