package visitors

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/mfadhilr/lawfirm-backend/internal/policy"
	"github.com/mfadhilr/lawfirm-backend/internal/profiles"
	"github.com/mfadhilr/lawfirm-backend/pkg/apperr"
	"github.com/mfadhilr/lawfirm-backend/pkg/models"
	"github.com/mfadhilr/lawfirm-backend/pkg/validation"
)

type InquiryRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,max=2000"`
}

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// Submit Inquiry godoc
// @Summary      Submit inquiry
// @Description  Public contact form for site visitors
// @Tags         inquiries
// @Accept       json
// @Produce      json
// @Param        payload  body  InquiryRequest  true  "Inquiry"
// @Success      201  {object}  map[string]string  "id"
// @Failure      400  {object}  models.ValidationErrorResponse
// @Router       /inquiries [post]
func (h *Handler) Submit(c *fiber.Ctx) error {
	var in InquiryRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	v := models.Visitor{
		Name:    strings.TrimSpace(in.Name),
		Email:   profiles.NormalizeEmail(in.Email),
		Message: strings.TrimSpace(in.Message),
	}
	if err := h.db.Create(&v).Error; err != nil {
		return apperr.Integrity("inquiry create", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": v.ID})
}

// List Inquiries godoc
// @Summary      List inquiries
// @Description  Staff review submitted inquiries, newest first
// @Tags         inquiries
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   models.Visitor
// @Failure      403  {object}  models.ErrorResponse
// @Router       /inquiries [get]
func (h *Handler) List(c *fiber.Ctx) error {
	actor, err := profiles.ActorFrom(h.db, c)
	if err != nil {
		return err
	}
	if !policy.CanPerform(actor, policy.InquiryView, policy.Resource{}) {
		return apperr.ErrPermission
	}

	var list []models.Visitor
	if err := h.db.Order("submitted_at DESC").Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if list == nil {
		list = []models.Visitor{}
	}
	return c.JSON(list)
}
