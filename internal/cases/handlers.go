package cases

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mfadhilr/lawfirm-backend/internal/policy"
	"github.com/mfadhilr/lawfirm-backend/internal/profiles"
	"github.com/mfadhilr/lawfirm-backend/internal/storage"
	"github.com/mfadhilr/lawfirm-backend/pkg/apperr"
	"github.com/mfadhilr/lawfirm-backend/pkg/audit"
	"github.com/mfadhilr/lawfirm-backend/pkg/models"
	"github.com/mfadhilr/lawfirm-backend/pkg/validation"
)

// ===== DTOs =====

type CreateCaseRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	ClientID    string `json:"client_id" validate:"required,uuid4"`
	LawyerID    string `json:"lawyer_id" validate:"omitempty,uuid4"`
	Description string `json:"description" validate:"max=2000"`
	Status      string `json:"status" validate:"omitempty,oneof=open pending closed"`
	DueDate     string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

type UpdateCaseRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	LawyerID    *string `json:"lawyer_id" validate:"omitempty,uuid4"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Status      *string `json:"status" validate:"omitempty,oneof=open pending closed"`
	DueDate     *string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

type CaseListItem struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Status     string     `json:"status"`
	ClientName string     `json:"client_name"`
	OpenedOn   time.Time  `json:"opened_on"`
	DueDate    *time.Time `json:"due_date"`
}

type PageCases struct {
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
	Total    int64          `json:"total"`
	Pages    int            `json:"pages"`
	Items    []CaseListItem `json:"items"`
}

type Handler struct {
	db *gorm.DB
	sb *storage.Supabase
}

func NewHandler(db *gorm.DB, sb *storage.Supabase) *Handler {
	return &Handler{db: db, sb: sb}
}

func parsePage(c *fiber.Ctx) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	size, _ = strconv.Atoi(c.Query("pageSize", "10"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 50 {
		size = 10
	}
	return
}

// Create Case godoc
// @Summary      Create case
// @Description  Staff opens a new case for a client
// @Tags         cases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateCaseRequest  true  "Case payload"
// @Success      201  {object}  map[string]string  "id"
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Router       /cases [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	actor, err := profiles.ActorFrom(h.db, c)
	if err != nil {
		return err
	}
	if !policy.CanPerform(actor, policy.CaseCreate, policy.Resource{}) {
		return apperr.ErrPermission
	}

	var in CreateCaseRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	clientID, _ := uuid.Parse(in.ClientID)
	var cl models.Client
	if err := h.db.First(&cl, "id = ?", clientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Validation("client_id", "not_found", "client does not exist")
		}
		return fiber.ErrInternalServerError
	}

	now := time.Now()
	cs := models.Case{
		Title:       strings.TrimSpace(in.Title),
		ClientID:    clientID,
		Description: strings.TrimSpace(in.Description),
		Status:      models.CaseOpen,
		// opened_on is fixed at creation time and never updated afterwards
		OpenedOn: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
	}
	if in.Status != "" {
		cs.Status = models.CaseStatus(in.Status)
	}
	if in.LawyerID != "" {
		lid, _ := uuid.Parse(in.LawyerID)
		cs.LawyerID = &lid
	}
	if in.DueDate != "" {
		if t, err := time.Parse("2006-01-02", in.DueDate); err == nil {
			cs.DueDate = &t
		}
	}

	if err := h.db.Create(&cs).Error; err != nil {
		return apperr.Integrity("case create", err)
	}
	audit.Log(c.Context(), h.db, "case", cs.ID, actor.UserID, "created", "", string(cs.Status), "")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": cs.ID})
}

// List Cases godoc
// @Summary      List cases
// @Description  Staff list all cases (with q search over title, description, and client name); clients see their own
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        page      query int    false "page"
// @Param        pageSize  query int    false "pageSize"
// @Param        q         query string false "search"
// @Param        status    query string false "open|pending|closed"
// @Success      200  {object}  PageCases
// @Failure      401  {object}  models.ErrorResponse
// @Router       /cases [get]
func (h *Handler) List(c *fiber.Ctx) error {
	actor, err := profiles.ActorFrom(h.db, c)
	if err != nil {
		return err
	}
	page, size := parsePage(c)
	q := strings.TrimSpace(c.Query("q"))
	status := strings.TrimSpace(c.Query("status"))

	dbq := h.db.Table("cases").
		Select(`cases.id, cases.title, cases.status, cases.opened_on, cases.due_date,
          clients.name AS client_name`).
		Joins("JOIN clients ON clients.id = cases.client_id")

	if actor.Role == models.RoleClient {
		if actor.ClientID == nil {
			return c.JSON(PageCases{Page: page, PageSize: size, Items: []CaseListItem{}})
		}
		dbq = dbq.Where("cases.client_id = ?", *actor.ClientID)
	}
	if q != "" {
		like := "%" + q + "%"
		dbq = dbq.Where("cases.title ILIKE ? OR cases.description ILIKE ? OR clients.name ILIKE ?", like, like, like)
	}
	if status != "" {
		dbq = dbq.Where("cases.status = ?", status)
	}

	// Count on a fresh session so it does not clobber the select clause.
	var total int64
	if err := dbq.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	items := make([]CaseListItem, 0, size)
	if err := dbq.Order("cases.opened_on DESC").
		Offset((page - 1) * size).Limit(size).
		Scan(&items).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	return c.JSON(PageCases{
		Page:     page,
		PageSize: size,
		Total:    total,
		Pages:    int(math.Ceil(float64(total) / float64(size))),
		Items:    items,
	})
}

// Get case detail
// @Summary      Case detail
// @Description  Detail with documents; clients can only read their own cases
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "case id (uuid)"
// @Success      200  {object}  models.Case
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	actor, err := profiles.ActorFrom(h.db, c)
	if err != nil {
		return err
	}

	var cs models.Case
	err = h.db.
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("uploaded_at ASC") }).
		First(&cs, "id = ?", c.Params("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	if !policy.CanPerform(actor, policy.CaseView, policy.Resource{ClientID: &cs.ClientID, LawyerID: cs.LawyerID}) {
		return apperr.ErrPermission
	}

	if cs.Documents == nil {
		cs.Documents = []models.Document{}
	}
	return c.JSON(cs)
}

// Update Case godoc
// @Summary      Update case
// @Description  Staff updates case fields; opened_on is immutable
// @Tags         cases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "case id (uuid)"
// @Param        payload  body  UpdateCaseRequest  true  "Fields to change"
// @Success      200  {object}  models.Case
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id} [patch]
func (h *Handler) Update(c *fiber.Ctx) error {
	actor, err := profiles.ActorFrom(h.db, c)
	if err != nil {
		return err
	}

	var in UpdateCaseRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var cs models.Case
	if err := h.db.First(&cs, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	if !policy.CanPerform(actor, policy.CaseUpdate, policy.Resource{ClientID: &cs.ClientID, LawyerID: cs.LawyerID}) {
		return apperr.ErrPermission
	}

	// Explicit column map so opened_on can never be touched here.
	updates := map[string]any{}
	oldStatus := string(cs.Status)
	if in.Title != nil {
		updates["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Status != nil {
		updates["status"] = *in.Status
	}
	if in.LawyerID != nil {
		if *in.LawyerID == "" {
			updates["lawyer_id"] = nil
		} else {
			lid, _ := uuid.Parse(*in.LawyerID)
			updates["lawyer_id"] = lid
		}
	}
	if in.DueDate != nil {
		if *in.DueDate == "" {
			updates["due_date"] = nil
		} else if t, err := time.Parse("2006-01-02", *in.DueDate); err == nil {
			updates["due_date"] = t
		}
	}

	if len(updates) > 0 {
		if err := h.db.Model(&cs).Updates(updates).Error; err != nil {
			return apperr.Integrity("case update", err)
		}
	}
	if in.Status != nil && *in.Status != oldStatus {
		audit.Log(c.Context(), h.db, "case", cs.ID, actor.UserID, "status_changed", oldStatus, *in.Status, "")
	}
	return c.JSON(cs)
}

// Delete Case godoc
// @Summary      Delete case
// @Description  Admin removes a case along with its documents
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "case id (uuid)"
// @Success      200  {object}  map[string]bool  "ok"
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id} [delete]
func (h *Handler) Delete(c *fiber.Ctx) error {
	actor, err := profiles.ActorFrom(h.db, c)
	if err != nil {
		return err
	}
	if !policy.CanPerform(actor, policy.CaseDelete, policy.Resource{}) {
		return apperr.ErrPermission
	}

	var cs models.Case
	if err := h.db.First(&cs, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	var keys []string
	h.db.Model(&models.Document{}).Where("case_id = ?", cs.ID).Pluck("key", &keys)

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("case_id = ?", cs.ID).Delete(&models.Document{}).Error; err != nil {
			return apperr.Integrity("case delete", err)
		}
		if err := tx.Delete(&cs).Error; err != nil {
			return apperr.Integrity("case delete", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Blob cleanup is best-effort; orphaned objects are harmless.
	if h.sb != nil {
		_ = h.sb.BulkDelete(keys)
	}
	audit.Log(c.Context(), h.db, "case", cs.ID, actor.UserID, "deleted", string(cs.Status), "", "")
	return c.JSON(fiber.Map{"ok": true})
}
