package cases

import (
	"archive/zip"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/mfadhilr/lawfirm-backend/internal/policy"
	"github.com/mfadhilr/lawfirm-backend/internal/profiles"
	"github.com/mfadhilr/lawfirm-backend/pkg/apperr"
	"github.com/mfadhilr/lawfirm-backend/pkg/models"
)

const maxDocumentSize = 10 * 1024 * 1024

// Extensions accepted for case documents.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Upload Document godoc
// @Summary      Upload case document
// @Description  Attach a file to a case (max 10MB; pdf, doc, docx, txt, jpg, jpeg, png)
// @Tags         documents
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id     path      string  true   "case id (uuid)"
// @Param        file   formData  file    true   "document"
// @Param        title  formData  string  false  "display title (defaults to filename)"
// @Success      201  {object}  models.Document
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/documents [post]
func (h *Handler) UploadDocument(c *fiber.Ctx) error {
	actor, err := profiles.ActorFrom(h.db, c)
	if err != nil {
		return err
	}

	var cs models.Case
	if err := h.db.First(&cs, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	if !policy.CanPerform(actor, policy.DocumentUpload, policy.Resource{ClientID: &cs.ClientID, LawyerID: cs.LawyerID}) {
		return apperr.ErrPermission
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation("file", "required", "a file is required")
	}
	if fh.Size <= 0 {
		return apperr.Validation("file", "empty", "file is empty")
	}
	if fh.Size > maxDocumentSize {
		return apperr.Validation("file", "too_large", "file exceeds the 10MB limit")
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		return apperr.Validation("file", "unsupported_type",
			"allowed types: pdf, doc, docx, txt, jpg, jpeg, png")
	}

	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" {
		title = fh.Filename
	}

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = mime.TypeByExtension(ext)
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.ErrInternalServerError
	}
	defer f.Close()

	key := h.sb.MakeObjectKey(cs.ID.String(), fh.Filename)
	if err := h.sb.Upload(key, f, ct, fh.Size); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "storage upload failed")
	}

	doc := models.Document{
		CaseID: cs.ID,
		Title:  title,
		Key:    key,
		Mime:   ct,
		Size:   int(fh.Size),
	}
	if err := h.db.Create(&doc).Error; err != nil {
		// Keep storage consistent with the row that failed to land.
		_ = h.sb.Delete(key)
		return apperr.Integrity("document create", err)
	}

	return c.Status(fiber.StatusCreated).JSON(doc)
}

// Signed Download URL godoc
// @Summary      Get signed URL
// @Description  Short-lived download link for a case document
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Param        docID  path string true "document id (uuid)"
// @Success      200  {object}  map[string]any  "url, expires_in, now"
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /documents/{docID}/signed-url [get]
func (h *Handler) SignedDownloadURL(c *fiber.Ctx) error {
	actor, err := profiles.ActorFrom(h.db, c)
	if err != nil {
		return err
	}

	var doc models.Document
	if err := h.db.Preload("Case").First(&doc, "id = ?", c.Params("docID")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	res := policy.Resource{ClientID: &doc.Case.ClientID, LawyerID: doc.Case.LawyerID}
	if !policy.CanPerform(actor, policy.CaseView, res) {
		return apperr.ErrPermission
	}

	url, err := h.sb.SignedURL(doc.Key, 60)
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"url": url, "expires_in": 60, "now": time.Now().UTC()})
}

// Delete Document godoc
// @Summary      Delete document
// @Description  Staff removes a document; the stored blob is deleted best-effort
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Param        docID  path string true "document id (uuid)"
// @Success      200  {object}  map[string]bool  "ok"
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /documents/{docID} [delete]
func (h *Handler) DeleteDocument(c *fiber.Ctx) error {
	actor, err := profiles.ActorFrom(h.db, c)
	if err != nil {
		return err
	}
	if actor.Role == models.RoleClient && !actor.IsSuperuser {
		return apperr.ErrPermission
	}

	var doc models.Document
	if err := h.db.First(&doc, "id = ?", c.Params("docID")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	if err := h.db.Delete(&doc).Error; err != nil {
		return apperr.Integrity("document delete", err)
	}
	if h.sb != nil {
		_ = h.sb.Delete(doc.Key)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Archive Documents godoc
// @Summary      Download case documents as zip
// @Description  Staff bundles every document on a case into a single zip
// @Tags         documents
// @Security     BearerAuth
// @Produce      application/zip
// @Param        id   path string true "case id (uuid)"
// @Success      200  {file}    file
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/documents/archive [get]
func (h *Handler) ArchiveDocuments(c *fiber.Ctx) error {
	actor, err := profiles.ActorFrom(h.db, c)
	if err != nil {
		return err
	}
	if actor.Role == models.RoleClient && !actor.IsSuperuser {
		return apperr.ErrPermission
	}

	var cs models.Case
	err = h.db.Preload("Documents").First(&cs, "id = ?", c.Params("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	if len(cs.Documents) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "case has no documents")
	}

	tmp, err := os.CreateTemp("", "case-docs-*.zip")
	if err != nil {
		return fiber.ErrInternalServerError
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // scratch cleanup is best-effort

	zw := zip.NewWriter(tmp)
	for i, doc := range cs.Documents {
		data, err := h.sb.Download(doc.Key)
		if err != nil {
			// Skip objects that went missing; the archive holds the rest.
			continue
		}
		name := doc.Title
		if filepath.Ext(name) == "" {
			name += filepath.Ext(doc.Key)
		}
		w, err := zw.Create(fmt.Sprintf("%02d_%s", i+1, filepath.Base(name)))
		if err != nil {
			continue
		}
		if _, err := w.Write(data); err != nil {
			continue
		}
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fiber.ErrInternalServerError
	}
	if err := tmp.Close(); err != nil {
		return fiber.ErrInternalServerError
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return fiber.ErrInternalServerError
	}

	c.Set("Content-Type", "application/zip")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="case_%s_documents.zip"`, cs.ID))
	return c.Send(data)
}
