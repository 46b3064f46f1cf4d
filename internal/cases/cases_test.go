package cases

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mfadhilr/lawfirm-backend/internal/auth"
	"github.com/mfadhilr/lawfirm-backend/pkg/models"
)

/* ============================================================================
   Helpers
   ============================================================================ */

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	_ = godotenv.Load()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Client{}, &models.Lawyer{},
		&models.Case{}, &models.Document{}, &models.AuditEntry{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		sql := `
TRUNCATE TABLE
	audit_entries,
	documents,
	cases,
	lawyers,
	clients,
	users
RESTART IDENTITY CASCADE`
		if err := db.Exec(sql).Error; err != nil {
			t.Logf("truncate failed (ignored): %v", err)
		}
	})

	return db
}

func withTx(t *testing.T, db *gorm.DB, fn func(tx *gorm.DB)) {
	t.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	fn(tx)
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("commit tx: %v", err)
	}
}

// injectAuth fills the locals RequireAuth would set, so handlers run
// without a real JWT.
func injectAuth(userID uuid.UUID, role string) fiber.Handler {
	id := userID.String()
	return func(c *fiber.Ctx) error {
		c.Locals("userID", id)
		c.Locals("role", role)
		return c.Next()
	}
}

func newTestApp(h *Handler, userID uuid.UUID, role string) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: auth.ErrorHandler,
		BodyLimit:    12 * 1024 * 1024,
	})
	app.Use(injectAuth(userID, role))

	app.Post("/api/cases", h.Create)
	app.Get("/api/cases", h.List)
	app.Get("/api/cases/:id", h.Get)
	app.Patch("/api/cases/:id", h.Update)
	app.Post("/api/cases/:id/documents", h.UploadDocument)

	return app
}

type seedResult struct {
	LawyerUserID uuid.UUID
	ClientUserID uuid.UUID
	ClientID     uuid.UUID
	CaseID       uuid.UUID
}

// seedCase inserts a lawyer account, a client with a linked account, and
// one open case.
func seedCase(t *testing.T, tx *gorm.DB) seedResult {
	t.Helper()
	suffix := uuid.NewString()[:8]

	lawyer := models.User{
		Username: "lw_" + suffix, Email: "lw_" + suffix + "@x.com",
		PasswordHash: "x", Role: models.RoleLawyer, IsActive: true,
	}
	require.NoError(t, tx.Create(&lawyer).Error)

	clientUser := models.User{
		Username: "cl_" + suffix, Email: "cl_" + suffix + "@x.com",
		PasswordHash: "x", Role: models.RoleClient, IsActive: true,
	}
	require.NoError(t, tx.Create(&clientUser).Error)

	cl := models.Client{Name: "Case Owner", Email: "cl_" + suffix + "@x.com", UserID: &clientUser.ID}
	require.NoError(t, tx.Create(&cl).Error)

	cs := models.Case{
		Title:    "Estate Dispute",
		ClientID: cl.ID,
		Status:   models.CaseOpen,
		OpenedOn: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, tx.Create(&cs).Error)

	return seedResult{
		LawyerUserID: lawyer.ID,
		ClientUserID: clientUser.ID,
		ClientID:     cl.ID,
		CaseID:       cs.ID,
	}
}

func multipartFile(t *testing.T, field, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

/* ============================================================================
   Tests — opened_on is write-once
   ============================================================================ */

func TestUpdate_NeverTouchesOpenedOn(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		seed := seedCase(t, tx)
		app := newTestApp(NewHandler(tx, nil), seed.LawyerUserID, string(models.RoleLawyer))

		body := strings.NewReader(`{"title":"Estate Dispute (amended)","status":"closed"}`)
		req := httptest.NewRequest("PATCH", "/api/cases/"+seed.CaseID.String(), body)
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)
		require.Equal(t, 200, resp.StatusCode)

		var got models.Case
		require.NoError(t, tx.First(&got, "id = ?", seed.CaseID).Error)
		assert.Equal(t, "Estate Dispute (amended)", got.Title)
		assert.Equal(t, models.CaseClosed, got.Status)
		assert.Equal(t, "2024-02-01", got.OpenedOn.Format("2006-01-02"))
	})
}

// Clients may update their own case; anyone else's is off limits.
func TestUpdate_ClientOwnCaseAllowed(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		seed := seedCase(t, tx)
		h := NewHandler(tx, nil)

		appOwner := newTestApp(h, seed.ClientUserID, string(models.RoleClient))
		body := strings.NewReader(`{"description":"added context from the client"}`)
		req := httptest.NewRequest("PATCH", "/api/cases/"+seed.CaseID.String(), body)
		req.Header.Set("Content-Type", "application/json")
		resp, _ := appOwner.Test(req)
		require.Equal(t, 200, resp.StatusCode)

		var got models.Case
		require.NoError(t, tx.First(&got, "id = ?", seed.CaseID).Error)
		assert.Equal(t, "added context from the client", got.Description)

		other := seedCase(t, tx)
		appOther := newTestApp(h, other.ClientUserID, string(models.RoleClient))
		body2 := strings.NewReader(`{"description":"should not land"}`)
		req2 := httptest.NewRequest("PATCH", "/api/cases/"+seed.CaseID.String(), body2)
		req2.Header.Set("Content-Type", "application/json")
		resp2, _ := appOther.Test(req2)
		assert.Equal(t, 403, resp2.StatusCode)
	})
}

/* ============================================================================
   Tests — client visibility
   ============================================================================ */

func TestGet_ClientSeesOwnCaseOnly(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		seed := seedCase(t, tx)
		h := NewHandler(tx, nil)

		// Owner → 200
		appOwner := newTestApp(h, seed.ClientUserID, string(models.RoleClient))
		req := httptest.NewRequest("GET", "/api/cases/"+seed.CaseID.String(), nil)
		resp, _ := appOwner.Test(req)
		assert.Equal(t, 200, resp.StatusCode)

		// Another client → 403
		other := seedCase(t, tx)
		appOther := newTestApp(h, other.ClientUserID, string(models.RoleClient))
		req2 := httptest.NewRequest("GET", "/api/cases/"+seed.CaseID.String(), nil)
		resp2, _ := appOther.Test(req2)
		assert.Equal(t, 403, resp2.StatusCode)
	})
}

func TestList_ClientIsScopedLawyerSeesAll(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		a := seedCase(t, tx)
		b := seedCase(t, tx)
		h := NewHandler(tx, nil)

		type page struct {
			Total int64 `json:"total"`
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		}

		appClient := newTestApp(h, a.ClientUserID, string(models.RoleClient))
		resp, _ := appClient.Test(httptest.NewRequest("GET", "/api/cases", nil))
		require.Equal(t, 200, resp.StatusCode)
		var mine page
		_ = json.NewDecoder(resp.Body).Decode(&mine)
		require.Equal(t, int64(1), mine.Total)
		assert.Equal(t, a.CaseID.String(), mine.Items[0].ID)

		appLawyer := newTestApp(h, b.LawyerUserID, string(models.RoleLawyer))
		resp2, _ := appLawyer.Test(httptest.NewRequest("GET", "/api/cases", nil))
		require.Equal(t, 200, resp2.StatusCode)
		var all page
		_ = json.NewDecoder(resp2.Body).Decode(&all)
		assert.Equal(t, int64(2), all.Total)
	})
}

// q matches the client's name through the join, not just case fields.
func TestList_SearchByClientName(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		seed := seedCase(t, tx)
		require.NoError(t, tx.Model(&models.Client{}).
			Where("id = ?", seed.ClientID).
			Update("name", "Zebulon Quarry").Error)
		seedCase(t, tx) // noise

		app := newTestApp(NewHandler(tx, nil), seed.LawyerUserID, string(models.RoleLawyer))
		resp, _ := app.Test(httptest.NewRequest("GET", "/api/cases?q=zebulon", nil))
		require.Equal(t, 200, resp.StatusCode)

		var out struct {
			Total int64 `json:"total"`
			Items []struct {
				ClientName string `json:"client_name"`
			} `json:"items"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		require.Equal(t, int64(1), out.Total)
		assert.Equal(t, "Zebulon Quarry", out.Items[0].ClientName)
	})
}

/* ============================================================================
   Tests — upload validation
   ============================================================================ */

func TestUploadDocument_RejectsUnsupportedExtension(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		seed := seedCase(t, tx)
		app := newTestApp(NewHandler(tx, nil), seed.LawyerUserID, string(models.RoleLawyer))

		body, ct := multipartFile(t, "file", "malware.exe", []byte("MZ"))
		req := httptest.NewRequest("POST", "/api/cases/"+seed.CaseID.String()+"/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)
		require.Equal(t, 400, resp.StatusCode)

		var out struct {
			Code string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		assert.Equal(t, "unsupported_type", out.Code)
	})
}

func TestUploadDocument_RejectsOversizeFile(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		seed := seedCase(t, tx)
		app := newTestApp(NewHandler(tx, nil), seed.LawyerUserID, string(models.RoleLawyer))

		big := bytes.Repeat([]byte("a"), maxDocumentSize+1)
		body, ct := multipartFile(t, "file", "huge.pdf", big)
		req := httptest.NewRequest("POST", "/api/cases/"+seed.CaseID.String()+"/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, 400, resp.StatusCode)

		var out struct {
			Code string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		assert.Equal(t, "too_large", out.Code)
	})
}

func TestUploadDocument_OtherClientForbidden(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		seed := seedCase(t, tx)
		other := seedCase(t, tx)
		app := newTestApp(NewHandler(tx, nil), other.ClientUserID, string(models.RoleClient))

		body, ct := multipartFile(t, "file", "notes.txt", []byte("hello"))
		req := httptest.NewRequest("POST", "/api/cases/"+seed.CaseID.String()+"/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)
		assert.Equal(t, 403, resp.StatusCode)
	})
}
