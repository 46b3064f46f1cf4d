package accounts

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mfadhilr/lawfirm-backend/internal/auth"
	"github.com/mfadhilr/lawfirm-backend/pkg/models"
)

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
	if err := db.AutoMigrate(&models.User{}, &models.Client{}, &models.Lawyer{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		sql := `TRUNCATE TABLE lawyers, clients, users RESTART IDENTITY CASCADE`
		if err := db.Exec(sql).Error; err != nil {
			t.Logf("truncate failed (ignored): %v", err)
		}
	})

	return db
}

func newTestApp(db *gorm.DB) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: auth.ErrorHandler})
	h := NewHandler(db)
	app.Post("/api/register", h.RegisterClient)
	app.Post("/api/register/lawyer", h.RegisterLawyer)
	app.Post("/api/login", h.Login)
	return app
}

func doPost(app *fiber.App, path, body string) (int, map[string]any) {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestRegisterClient_CreatesAccountAndProfile(t *testing.T) {
	db := openTestDB(t)
	app := newTestApp(db)

	code, out := doPost(app, "/api/register", `{
		"username": "jdoe",
		"name": "john doe",
		"email": "JDoe@Firm.com",
		"password": "secret123",
		"date_of_birth": "1990-05-10"
	}`)
	require.Equal(t, 201, code)
	assert.NotEmpty(t, out["token"])
	assert.Equal(t, "client", out["role"])

	var u models.User
	require.NoError(t, db.First(&u, "username = ?", "jdoe").Error)
	assert.Equal(t, "jdoe@firm.com", u.Email)
	assert.True(t, u.IsActive)

	var cl models.Client
	require.NoError(t, db.First(&cl, "user_id = ?", u.ID).Error)
	assert.Equal(t, "John Doe", cl.Name)
	require.NotNil(t, cl.DateOfBirth)
}

func TestRegisterClient_UsernameEqualsEmailRejected(t *testing.T) {
	db := openTestDB(t)
	app := newTestApp(db)

	code, out := doPost(app, "/api/register", `{
		"username": "dup@firm.com",
		"name": "Dup User",
		"email": "dup@firm.com",
		"password": "secret123"
	}`)
	require.Equal(t, 400, code)
	errs, _ := out["errors"].(map[string]any)
	assert.Contains(t, errs, "username")
}

func TestRegisterClient_TakenUsername(t *testing.T) {
	db := openTestDB(t)
	app := newTestApp(db)

	code, _ := doPost(app, "/api/register", `{
		"username": "taken", "name": "First One",
		"email": "first@firm.com", "password": "secret123"
	}`)
	require.Equal(t, 201, code)

	code, out := doPost(app, "/api/register", `{
		"username": "TAKEN", "name": "Second One",
		"email": "second@firm.com", "password": "secret123"
	}`)
	require.Equal(t, 400, code)
	errs, _ := out["errors"].(map[string]any)
	assert.Contains(t, errs, "username")
}

func TestRegisterClient_UnderageRejected(t *testing.T) {
	db := openTestDB(t)
	app := newTestApp(db)

	code, out := doPost(app, "/api/register", `{
		"username": "kid", "name": "Too Young",
		"email": "kid@firm.com", "password": "secret123",
		"date_of_birth": "2020-01-01"
	}`)
	require.Equal(t, 400, code)
	errs, _ := out["errors"].(map[string]any)
	assert.Contains(t, errs, "date_of_birth")
}

func TestRegisterLawyer_PendingUntilActivated(t *testing.T) {
	db := openTestDB(t)
	app := newTestApp(db)

	code, out := doPost(app, "/api/register/lawyer", `{
		"username": "counsel",
		"name": "Ada Counsel",
		"email": "ada@firm.com",
		"password": "secret123",
		"specialization": "family",
		"bar_number": "BAR 12345"
	}`)
	require.Equal(t, 201, code)
	assert.NotEmpty(t, out["message"])
	assert.Nil(t, out["token"], "no token before approval")

	// Login refused while inactive.
	code, _ = doPost(app, "/api/login", `{"email":"ada@firm.com","password":"secret123"}`)
	assert.Equal(t, 403, code)

	require.NoError(t, db.Model(&models.User{}).
		Where("username = ?", "counsel").
		Update("is_active", true).Error)

	code, out = doPost(app, "/api/login", `{"email":"ada@firm.com","password":"secret123"}`)
	require.Equal(t, 200, code)
	assert.Equal(t, "lawyer", out["role"])
}

func TestLogin_WrongPassword(t *testing.T) {
	db := openTestDB(t)
	app := newTestApp(db)

	code, _ := doPost(app, "/api/register", `{
		"username": "pwtest", "name": "Pw Test",
		"email": "pw@firm.com", "password": "secret123"
	}`)
	require.Equal(t, 201, code)

	code, _ = doPost(app, "/api/login", `{"email":"pw@firm.com","password":"wrong"}`)
	assert.Equal(t, 401, code)
}
