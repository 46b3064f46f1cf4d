// @title           Law Firm API
// @version         1.0
// @description     Back office for a law firm: client and lawyer profiles, cases with documents, appointment scheduling, and visitor inquiries.
// @BasePath        /api
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Format: Bearer <token>
package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/mfadhilr/lawfirm-backend/internal/accounts"
	"github.com/mfadhilr/lawfirm-backend/internal/appointments"
	"github.com/mfadhilr/lawfirm-backend/internal/auth"
	"github.com/mfadhilr/lawfirm-backend/internal/cases"
	"github.com/mfadhilr/lawfirm-backend/internal/profiles"
	"github.com/mfadhilr/lawfirm-backend/internal/storage"
	"github.com/mfadhilr/lawfirm-backend/internal/visitors"
	"github.com/mfadhilr/lawfirm-backend/pkg/database"
	"github.com/mfadhilr/lawfirm-backend/pkg/models"
)

func main() {
	_ = godotenv.Load()

	db := database.Init()
	if err := db.AutoMigrate(
		&models.User{}, &models.Client{}, &models.Lawyer{},
		&models.Case{}, &models.Document{}, &models.Appointment{},
		&models.Visitor{}, &models.AuditEntry{},
	); err != nil {
		log.Fatal("migration failed:", err)
	}

	// Optional admin bootstrap for fresh databases.
	if email, pass := os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD"); email != "" && pass != "" {
		var count int64
		db.Model(&models.User{}).Where("email = ?", profiles.NormalizeEmail(email)).Count(&count)
		if count == 0 {
			hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
			if err != nil {
				log.Fatal("admin bootstrap failed:", err)
			}
			admin := models.User{
				Username:     profiles.NormalizeEmail(email),
				Email:        profiles.NormalizeEmail(email),
				PasswordHash: string(hash),
				Role:         models.RoleAdmin,
				IsActive:     true,
				IsSuperuser:  true,
			}
			if err := db.Create(&admin).Error; err != nil {
				log.Fatal("admin bootstrap failed:", err)
			}
			log.Println("admin account created:", admin.Email)
		}
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: auth.ErrorHandler,
		BodyLimit:    12 * 1024 * 1024, // documents are capped at 10MB past parsing
	})

	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })

	api := app.Group("/api")

	// Accounts
	acctH := accounts.NewHandler(db)
	api.Post("/register", acctH.RegisterClient)
	api.Post("/register/lawyer", acctH.RegisterLawyer)
	api.Post("/login", acctH.Login)
	api.Get("/me", auth.RequireAuth(), acctH.Me)

	// Storage helper (SUPABASE_URL / SUPABASE_SERVICE_KEY / SUPABASE_BUCKET)
	sb := storage.NewSupabase()

	// Profiles
	profH := profiles.NewHandler(db, sb)
	api.Get("/profile", auth.RequireAuth(), auth.RequireRole("client"), profH.GetOwnProfile)
	api.Patch("/profile", auth.RequireAuth(), auth.RequireRole("client"), profH.UpdateOwnProfile)

	api.Post("/clients", auth.RequireAuth(), auth.RequireRole("lawyer"), profH.CreateClient)
	api.Get("/clients", auth.RequireAuth(), auth.RequireRole("lawyer"), profH.ListClients)
	api.Get("/clients/:id", auth.RequireAuth(), profH.GetClient)
	api.Patch("/clients/:id", auth.RequireAuth(), profH.UpdateClient)
	api.Delete("/clients/:id", auth.RequireAuth(), auth.RequireRole(), profH.DeleteClientByID)

	api.Get("/lawyers", auth.RequireAuth(), profH.ListLawyers)
	api.Patch("/lawyers/:id", auth.RequireAuth(), auth.RequireRole("lawyer"), profH.UpdateLawyer)
	api.Post("/lawyers/:id/activate", auth.RequireAuth(), auth.RequireRole(), profH.ActivateLawyer)

	// Cases & documents
	caseH := cases.NewHandler(db, sb)
	api.Post("/cases", auth.RequireAuth(), auth.RequireRole("lawyer"), caseH.Create)
	api.Get("/cases", auth.RequireAuth(), caseH.List)
	api.Get("/cases/:id", auth.RequireAuth(), caseH.Get)
	api.Patch("/cases/:id", auth.RequireAuth(), caseH.Update)
	api.Delete("/cases/:id", auth.RequireAuth(), auth.RequireRole(), caseH.Delete)

	api.Post("/cases/:id/documents", auth.RequireAuth(), caseH.UploadDocument)
	api.Get("/cases/:id/documents/archive", auth.RequireAuth(), auth.RequireRole("lawyer"), caseH.ArchiveDocuments)
	api.Get("/documents/:docID/signed-url", auth.RequireAuth(), caseH.SignedDownloadURL)
	api.Delete("/documents/:docID", auth.RequireAuth(), auth.RequireRole("lawyer"), caseH.DeleteDocument)

	// Appointments
	apptH := appointments.NewHandler(db)
	api.Post("/appointments", auth.RequireAuth(), auth.RequireRole("client"), apptH.Book)
	api.Get("/appointments", auth.RequireAuth(), apptH.List)
	api.Get("/appointments/:id", auth.RequireAuth(), apptH.Get)
	api.Post("/appointments/:id/respond", auth.RequireAuth(), auth.RequireRole("lawyer"), apptH.Respond)
	api.Post("/appointments/:id/reschedule", auth.RequireAuth(), apptH.RescheduleHTTP)

	// Visitor inquiries
	visH := visitors.NewHandler(db)
	api.Post("/inquiries", visH.Submit)
	api.Get("/inquiries", auth.RequireAuth(), auth.RequireRole("lawyer"), visH.List)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	log.Println("Server running on :" + port)
	log.Fatal(app.Listen(":" + port))
}
