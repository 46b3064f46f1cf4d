package appointments

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mfadhilr/lawfirm-backend/internal/policy"
	"github.com/mfadhilr/lawfirm-backend/pkg/apperr"
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
		&models.Appointment{}, &models.AuditEntry{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		sql := `
TRUNCATE TABLE
	audit_entries,
	appointments,
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

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// seedPending inserts a client profile and one pending appointment.
func seedPending(t *testing.T, tx *gorm.DB) (clientID uuid.UUID, appt *models.Appointment) {
	t.Helper()
	cl := models.Client{Name: "Booker " + uuid.NewString()[:6], Email: uuid.NewString()[:8] + "@x.com"}
	require.NoError(t, tx.Create(&cl).Error)

	a, err := Book(tx, cl.ID, today().AddDate(0, 0, 3), "10:30", "first consult")
	require.NoError(t, err)
	return cl.ID, a
}

func lawyerActor(id uuid.UUID) policy.Actor {
	return policy.Actor{UserID: id, Role: models.RoleLawyer}
}

/* ============================================================================
   Tests — booking validation
   ============================================================================ */

func TestBook_RejectsPastDate(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		_, err := Book(tx, uuid.New(), today().AddDate(0, 0, -1), "09:00", "")
		require.Error(t, err)

		var ve *apperr.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "past_date", ve.Code)
	})
}

func TestBook_RejectsBadTime(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		_, err := Book(tx, uuid.New(), today().AddDate(0, 0, 1), "25:99", "")
		require.Error(t, err)

		var ve *apperr.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "invalid_time", ve.Code)
	})
}

func TestBook_TodayIsAllowed(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		cl := models.Client{Name: "Same Day", Email: "sameday@x.com"}
		require.NoError(t, tx.Create(&cl).Error)

		a, err := Book(tx, cl.ID, today(), "16:00", "urgent")
		require.NoError(t, err)
		assert.Equal(t, models.AppointmentPending, a.Status)
	})
}

/* ============================================================================
   Tests — respond workflow
   ============================================================================ */

// Rejecting or rescheduling without a reason is refused before anything
// touches the row.
func TestRespond_ReasonRequired(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		_, appt := seedPending(t, tx)
		actor := lawyerActor(uuid.New())

		_, err := Respond(tx, actor, appt.ID, RespondInput{Status: models.AppointmentRejected})
		var ve *apperr.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "reason_required", ve.Code)
		assert.Equal(t, "rejection_reason", ve.Field)

		_, err = Respond(tx, actor, appt.ID, RespondInput{Status: models.AppointmentRescheduled})
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "reason_required", ve.Code)
		assert.Equal(t, "reschedule_reason", ve.Field)

		// The row is untouched.
		var got models.Appointment
		require.NoError(t, tx.First(&got, "id = ?", appt.ID).Error)
		assert.Equal(t, models.AppointmentPending, got.Status)
		assert.Nil(t, got.LawyerID)
	})
}

// Responding to an unassigned appointment claims it for the lawyer.
func TestRespond_ClaimsUnassigned(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		_, appt := seedPending(t, tx)
		lawyerID := uuid.New()

		got, err := Respond(tx, lawyerActor(lawyerID), appt.ID, RespondInput{
			Status:      models.AppointmentAccepted,
			LawyerNotes: "bring the contract",
		})
		require.NoError(t, err)
		require.NotNil(t, got.LawyerID)
		assert.Equal(t, lawyerID, *got.LawyerID)
		assert.Equal(t, models.AppointmentAccepted, got.Status)
		assert.Equal(t, "bring the contract", got.LawyerNotes)
	})
}

// Once claimed, another lawyer's response fails the policy check.
func TestRespond_AssignedAppointmentIsExclusive(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		_, appt := seedPending(t, tx)
		first := uuid.New()

		_, err := Respond(tx, lawyerActor(first), appt.ID, RespondInput{Status: models.AppointmentAccepted})
		require.NoError(t, err)

		_, err = Respond(tx, lawyerActor(uuid.New()), appt.ID, RespondInput{Status: models.AppointmentCompleted})
		require.ErrorIs(t, err, apperr.ErrPermission)

		_, err = Reschedule(tx, lawyerActor(uuid.New()), appt.ID, today().AddDate(0, 0, 7), "12:00", "trying to move it")
		require.ErrorIs(t, err, apperr.ErrPermission)
	})
}

// The first slot change captures the original date and time; later changes
// never overwrite the capture.
func TestReschedule_CapturesOriginalSlotOnce(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		_, appt := seedPending(t, tx)
		firstDate, firstTime := appt.Date, appt.Time
		lawyer := lawyerActor(uuid.New())

		second := today().AddDate(0, 0, 5)
		got, err := Reschedule(tx, lawyer, appt.ID, second, "11:00", "court conflict")
		require.NoError(t, err)

		require.NotNil(t, got.OriginalDate)
		require.NotNil(t, got.OriginalTime)
		assert.Equal(t, firstDate.Format("2006-01-02"), got.OriginalDate.Format("2006-01-02"))
		assert.Equal(t, firstTime, *got.OriginalTime)
		assert.Equal(t, models.AppointmentRescheduled, got.Status)
		assert.Equal(t, "court conflict", got.RescheduleReason)

		third := today().AddDate(0, 0, 9)
		got, err = Reschedule(tx, lawyer, appt.ID, third, "14:00", "another conflict")
		require.NoError(t, err)

		// Still the first slot, not the second.
		assert.Equal(t, firstDate.Format("2006-01-02"), got.OriginalDate.Format("2006-01-02"))
		assert.Equal(t, firstTime, *got.OriginalTime)
		assert.Equal(t, third.Format("2006-01-02"), got.Date.Format("2006-01-02"))
		assert.Equal(t, "14:00", got.Time)
	})
}

// A respond that repeats the current slot changes nothing about the capture.
func TestRespond_SameSlotDoesNotCapture(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		_, appt := seedPending(t, tx)
		sameDate, sameTime := appt.Date, appt.Time

		got, err := Respond(tx, lawyerActor(uuid.New()), appt.ID, RespondInput{
			Status:  models.AppointmentAccepted,
			NewDate: &sameDate,
			NewTime: &sameTime,
		})
		require.NoError(t, err)
		assert.Nil(t, got.OriginalDate)
		assert.Nil(t, got.OriginalTime)
	})
}

func TestRespond_NotFound(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		_, err := Respond(tx, lawyerActor(uuid.New()), uuid.New(), RespondInput{
			Status: models.AppointmentAccepted,
		})
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})
}
