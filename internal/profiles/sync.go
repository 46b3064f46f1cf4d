package profiles

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mfadhilr/lawfirm-backend/pkg/apperr"
	"github.com/mfadhilr/lawfirm-backend/pkg/models"
)

/* ============================ Normalization ============================= */

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeName trims and capitalizes each whitespace-separated token
// ("john  DOE" -> "John Doe"). Rune-aware, so "élodie" becomes "Élodie".
func NormalizeName(s string) string {
	parts := strings.Fields(s)
	for i, p := range parts {
		r, size := utf8.DecodeRuneInString(p)
		parts[i] = string(unicode.ToUpper(r)) + strings.ToLower(p[size:])
	}
	return strings.Join(parts, " ")
}

// SplitName splits a full name on the first space into first/last parts.
func SplitName(name string) (first, last string) {
	first, last, _ = strings.Cut(name, " ")
	return first, last
}

/* =========================== Account helpers ============================ */

// deriveUsername takes the local part of the email and appends _1, _2, ...
// until the username is free.
func deriveUsername(tx *gorm.DB, email string) (string, error) {
	base, _, _ := strings.Cut(email, "@")
	candidate := base
	for i := 1; ; i++ {
		var cnt int64
		if err := tx.Model(&models.User{}).Where("username = ?", candidate).Count(&cnt).Error; err != nil {
			return "", apperr.Integrity("username lookup", err)
		}
		if cnt == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
}

// createAccountFor builds a fresh active account for a standalone profile.
// The password is a random unguessable placeholder until the owner sets one.
func createAccountFor(tx *gorm.DB, email, name string, role models.Role) (*models.User, error) {
	username, err := deriveUsername(tx, email)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Integrity("password placeholder", err)
	}
	first, last := SplitName(name)
	u := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    first,
		LastName:     last,
		Role:         role,
		IsActive:     true,
	}
	if err := tx.Create(&u).Error; err != nil {
		return nil, apperr.Integrity("create account", err)
	}
	return &u, nil
}

// reconcileAccount pushes the profile's normalized email onto the linked
// account and fills empty first/last names from the profile name.
func reconcileAccount(tx *gorm.DB, userID uuid.UUID, email, name string) error {
	var u models.User
	if err := tx.First(&u, "id = ?", userID).Error; err != nil {
		return apperr.Integrity("load account", err)
	}
	dirty := false
	if u.Email != email {
		u.Email = email
		dirty = true
	}
	if u.FirstName == "" && u.LastName == "" {
		u.FirstName, u.LastName = SplitName(name)
		dirty = true
	}
	if dirty {
		if err := tx.Save(&u).Error; err != nil {
			return apperr.Integrity("save account", err)
		}
	}
	return nil
}

/* ============================== Save paths ============================== */

// SaveClient creates or updates a client profile and keeps the linked
// account consistent, all inside one transaction. A client created with no
// account gets one derived from its email.
func SaveClient(db *gorm.DB, cl *models.Client) error {
	cl.Email = NormalizeEmail(cl.Email)
	if cl.Email == "" {
		return apperr.Validation("email", "email_required", "Email is required")
	}
	cl.Name = NormalizeName(cl.Name)
	if cl.Name == "" {
		return apperr.Validation("name", "name_required", "Name is required")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		dup := tx.Model(&models.Client{}).Where("email = ?", cl.Email)
		if cl.ID != uuid.Nil {
			dup = dup.Where("id <> ?", cl.ID)
		}
		var cnt int64
		if err := dup.Count(&cnt).Error; err != nil {
			return apperr.Integrity("client email check", err)
		}
		if cnt > 0 {
			return apperr.Validation("email", "duplicate_email", "A client with this email already exists")
		}

		if cl.ID == uuid.Nil && cl.UserID == nil {
			u, err := createAccountFor(tx, cl.Email, cl.Name, models.RoleClient)
			if err != nil {
				return err
			}
			cl.UserID = &u.ID
		}

		if err := tx.Save(cl).Error; err != nil {
			return apperr.Integrity("save client", err)
		}

		if cl.UserID != nil {
			return reconcileAccount(tx, *cl.UserID, cl.Email, cl.Name)
		}
		return nil
	})
}

// SaveLawyer creates or updates a lawyer profile. Lawyers always hang off a
// pre-existing account, passed in via lw.UserID.
func SaveLawyer(db *gorm.DB, lw *models.Lawyer) error {
	lw.Email = NormalizeEmail(lw.Email)
	if lw.Email == "" {
		return apperr.Validation("email", "email_required", "Email is required")
	}
	lw.Name = NormalizeName(lw.Name)
	if lw.Name == "" {
		return apperr.Validation("name", "name_required", "Name is required")
	}
	if lw.UserID == uuid.Nil {
		return apperr.Validation("user_id", "account_required", "A lawyer profile requires an existing account")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		dup := tx.Model(&models.Lawyer{}).Where("email = ?", lw.Email)
		if lw.ID != uuid.Nil {
			dup = dup.Where("id <> ?", lw.ID)
		}
		var cnt int64
		if err := dup.Count(&cnt).Error; err != nil {
			return apperr.Integrity("lawyer email check", err)
		}
		if cnt > 0 {
			return apperr.Validation("email", "duplicate_email", "A lawyer with this email already exists")
		}

		if err := tx.Save(lw).Error; err != nil {
			return apperr.Integrity("save lawyer", err)
		}

		return reconcileAccount(tx, lw.UserID, lw.Email, lw.Name)
	})
}

/* ============================= Delete paths ============================= */

// DeleteClient removes a client profile with its cases, documents and
// appointments, then removes the linked account unless a lawyer profile
// still hangs off it. The cascade is a deliberate explicit check, not an
// FK rule: the account must survive while any sibling profile exists.
//
// The returned keys belong to the deleted document rows; callers hand them
// to storage for best-effort blob cleanup after the commit.
func DeleteClient(db *gorm.DB, cl *models.Client) ([]string, error) {
	var orphanedKeys []string
	err := db.Transaction(func(tx *gorm.DB) error {
		var caseIDs []uuid.UUID
		if err := tx.Model(&models.Case{}).Where("client_id = ?", cl.ID).Pluck("id", &caseIDs).Error; err != nil {
			return apperr.Integrity("list client cases", err)
		}
		if len(caseIDs) > 0 {
			if err := tx.Model(&models.Document{}).Where("case_id IN ?", caseIDs).
				Pluck("key", &orphanedKeys).Error; err != nil {
				return apperr.Integrity("list case documents", err)
			}
			if err := tx.Where("case_id IN ?", caseIDs).Delete(&models.Document{}).Error; err != nil {
				return apperr.Integrity("delete case documents", err)
			}
			if err := tx.Where("id IN ?", caseIDs).Delete(&models.Case{}).Error; err != nil {
				return apperr.Integrity("delete cases", err)
			}
		}
		if err := tx.Where("client_id = ?", cl.ID).Delete(&models.Appointment{}).Error; err != nil {
			return apperr.Integrity("delete appointments", err)
		}
		if err := tx.Delete(&models.Client{}, "id = ?", cl.ID).Error; err != nil {
			return apperr.Integrity("delete client", err)
		}

		if cl.UserID == nil {
			return nil
		}
		var siblings int64
		if err := tx.Model(&models.Lawyer{}).Where("user_id = ?", *cl.UserID).Count(&siblings).Error; err != nil {
			return apperr.Integrity("sibling profile check", err)
		}
		if siblings == 0 {
			if err := tx.Delete(&models.User{}, "id = ?", *cl.UserID).Error; err != nil {
				return apperr.Integrity("delete account", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orphanedKeys, nil
}

// DeleteLawyer removes a lawyer profile, detaches the lawyer from cases and
// appointments, and removes the account unless a client profile remains.
func DeleteLawyer(db *gorm.DB, lw *models.Lawyer) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Case{}).Where("lawyer_id = ?", lw.UserID).
			Update("lawyer_id", nil).Error; err != nil {
			return apperr.Integrity("detach lawyer from cases", err)
		}
		if err := tx.Model(&models.Appointment{}).Where("lawyer_id = ?", lw.UserID).
			Update("lawyer_id", nil).Error; err != nil {
			return apperr.Integrity("detach lawyer from appointments", err)
		}
		if err := tx.Delete(&models.Lawyer{}, "id = ?", lw.ID).Error; err != nil {
			return apperr.Integrity("delete lawyer", err)
		}

		var siblings int64
		if err := tx.Model(&models.Client{}).Where("user_id = ?", lw.UserID).Count(&siblings).Error; err != nil {
			return apperr.Integrity("sibling profile check", err)
		}
		if siblings == 0 {
			if err := tx.Delete(&models.User{}, "id = ?", lw.UserID).Error; err != nil {
				return apperr.Integrity("delete account", err)
			}
		}
		return nil
	})
}
