package profiles

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mfadhilr/lawfirm-backend/internal/auth"
	"github.com/mfadhilr/lawfirm-backend/internal/policy"
	"github.com/mfadhilr/lawfirm-backend/pkg/models"
)

// ActorFrom builds the policy actor for the authenticated request,
// resolving the superuser flag and the owned client profile (if any).
func ActorFrom(db *gorm.DB, c *fiber.Ctx) (policy.Actor, error) {
	uid, err := uuid.Parse(auth.MustUserID(c))
	if err != nil {
		return policy.Actor{}, fiber.ErrUnauthorized
	}
	a := policy.Actor{UserID: uid, Role: models.Role(auth.MustRole(c))}

	var u models.User
	if err := db.Select("is_superuser").First(&u, "id = ?", uid).Error; err == nil {
		a.IsSuperuser = u.IsSuperuser
	}
	if a.Role == models.RoleClient {
		var cl models.Client
		if err := db.Select("id").First(&cl, "user_id = ?", uid).Error; err == nil {
			a.ClientID = &cl.ID
		}
	}
	return a, nil
}
