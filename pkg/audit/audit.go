package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mfadhilr/lawfirm-backend/pkg/models"
)

// Log inserts an audit record for a status change on a case or
// appointment. Errors are ignored on purpose (best-effort logging).
func Log(
	ctx context.Context,
	db *gorm.DB,
	entityType string,
	entityID, actorID uuid.UUID,
	action string,
	oldStatus, newStatus string,
	reason string,
) {
	_ = db.WithContext(ctx).Create(&models.AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Action:     action,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		Reason:     reason,
	}).Error
}
