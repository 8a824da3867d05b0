package progression

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/readquest/internal/entities"
	"github.com/mrlokans/readquest/internal/logger"
)

// notifier writes Notification rows as a side effect of ledger events.
// Each insert runs under its own savepoint: when it fails only the
// notification is lost, the triggering transaction carries on.
type notifier struct {
	clock    Clock
	log      *logger.Logger
	disabled bool
}

func (n *notifier) emit(tx *Tx, accountID uint, typ entities.NotificationType, title, message string, payload map[string]any) {
	if n.disabled {
		return
	}
	notification := &entities.Notification{
		Ref:       uuid.NewString(),
		AccountID: accountID,
		Type:      typ,
		Title:     title,
		Message:   message,
		CreatedAt: n.clock.Now(),
	}
	if len(payload) > 0 {
		if data, err := json.Marshal(payload); err == nil {
			notification.Payload = string(data)
		}
	}

	err := tx.DB.Transaction(func(stx *gorm.DB) error {
		return stx.Create(notification).Error
	})
	if err != nil {
		n.log.Warn("notification dropped", "account_id", accountID, "type", typ, "error", err)
		return
	}
	tx.notifications = append(tx.notifications, notification.ID)
}
