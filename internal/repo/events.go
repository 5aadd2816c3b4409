package repo

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/veritas_shop/internal/models"
)

// ClaimEvent records a provider event id in the ledger. It reports false when
// the id is already there, meaning the event was applied before.
func (r *GormRepo) ClaimEvent(ctx context.Context, eventID, eventType, outcome string) (bool, error) {
	ev := models.ProcessedEvent{
		EventID:     eventID,
		EventType:   eventType,
		Outcome:     outcome,
		ProcessedAt: time.Now().UTC(),
	}
	res := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&ev)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) SetEventOutcome(ctx context.Context, eventID, outcome string) error {
	return r.DB.WithContext(ctx).Model(&models.ProcessedEvent{}).
		Where("event_id = ?", eventID).Update("outcome", outcome).Error
}

func (r *GormRepo) GetProcessedEvent(ctx context.Context, eventID string) (*models.ProcessedEvent, error) {
	var ev models.ProcessedEvent
	if err := r.DB.WithContext(ctx).Where("event_id = ?", eventID).First(&ev).Error; err != nil {
		return nil, err
	}
	return &ev, nil
}
