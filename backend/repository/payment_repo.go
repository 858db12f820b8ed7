package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/models"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreateIfAbsent stores the payment keyed by gateway payment ID and returns
// the stored row, which is the earlier one when the ID was already recorded.
func (r *PaymentRepository) CreateIfAbsent(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "payment_id"}},
			DoNothing: true,
		}).
		Create(p).Error
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	var stored models.Payment
	if err := r.db.WithContext(ctx).Where("payment_id = ?", p.PaymentID).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &stored, nil
}
