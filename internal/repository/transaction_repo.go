package repository

import (
	"context"

	"smartsahuji/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *model.Transaction) error
	Save(ctx context.Context, tx *model.Transaction) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error
	FindByID(ctx context.Context, ownerID, id uuid.UUID) (*model.Transaction, error)
	List(ctx context.Context, ownerID uuid.UUID, kind string, offset, limit int) ([]model.Transaction, int64, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *model.Transaction) error {
	return GetDB(ctx, r.db).Create(tx).Error
}

func (r *transactionRepository) Save(ctx context.Context, tx *model.Transaction) error {
	return GetDB(ctx, r.db).Save(tx).Error
}

func (r *transactionRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&model.Transaction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *transactionRepository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("owner_id = ?", ownerID).Delete(&model.Transaction{}).Error
}

func (r *transactionRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*model.Transaction, error) {
	var tx model.Transaction
	if err := GetDB(ctx, r.db).Where("id = ? AND owner_id = ?", id, ownerID).First(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// List pages through an owner's transactions, newest first. An empty kind
// means all kinds.
func (r *transactionRepository) List(ctx context.Context, ownerID uuid.UUID, kind string, offset, limit int) ([]model.Transaction, int64, error) {
	var txs []model.Transaction
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Transaction{}).Where("owner_id = ?", ownerID)
	if kind != "" {
		db = db.Where("item_type = ?", kind)
	}
	db = db.Session(&gorm.Session{})

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("transaction_date desc").Order("created_at desc").Offset(offset).Limit(limit).Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}
