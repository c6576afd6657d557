package repository

import (
	"context"
	"strings"

	"smartsahuji/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventoryRepository interface {
	Create(ctx context.Context, rec *model.InventoryRecord) error
	Save(ctx context.Context, rec *model.InventoryRecord) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error
	FindByID(ctx context.Context, ownerID, id uuid.UUID) (*model.InventoryRecord, error)
	FindByKey(ctx context.Context, ownerID uuid.UUID, key string) (*model.InventoryRecord, error)
	FindMatches(ctx context.Context, ownerID uuid.UUID, barcode, normalizedName string) ([]model.InventoryRecord, error)
	List(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]model.InventoryRecord, int64, error)
	Search(ctx context.Context, ownerID uuid.UUID, query string, offset, limit int) ([]model.InventoryRecord, int64, error)
	ListAll(ctx context.Context, ownerID uuid.UUID) ([]model.InventoryRecord, error)
	LowStock(ctx context.Context, ownerID uuid.UUID) ([]model.InventoryRecord, error)
	ApplyDelta(ctx context.Context, ownerID, id uuid.UUID, updates map[string]interface{}) error
	DecrementStock(ctx context.Context, ownerID, id uuid.UUID, qty int) (bool, error)
	Owners(ctx context.Context) ([]uuid.UUID, error)
}

type inventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) Create(ctx context.Context, rec *model.InventoryRecord) error {
	return GetDB(ctx, r.db).Create(rec).Error
}

func (r *inventoryRepository) Save(ctx context.Context, rec *model.InventoryRecord) error {
	return GetDB(ctx, r.db).Save(rec).Error
}

func (r *inventoryRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&model.InventoryRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *inventoryRepository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("owner_id = ?", ownerID).Delete(&model.InventoryRecord{}).Error
}

func (r *inventoryRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*model.InventoryRecord, error) {
	var rec model.InventoryRecord
	if err := GetDB(ctx, r.db).Where("id = ? AND owner_id = ?", id, ownerID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *inventoryRepository) FindByKey(ctx context.Context, ownerID uuid.UUID, key string) (*model.InventoryRecord, error) {
	var rec model.InventoryRecord
	if err := GetDB(ctx, r.db).Where("owner_id = ? AND lookup_key = ?", ownerID, key).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindMatches returns every record whose barcode equals barcode or whose
// normalized name equals normalizedName. Empty arguments never match.
func (r *inventoryRepository) FindMatches(ctx context.Context, ownerID uuid.UUID, barcode, normalizedName string) ([]model.InventoryRecord, error) {
	var recs []model.InventoryRecord
	if barcode == "" && normalizedName == "" {
		return recs, nil
	}

	db := GetDB(ctx, r.db).Where("owner_id = ?", ownerID)
	switch {
	case barcode != "" && normalizedName != "":
		db = db.Where("barcode = ? OR normalized_name = ?", barcode, normalizedName)
	case barcode != "":
		db = db.Where("barcode = ?", barcode)
	default:
		db = db.Where("normalized_name = ?", normalizedName)
	}

	if err := db.Order("created_at asc").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *inventoryRepository) List(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]model.InventoryRecord, int64, error) {
	return r.page(GetDB(ctx, r.db).Model(&model.InventoryRecord{}).Where("owner_id = ?", ownerID), offset, limit)
}

func (r *inventoryRepository) Search(ctx context.Context, ownerID uuid.UUID, query string, offset, limit int) ([]model.InventoryRecord, int64, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(query))) + "%"
	db := GetDB(ctx, r.db).Model(&model.InventoryRecord{}).
		Where("owner_id = ?", ownerID).
		Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(company) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\'`, pattern, pattern, pattern)
	return r.page(db, offset, limit)
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (r *inventoryRepository) page(db *gorm.DB, offset, limit int) ([]model.InventoryRecord, int64, error) {
	var recs []model.InventoryRecord
	var total int64

	db = db.Session(&gorm.Session{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("date_bought desc").Order("created_at desc").Offset(offset).Limit(limit).Find(&recs).Error; err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

func (r *inventoryRepository) ListAll(ctx context.Context, ownerID uuid.UUID) ([]model.InventoryRecord, error) {
	var recs []model.InventoryRecord
	if err := GetDB(ctx, r.db).Where("owner_id = ?", ownerID).Order("name asc").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *inventoryRepository) LowStock(ctx context.Context, ownerID uuid.UUID) ([]model.InventoryRecord, error) {
	var recs []model.InventoryRecord
	if err := GetDB(ctx, r.db).
		Where("owner_id = ? AND min_stock > 0 AND current_stock <= min_stock", ownerID).
		Order("current_stock asc").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// ApplyDelta runs a single UPDATE; values may be gorm.Expr increments.
func (r *inventoryRepository) ApplyDelta(ctx context.Context, ownerID, id uuid.UUID, updates map[string]interface{}) error {
	res := GetDB(ctx, r.db).Model(&model.InventoryRecord{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementStock subtracts qty only while enough stock remains. It reports
// false when the guard rejected the update.
func (r *inventoryRepository) DecrementStock(ctx context.Context, ownerID, id uuid.UUID, qty int) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.InventoryRecord{}).
		Where("id = ? AND owner_id = ? AND current_stock >= ?", id, ownerID, qty).
		Update("current_stock", gorm.Expr("current_stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *inventoryRepository) Owners(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := GetDB(ctx, r.db).Model(&model.InventoryRecord{}).Distinct("owner_id").Pluck("owner_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
