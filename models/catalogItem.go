package models

import (
	"context"
	"time"

	"github.com/adstrategic/addinvoice/config"
	"github.com/adstrategic/addinvoice/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogItem is a reusable product/service template. Invoice items may keep
// a back-reference to it; once referenced, the item's business may not change
// and the item may not be deleted (referential lock).
type CatalogItem struct {
	ID           int             `gorm:"primary_key" json:"id"`
	WorkspaceId  string          `gorm:"size:64;index;not null;uniqueIndex:uix_catalog_items_workspace_sequence,priority:1" json:"workspace_id"`
	BusinessId   int             `gorm:"index;not null" json:"business_id" binding:"required"`
	Sequence     int             `gorm:"not null;uniqueIndex:uix_catalog_items_workspace_sequence,priority:2" json:"sequence"`
	Name         string          `gorm:"size:255;not null" json:"name" binding:"required"`
	Description  string          `gorm:"type:text" json:"description"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	QuantityUnit QuantityUnit    `gorm:"size:16;not null;default:'UNITS'" json:"quantity_unit"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

type NewCatalogItem struct {
	BusinessId   int             `json:"business_id" binding:"required"`
	Name         string          `json:"name" binding:"required"`
	Description  string          `json:"description"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	QuantityUnit QuantityUnit    `json:"quantity_unit"`
}

type UpdateCatalogItemInput struct {
	BusinessId   *int             `json:"business_id"`
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	QuantityUnit *QuantityUnit    `json:"quantity_unit"`
}

// catalogItemInUse reports whether any invoice item references the catalog item.
func catalogItemInUse(ctx context.Context, workspaceId string, id int) (bool, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&InvoiceItem{}).
		Where("catalog_item_id = ?", id).
		Joins("JOIN invoices ON invoices.id = invoice_items.invoice_id AND invoices.workspace_id = ?", workspaceId).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func CreateCatalogItem(ctx context.Context, workspaceId string, input *NewCatalogItem) (*CatalogItem, error) {
	return retryOnSequenceConflict(func() (*CatalogItem, error) {
		return createCatalogItem(ctx, workspaceId, input)
	})
}

func createCatalogItem(ctx context.Context, workspaceId string, input *NewCatalogItem) (*CatalogItem, error) {
	db := config.GetDB()

	if err := utils.ValidateResourceId[Business](ctx, workspaceId, input.BusinessId); err != nil {
		return nil, utils.NotFoundError("business not found")
	}
	quantityUnit := input.QuantityUnit
	if quantityUnit == "" {
		quantityUnit = QuantityUnitUnits
	}
	if !quantityUnit.Valid() {
		return nil, utils.ValidationError("invalid quantity unit")
	}

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	sequence, err := NextSequence(tx, ctx, workspaceId, SequenceKindCatalogItem)
	if err != nil {
		return nil, err
	}

	item := CatalogItem{
		WorkspaceId:  workspaceId,
		BusinessId:   input.BusinessId,
		Sequence:     sequence,
		Name:         input.Name,
		Description:  input.Description,
		UnitPrice:    input.UnitPrice,
		QuantityUnit: quantityUnit,
	}
	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func GetCatalogItems(ctx context.Context, workspaceId string) ([]*CatalogItem, error) {
	return utils.FetchAllModels[CatalogItem](ctx, workspaceId)
}

func GetCatalogItem(ctx context.Context, workspaceId string, id int) (*CatalogItem, error) {
	return utils.FetchModel[CatalogItem](ctx, workspaceId, id)
}

func UpdateCatalogItem(ctx context.Context, workspaceId string, id int, input *UpdateCatalogItemInput) (*CatalogItem, error) {
	db := config.GetDB()

	item, err := utils.FetchModel[CatalogItem](ctx, workspaceId, id)
	if err != nil {
		return nil, err
	}

	if input.BusinessId != nil && *input.BusinessId != item.BusinessId {
		inUse, err := catalogItemInUse(ctx, workspaceId, id)
		if err != nil {
			return nil, err
		}
		if inUse {
			return nil, utils.ValidationError("catalog item is used by invoices; business cannot be changed")
		}
		if err := utils.ValidateResourceId[Business](ctx, workspaceId, *input.BusinessId); err != nil {
			return nil, utils.NotFoundError("business not found")
		}
		item.BusinessId = *input.BusinessId
	}

	if input.QuantityUnit != nil {
		if !input.QuantityUnit.Valid() {
			return nil, utils.ValidationError("invalid quantity unit")
		}
		item.QuantityUnit = *input.QuantityUnit
	}
	if input.Name != nil {
		item.Name = *input.Name
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.UnitPrice != nil {
		item.UnitPrice = *input.UnitPrice
	}

	if err := db.WithContext(ctx).Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func DeleteCatalogItem(ctx context.Context, workspaceId string, id int) error {
	db := config.GetDB()

	item, err := utils.FetchModel[CatalogItem](ctx, workspaceId, id)
	if err != nil {
		return err
	}

	inUse, err := catalogItemInUse(ctx, workspaceId, id)
	if err != nil {
		return err
	}
	if inUse {
		return utils.ValidationError("catalog item is used by invoices and cannot be deleted")
	}

	return db.WithContext(ctx).Delete(item).Error
}
