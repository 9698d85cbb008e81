package models

import (
	"context"
	"errors"
	"time"

	"github.com/adstrategic/addinvoice/config"
	"github.com/adstrategic/addinvoice/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Business is the seller entity issuing invoices. Its invoicing defaults seed
// new invoices but are never read back at recomputation time.
type Business struct {
	ID                   int              `gorm:"primary_key" json:"id"`
	WorkspaceId          string           `gorm:"size:64;index;not null;uniqueIndex:uix_businesses_workspace_sequence,priority:1" json:"workspace_id"`
	Sequence             int              `gorm:"not null;uniqueIndex:uix_businesses_workspace_sequence,priority:2" json:"sequence"`
	Name                 string           `gorm:"size:255;not null" json:"name" binding:"required"`
	Email                string           `gorm:"size:255" json:"email"`
	Phone                string           `gorm:"size:64" json:"phone"`
	Address              string           `gorm:"type:text" json:"address"`
	TaxId                string           `gorm:"size:100" json:"tax_id"`
	LogoUrl              string           `gorm:"size:512" json:"logo_url"`
	IsDefault            *bool            `gorm:"not null;default:false" json:"is_default"`
	DefaultTaxMode       TaxMode          `gorm:"size:16;not null;default:'NONE'" json:"default_tax_mode"`
	DefaultTaxName       *string          `gorm:"size:100" json:"default_tax_name"`
	DefaultTaxPercentage *decimal.Decimal `gorm:"type:decimal(20,4)" json:"default_tax_percentage"`
	DefaultNotes         string           `gorm:"type:text" json:"default_notes"`
	DefaultTerms         string           `gorm:"type:text" json:"default_terms"`
	CreatedAt            time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt            gorm.DeletedAt   `gorm:"index" json:"-"`
}

type NewBusiness struct {
	Name                 string           `json:"name" binding:"required"`
	Email                string           `json:"email"`
	Phone                string           `json:"phone"`
	Address              string           `json:"address"`
	TaxId                string           `json:"tax_id"`
	DefaultTaxMode       TaxMode          `json:"default_tax_mode"`
	DefaultTaxName       *string          `json:"default_tax_name"`
	DefaultTaxPercentage *decimal.Decimal `json:"default_tax_percentage"`
	DefaultNotes         string           `json:"default_notes"`
	DefaultTerms         string           `json:"default_terms"`
}

type UpdateBusinessInput struct {
	Name                 *string          `json:"name"`
	Email                *string          `json:"email"`
	Phone                *string          `json:"phone"`
	Address              *string          `json:"address"`
	TaxId                *string          `json:"tax_id"`
	DefaultTaxMode       *TaxMode         `json:"default_tax_mode"`
	DefaultTaxName       *string          `json:"default_tax_name"`
	DefaultTaxPercentage *decimal.Decimal `json:"default_tax_percentage"`
	DefaultNotes         *string          `json:"default_notes"`
	DefaultTerms         *string          `json:"default_terms"`
}

func (input NewBusiness) validate() error {
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return utils.ValidationError("invalid email")
	}
	if input.DefaultTaxMode != "" && !input.DefaultTaxMode.Valid() {
		return utils.ValidationError("invalid default tax mode")
	}
	return nil
}

func CreateBusiness(ctx context.Context, workspaceId string, input *NewBusiness) (*Business, error) {
	return retryOnSequenceConflict(func() (*Business, error) {
		return createBusiness(ctx, workspaceId, input)
	})
}

func createBusiness(ctx context.Context, workspaceId string, input *NewBusiness) (*Business, error) {
	db := config.GetDB()

	if err := input.validate(); err != nil {
		return nil, err
	}

	taxMode := input.DefaultTaxMode
	if taxMode == "" {
		taxMode = TaxModeNone
	}

	tx := db.Begin()
	// always rollback on early-return or panic to avoid leaking DB locks
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	sequence, err := NextSequence(tx, ctx, workspaceId, SequenceKindBusiness)
	if err != nil {
		return nil, err
	}

	// First business in the workspace becomes the default.
	var count int64
	if err := tx.WithContext(ctx).Model(&Business{}).
		Where("workspace_id = ?", workspaceId).Count(&count).Error; err != nil {
		return nil, err
	}

	isDefault := count == 0
	business := Business{
		WorkspaceId:          workspaceId,
		Sequence:             sequence,
		Name:                 input.Name,
		Email:                input.Email,
		Phone:                input.Phone,
		Address:              input.Address,
		TaxId:                input.TaxId,
		IsDefault:            &isDefault,
		DefaultTaxMode:       taxMode,
		DefaultTaxName:       input.DefaultTaxName,
		DefaultTaxPercentage: input.DefaultTaxPercentage,
		DefaultNotes:         input.DefaultNotes,
		DefaultTerms:         input.DefaultTerms,
	}

	if err := tx.WithContext(ctx).Create(&business).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &business, nil
}

func GetBusinesses(ctx context.Context, workspaceId string) ([]*Business, error) {
	return utils.FetchAllModels[Business](ctx, workspaceId)
}

func GetBusiness(ctx context.Context, workspaceId string, id int) (*Business, error) {
	return utils.FetchModel[Business](ctx, workspaceId, id)
}

func UpdateBusiness(ctx context.Context, workspaceId string, id int, input *UpdateBusinessInput) (*Business, error) {
	db := config.GetDB()

	business, err := utils.FetchModel[Business](ctx, workspaceId, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil && *input.Email != "" && !utils.IsValidEmail(*input.Email) {
		return nil, utils.ValidationError("invalid email")
	}
	if input.DefaultTaxMode != nil && !input.DefaultTaxMode.Valid() {
		return nil, utils.ValidationError("invalid default tax mode")
	}

	if input.Name != nil {
		business.Name = *input.Name
	}
	if input.Email != nil {
		business.Email = *input.Email
	}
	if input.Phone != nil {
		business.Phone = *input.Phone
	}
	if input.Address != nil {
		business.Address = *input.Address
	}
	if input.TaxId != nil {
		business.TaxId = *input.TaxId
	}
	if input.DefaultTaxMode != nil {
		business.DefaultTaxMode = *input.DefaultTaxMode
	}
	if input.DefaultTaxName != nil {
		business.DefaultTaxName = input.DefaultTaxName
	}
	if input.DefaultTaxPercentage != nil {
		business.DefaultTaxPercentage = input.DefaultTaxPercentage
	}
	if input.DefaultNotes != nil {
		business.DefaultNotes = *input.DefaultNotes
	}
	if input.DefaultTerms != nil {
		business.DefaultTerms = *input.DefaultTerms
	}

	if err := db.WithContext(ctx).Save(business).Error; err != nil {
		return nil, err
	}
	return business, nil
}

func UpdateBusinessLogo(ctx context.Context, workspaceId string, id int, logoUrl string) (*Business, error) {
	db := config.GetDB()

	business, err := utils.FetchModel[Business](ctx, workspaceId, id)
	if err != nil {
		return nil, err
	}

	business.LogoUrl = logoUrl
	if err := db.WithContext(ctx).Model(business).Update("logo_url", logoUrl).Error; err != nil {
		return nil, err
	}
	return business, nil
}

// SetDefaultBusiness marks one business as the workspace default, clearing
// the flag from the others in the same transaction.
func SetDefaultBusiness(ctx context.Context, workspaceId string, id int) (*Business, error) {
	db := config.GetDB()

	business, err := utils.FetchModel[Business](ctx, workspaceId, id)
	if err != nil {
		return nil, err
	}

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.WithContext(ctx).Model(&Business{}).
		Where("workspace_id = ? AND id != ?", workspaceId, id).
		Update("is_default", false).Error; err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Model(&Business{}).
		Where("workspace_id = ? AND id = ?", workspaceId, id).
		Update("is_default", true).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	business.IsDefault = utils.NewTrue()
	return business, nil
}

func DeleteBusiness(ctx context.Context, workspaceId string, id int) error {
	db := config.GetDB()

	business, err := utils.FetchModel[Business](ctx, workspaceId, id)
	if err != nil {
		return err
	}

	// A business with invoices keeps its history; block deletion.
	count, err := utils.ResourceCountWhere[Invoice](ctx, workspaceId, "business_id = ?", id)
	if err != nil {
		return err
	}
	if count > 0 {
		return utils.ValidationError("business has invoices and cannot be deleted")
	}

	return db.WithContext(ctx).Delete(business).Error
}

// CountBusinesses backs the BUSINESS_REQUIRED gate.
func CountBusinesses(ctx context.Context, workspaceId string) (int64, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&Business{}).
		Where("workspace_id = ?", workspaceId).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetBusinessById loads a business without tenant scoping; internal use only.
func GetBusinessById(ctx context.Context, id int) (*Business, error) {
	db := config.GetDB()
	var business Business
	if err := db.WithContext(ctx).First(&business, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &business, nil
}
