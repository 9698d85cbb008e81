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

// InvoiceItem is one invoice line. Its Total is derived by the calculator
// under the invoice's tax mode and rewritten whenever the invoice recomputes.
// The catalog back-reference is informational only; the line carries its own
// copy of name/price so later catalog edits never change issued invoices.
type InvoiceItem struct {
	ID            int             `gorm:"primary_key" json:"id"`
	InvoiceId     int             `gorm:"index;not null" json:"invoice_id"`
	CatalogItemId *int            `gorm:"index" json:"catalog_item_id"`
	Name          string          `gorm:"size:255;not null" json:"name" binding:"required"`
	Description   string          `gorm:"type:text" json:"description"`
	Quantity      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	QuantityUnit  QuantityUnit    `gorm:"size:16;not null;default:'UNITS'" json:"quantity_unit"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Discount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount"`
	DiscountType  DiscountType    `gorm:"size:16;not null;default:'NONE'" json:"discount_type"`
	TaxPercentage decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_percentage"`
	VatEnabled    *bool           `gorm:"not null;default:false" json:"vat_enabled"`
	Total         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInvoiceItem struct {
	CatalogItemId *int            `json:"catalog_item_id"`
	Name          string          `json:"name" binding:"required"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	QuantityUnit  QuantityUnit    `json:"quantity_unit"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Discount      decimal.Decimal `json:"discount"`
	DiscountType  DiscountType    `json:"discount_type"`
	TaxPercentage decimal.Decimal `json:"tax_percentage"`
	VatEnabled    *bool           `json:"vat_enabled"`
}

type UpdateInvoiceItemInput struct {
	CatalogItemId *int             `json:"catalog_item_id"`
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Quantity      *decimal.Decimal `json:"quantity"`
	QuantityUnit  *QuantityUnit    `json:"quantity_unit"`
	UnitPrice     *decimal.Decimal `json:"unit_price"`
	Discount      *decimal.Decimal `json:"discount"`
	DiscountType  *DiscountType    `json:"discount_type"`
	TaxPercentage *decimal.Decimal `json:"tax_percentage"`
	VatEnabled    *bool            `json:"vat_enabled"`
}

func (item *InvoiceItem) line() ItemLine {
	return ItemLine{
		Quantity:      item.Quantity,
		UnitPrice:     item.UnitPrice,
		Discount:      item.Discount,
		DiscountType:  item.DiscountType,
		TaxPercentage: item.TaxPercentage,
		VatEnabled:    utils.DereferencePtr(item.VatEnabled),
	}
}

func (input NewInvoiceItem) validate(ctx context.Context, workspaceId string) error {
	discountType := input.DiscountType
	if discountType != "" && !discountType.Valid() {
		return utils.ValidationError("invalid discount type")
	}
	if input.QuantityUnit != "" && !input.QuantityUnit.Valid() {
		return utils.ValidationError("invalid quantity unit")
	}
	if discountType == DiscountTypeNone || discountType == "" {
		if !input.Discount.IsZero() {
			return utils.ValidationError("discount must be 0 when discount type is NONE")
		}
	}
	if input.CatalogItemId != nil {
		if err := utils.ValidateResourceId[CatalogItem](ctx, workspaceId, *input.CatalogItemId); err != nil {
			return utils.NotFoundError("catalog item not found")
		}
	}
	return nil
}

func (input NewInvoiceItem) toItem(invoiceId int) InvoiceItem {
	discountType := input.DiscountType
	if discountType == "" {
		discountType = DiscountTypeNone
	}
	quantityUnit := input.QuantityUnit
	if quantityUnit == "" {
		quantityUnit = QuantityUnitUnits
	}
	vatEnabled := utils.DereferencePtr(input.VatEnabled)
	return InvoiceItem{
		InvoiceId:     invoiceId,
		CatalogItemId: input.CatalogItemId,
		Name:          input.Name,
		Description:   input.Description,
		Quantity:      input.Quantity,
		QuantityUnit:  quantityUnit,
		UnitPrice:     input.UnitPrice,
		Discount:      input.Discount,
		DiscountType:  discountType,
		TaxPercentage: input.TaxPercentage,
		VatEnabled:    &vatEnabled,
	}
}

// CreateInvoiceItem appends a line and recomputes the invoice in one
// transaction.
func CreateInvoiceItem(ctx context.Context, workspaceId string, invoiceId int, input *NewInvoiceItem) (*InvoiceItem, error) {
	db := config.GetDB()

	if err := input.validate(ctx, workspaceId); err != nil {
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

	invoice, err := fetchInvoiceForUpdate(tx, ctx, workspaceId, invoiceId)
	if err != nil {
		return nil, err
	}
	if invoice.Status == InvoiceStatusPaid {
		return nil, utils.ValidationError("paid invoices cannot be edited")
	}

	item := input.toItem(invoice.ID)
	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}

	if err := recomputeInvoice(tx, ctx, invoice); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// recomputeInvoice rewrote the stored total.
	for _, updated := range invoice.Items {
		if updated.ID == item.ID {
			item = updated
			break
		}
	}
	return &item, nil
}

func fetchInvoiceItem(tx *gorm.DB, ctx context.Context, invoiceId int, itemId int) (*InvoiceItem, error) {
	var item InvoiceItem
	err := tx.WithContext(ctx).
		Where("invoice_id = ?", invoiceId).
		First(&item, itemId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &item, nil
}

func UpdateInvoiceItem(ctx context.Context, workspaceId string, invoiceId int, itemId int, input *UpdateInvoiceItemInput) (*InvoiceItem, error) {
	db := config.GetDB()

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	invoice, err := fetchInvoiceForUpdate(tx, ctx, workspaceId, invoiceId)
	if err != nil {
		return nil, err
	}
	if invoice.Status == InvoiceStatusPaid {
		return nil, utils.ValidationError("paid invoices cannot be edited")
	}

	item, err := fetchInvoiceItem(tx, ctx, invoice.ID, itemId)
	if err != nil {
		return nil, err
	}

	if input.CatalogItemId != nil {
		if err := utils.ValidateResourceId[CatalogItem](ctx, workspaceId, *input.CatalogItemId); err != nil {
			return nil, utils.NotFoundError("catalog item not found")
		}
		item.CatalogItemId = input.CatalogItemId
	}
	if input.DiscountType != nil {
		if !input.DiscountType.Valid() {
			return nil, utils.ValidationError("invalid discount type")
		}
		item.DiscountType = *input.DiscountType
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
	if input.Quantity != nil {
		item.Quantity = *input.Quantity
	}
	if input.UnitPrice != nil {
		item.UnitPrice = *input.UnitPrice
	}
	if input.Discount != nil {
		item.Discount = *input.Discount
	}
	if input.TaxPercentage != nil {
		item.TaxPercentage = *input.TaxPercentage
	}
	if input.VatEnabled != nil {
		item.VatEnabled = input.VatEnabled
	}
	if item.DiscountType == DiscountTypeNone && !item.Discount.IsZero() {
		return nil, utils.ValidationError("discount must be 0 when discount type is NONE")
	}

	if err := tx.WithContext(ctx).Save(item).Error; err != nil {
		return nil, err
	}

	if err := recomputeInvoice(tx, ctx, invoice); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	for _, updated := range invoice.Items {
		if updated.ID == item.ID {
			*item = updated
			break
		}
	}
	return item, nil
}

func DeleteInvoiceItem(ctx context.Context, workspaceId string, invoiceId int, itemId int) error {
	db := config.GetDB()

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	invoice, err := fetchInvoiceForUpdate(tx, ctx, workspaceId, invoiceId)
	if err != nil {
		return err
	}
	if invoice.Status == InvoiceStatusPaid {
		return utils.ValidationError("paid invoices cannot be edited")
	}

	item, err := fetchInvoiceItem(tx, ctx, invoice.ID, itemId)
	if err != nil {
		return err
	}

	if err := tx.WithContext(ctx).Delete(item).Error; err != nil {
		return err
	}

	if err := recomputeInvoice(tx, ctx, invoice); err != nil {
		return err
	}

	return tx.Commit().Error
}
