package models

import (
	"context"
	"errors"
	"time"

	"github.com/adstrategic/addinvoice/config"
	"github.com/adstrategic/addinvoice/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Invoice struct {
	ID          int    `gorm:"primary_key" json:"id"`
	WorkspaceId string `gorm:"size:64;index;not null;uniqueIndex:uix_invoices_workspace_sequence,priority:1" json:"workspace_id"`
	Sequence    int    `gorm:"not null;uniqueIndex:uix_invoices_workspace_sequence,priority:2" json:"sequence"`
	BusinessId  int    `gorm:"index;not null" json:"business_id" binding:"required"`
	ClientId    int    `gorm:"index;not null" json:"client_id" binding:"required"`

	// Per-invoice overrides of the client's contact fields. Nil means "use the
	// client record"; the client itself is never mutated through an invoice.
	ClientBusinessName *string `gorm:"size:255" json:"client_business_name"`
	ClientEmail        *string `gorm:"size:255" json:"client_email"`
	ClientPhone        *string `gorm:"size:64" json:"client_phone"`
	ClientAddress      *string `gorm:"type:text" json:"client_address"`
	ClientTaxId        *string `gorm:"size:100" json:"client_tax_id"`

	IssueDate time.Time  `gorm:"not null" json:"issue_date" binding:"required"`
	DueDate   *time.Time `gorm:"index" json:"due_date"`
	Notes     string     `gorm:"type:text" json:"notes"`
	Terms     string     `gorm:"type:text" json:"terms"`

	Discount      decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"discount"`
	DiscountType  DiscountType     `gorm:"size:16;not null;default:'NONE'" json:"discount_type"`
	TaxMode       TaxMode          `gorm:"size:16;not null;default:'NONE'" json:"tax_mode"`
	TaxName       *string          `gorm:"size:100" json:"tax_name"`
	TaxPercentage *decimal.Decimal `gorm:"type:decimal(20,4)" json:"tax_percentage"`

	Subtotal decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	TotalTax decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_tax"`
	Total    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	Balance  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance"`

	Status   InvoiceStatus `gorm:"size:16;not null;default:'DRAFT'" json:"status"`
	SentAt   *time.Time    `json:"sent_at"`
	ViewedAt *time.Time    `json:"viewed_at"`
	PaidAt   *time.Time    `json:"paid_at"`

	Business *Business     `gorm:"foreignKey:BusinessId" json:"business,omitempty"`
	Client   *Client       `gorm:"foreignKey:ClientId" json:"client,omitempty"`
	Items    []InvoiceItem `gorm:"foreignKey:InvoiceId" json:"items,omitempty"`
	Payments []Payment     `gorm:"foreignKey:InvoiceId" json:"payments,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type NewInvoice struct {
	BusinessId int `json:"business_id" binding:"required"`
	ClientId   int `json:"client_id" binding:"required"`

	ClientBusinessName *string `json:"client_business_name"`
	ClientEmail        *string `json:"client_email"`
	ClientPhone        *string `json:"client_phone"`
	ClientAddress      *string `json:"client_address"`
	ClientTaxId        *string `json:"client_tax_id"`

	IssueDate time.Time  `json:"issue_date" binding:"required"`
	DueDate   *time.Time `json:"due_date"`
	Notes     string     `json:"notes"`
	Terms     string     `json:"terms"`

	Discount      decimal.Decimal  `json:"discount"`
	DiscountType  DiscountType     `json:"discount_type"`
	TaxMode       TaxMode          `json:"tax_mode"`
	TaxName       *string          `json:"tax_name"`
	TaxPercentage *decimal.Decimal `json:"tax_percentage"`

	Items []NewInvoiceItem `json:"items"`
}

type UpdateInvoiceInput struct {
	ClientId *int `json:"client_id"`

	ClientBusinessName *string `json:"client_business_name"`
	ClientEmail        *string `json:"client_email"`
	ClientPhone        *string `json:"client_phone"`
	ClientAddress      *string `json:"client_address"`
	ClientTaxId        *string `json:"client_tax_id"`

	IssueDate *time.Time `json:"issue_date"`
	DueDate   *time.Time `json:"due_date"`
	Notes     *string    `json:"notes"`
	Terms     *string    `json:"terms"`

	Discount      *decimal.Decimal `json:"discount"`
	DiscountType  *DiscountType    `json:"discount_type"`
	TaxMode       *TaxMode         `json:"tax_mode"`
	TaxName       *string          `json:"tax_name"`
	TaxPercentage *decimal.Decimal `json:"tax_percentage"`
}

// validateInvoiceSettings enforces the discount/tax field invariants:
// discount > 0 requires a discount type, NONE requires discount == 0, and
// taxName/taxPercentage travel together with BY_TOTAL only.
func validateInvoiceSettings(discount decimal.Decimal, discountType DiscountType, taxMode TaxMode, taxName *string, taxPercentage *decimal.Decimal) error {
	if !discountType.Valid() {
		return utils.ValidationError("invalid discount type")
	}
	if !taxMode.Valid() {
		return utils.ValidationError("invalid tax mode")
	}
	if discountType == DiscountTypeNone && !discount.IsZero() {
		return utils.ValidationError("discount must be 0 when discount type is NONE")
	}
	if discountType != DiscountTypeNone && !discount.GreaterThan(decimal.Zero) {
		return utils.ValidationError("discount must be positive for the chosen discount type")
	}
	if taxMode == TaxModeByTotal {
		if taxName == nil || *taxName == "" || taxPercentage == nil {
			return utils.ValidationError("tax name and percentage are required for BY_TOTAL tax mode")
		}
	} else {
		if taxName != nil || taxPercentage != nil {
			return utils.ValidationError("tax name and percentage are only allowed for BY_TOTAL tax mode")
		}
	}
	return nil
}

func (inv *Invoice) taxPercentageOrZero() decimal.Decimal {
	if inv.TaxPercentage != nil {
		return *inv.TaxPercentage
	}
	return decimal.Zero
}

func (inv *Invoice) itemLines() []ItemLine {
	lines := make([]ItemLine, len(inv.Items))
	for i, item := range inv.Items {
		lines[i] = item.line()
	}
	return lines
}

// activePaymentsSum sums non-deleted payment amounts within the transaction.
func activePaymentsSum(tx *gorm.DB, ctx context.Context, invoiceId int) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := tx.WithContext(ctx).Model(&Payment{}).
		Where("invoice_id = ?", invoiceId).
		Select("SUM(amount)").
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// recomputeInvoice re-derives every computed money field from the invoice's
// current items, settings and payments, and persists the results. Must run
// inside the mutating transaction so no request observes a half-updated
// invoice. Item totals are rewritten too: a tax mode change shifts where tax
// lands on every line.
func recomputeInvoice(tx *gorm.DB, ctx context.Context, invoice *Invoice) error {

	var items []InvoiceItem
	if err := tx.WithContext(ctx).
		Where("invoice_id = ?", invoice.ID).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return err
	}
	invoice.Items = items

	for i := range items {
		amounts := ComputeItemAmounts(items[i].line(), invoice.TaxMode)
		total := amounts.Total.Round(2)
		if !items[i].Total.Equal(total) {
			if err := tx.WithContext(ctx).Model(&items[i]).Update("total", total).Error; err != nil {
				return err
			}
			items[i].Total = total
		}
	}

	paymentsSum, err := activePaymentsSum(tx, ctx, invoice.ID)
	if err != nil {
		return err
	}

	totals := ComputeInvoiceTotals(
		invoice.itemLines(),
		invoice.Discount,
		invoice.DiscountType,
		invoice.TaxMode,
		invoice.taxPercentageOrZero(),
		paymentsSum,
	)

	invoice.Subtotal = totals.Subtotal
	invoice.TotalTax = totals.TotalTax
	invoice.Total = totals.Total
	invoice.Balance = totals.Balance

	return tx.WithContext(ctx).Model(invoice).Updates(map[string]interface{}{
		"subtotal":  totals.Subtotal,
		"total_tax": totals.TotalTax,
		"total":     totals.Total,
		"balance":   totals.Balance,
	}).Error
}

// fetchInvoiceForUpdate locks the invoice row for the remainder of the
// transaction. Workspace scoping happens here; a miss is NotFound regardless
// of whether the invoice exists elsewhere.
func fetchInvoiceForUpdate(tx *gorm.DB, ctx context.Context, workspaceId string, id int) (*Invoice, error) {
	var invoice Invoice
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("workspace_id = ?", workspaceId).
		First(&invoice, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func CreateInvoice(ctx context.Context, workspaceId string, input *NewInvoice) (*Invoice, error) {
	return retryOnSequenceConflict(func() (*Invoice, error) {
		return createInvoice(ctx, workspaceId, input)
	})
}

func createInvoice(ctx context.Context, workspaceId string, input *NewInvoice) (*Invoice, error) {
	db := config.GetDB()

	if err := utils.ValidateResourceId[Business](ctx, workspaceId, input.BusinessId); err != nil {
		return nil, utils.NotFoundError("business not found")
	}
	if err := utils.ValidateResourceId[Client](ctx, workspaceId, input.ClientId); err != nil {
		return nil, utils.NotFoundError("client not found")
	}

	discountType := input.DiscountType
	if discountType == "" {
		discountType = DiscountTypeNone
	}
	taxMode := input.TaxMode
	if taxMode == "" {
		taxMode = TaxModeNone
	}
	if err := validateInvoiceSettings(input.Discount, discountType, taxMode, input.TaxName, input.TaxPercentage); err != nil {
		return nil, err
	}
	for _, item := range input.Items {
		if err := item.validate(ctx, workspaceId); err != nil {
			return nil, err
		}
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

	sequence, err := NextSequence(tx, ctx, workspaceId, SequenceKindInvoice)
	if err != nil {
		return nil, err
	}

	invoice := Invoice{
		WorkspaceId:        workspaceId,
		Sequence:           sequence,
		BusinessId:         input.BusinessId,
		ClientId:           input.ClientId,
		ClientBusinessName: input.ClientBusinessName,
		ClientEmail:        input.ClientEmail,
		ClientPhone:        input.ClientPhone,
		ClientAddress:      input.ClientAddress,
		ClientTaxId:        input.ClientTaxId,
		IssueDate:          input.IssueDate,
		DueDate:            input.DueDate,
		Notes:              input.Notes,
		Terms:              input.Terms,
		Discount:           input.Discount,
		DiscountType:       discountType,
		TaxMode:            taxMode,
		TaxName:            input.TaxName,
		TaxPercentage:      input.TaxPercentage,
		Status:             InvoiceStatusDraft,
	}
	if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, err
	}

	for _, itemInput := range input.Items {
		item := itemInput.toItem(invoice.ID)
		if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
			return nil, err
		}
	}

	if err := recomputeInvoice(tx, ctx, &invoice); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	invoice.projectEffectiveStatus(time.Now().UTC())
	return &invoice, nil
}

// projectEffectiveStatus applies the read-time OVERDUE projection before an
// invoice leaves this package. The stored row is never rewritten.
func (inv *Invoice) projectEffectiveStatus(now time.Time) {
	duePassed := inv.DueDate != nil && inv.DueDate.Before(now)
	inv.Status = EffectiveStatus(inv.Status, duePassed)
}

// GetInvoiceBySequence loads one invoice with its associations. The sequence
// is the external identity used in URLs.
func GetInvoiceBySequence(ctx context.Context, workspaceId string, sequence int) (*Invoice, error) {
	db := config.GetDB()

	var invoice Invoice
	err := db.WithContext(ctx).
		Where("workspace_id = ? AND sequence = ?", workspaceId, sequence).
		Preload("Items").
		Preload("Payments").
		Preload("Client").
		Preload("Business").
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	invoice.projectEffectiveStatus(time.Now().UTC())
	return &invoice, nil
}

func GetInvoice(ctx context.Context, workspaceId string, id int) (*Invoice, error) {
	invoice, err := utils.FetchModel[Invoice](ctx, workspaceId, id)
	if err != nil {
		return nil, err
	}
	invoice.projectEffectiveStatus(time.Now().UTC())
	return invoice, nil
}

func UpdateInvoice(ctx context.Context, workspaceId string, id int, input *UpdateInvoiceInput) (*Invoice, error) {
	db := config.GetDB()

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	invoice, err := fetchInvoiceForUpdate(tx, ctx, workspaceId, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == InvoiceStatusPaid {
		return nil, utils.ValidationError("paid invoices cannot be edited")
	}

	if input.ClientId != nil && *input.ClientId != invoice.ClientId {
		if err := utils.ValidateResourceId[Client](ctx, workspaceId, *input.ClientId); err != nil {
			return nil, utils.NotFoundError("client not found")
		}
		invoice.ClientId = *input.ClientId
	}

	if input.ClientBusinessName != nil {
		invoice.ClientBusinessName = input.ClientBusinessName
	}
	if input.ClientEmail != nil {
		invoice.ClientEmail = input.ClientEmail
	}
	if input.ClientPhone != nil {
		invoice.ClientPhone = input.ClientPhone
	}
	if input.ClientAddress != nil {
		invoice.ClientAddress = input.ClientAddress
	}
	if input.ClientTaxId != nil {
		invoice.ClientTaxId = input.ClientTaxId
	}
	if input.IssueDate != nil {
		invoice.IssueDate = *input.IssueDate
	}
	if input.DueDate != nil {
		invoice.DueDate = input.DueDate
	}
	if input.Notes != nil {
		invoice.Notes = *input.Notes
	}
	if input.Terms != nil {
		invoice.Terms = *input.Terms
	}

	settingsChanged := false
	if input.Discount != nil {
		invoice.Discount = *input.Discount
		settingsChanged = true
	}
	if input.DiscountType != nil {
		invoice.DiscountType = *input.DiscountType
		settingsChanged = true
	}
	if input.TaxMode != nil {
		invoice.TaxMode = *input.TaxMode
		// Leaving BY_TOTAL drops the invoice-level tax settings.
		if invoice.TaxMode != TaxModeByTotal {
			invoice.TaxName = nil
			invoice.TaxPercentage = nil
		}
		settingsChanged = true
	}
	if input.TaxName != nil {
		invoice.TaxName = input.TaxName
		settingsChanged = true
	}
	if input.TaxPercentage != nil {
		invoice.TaxPercentage = input.TaxPercentage
		settingsChanged = true
	}
	if settingsChanged {
		if err := validateInvoiceSettings(invoice.Discount, invoice.DiscountType, invoice.TaxMode, invoice.TaxName, invoice.TaxPercentage); err != nil {
			return nil, err
		}
	}

	if err := tx.WithContext(ctx).Save(invoice).Error; err != nil {
		return nil, err
	}
	if err := recomputeInvoice(tx, ctx, invoice); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	invoice.projectEffectiveStatus(time.Now().UTC())
	return invoice, nil
}

// DeleteInvoice soft-deletes. Drafts delete freely; a non-draft invoice with
// recorded active payments is immutable history and blocks deletion.
func DeleteInvoice(ctx context.Context, workspaceId string, id int) error {
	db := config.GetDB()

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	invoice, err := fetchInvoiceForUpdate(tx, ctx, workspaceId, id)
	if err != nil {
		return err
	}

	if invoice.Status != InvoiceStatusDraft {
		var count int64
		if err := tx.WithContext(ctx).Model(&Payment{}).
			Where("invoice_id = ?", invoice.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return utils.ValidationError("invoice has payments and cannot be deleted")
		}
	}

	if err := tx.WithContext(ctx).Delete(invoice).Error; err != nil {
		return err
	}
	return tx.Commit().Error
}

// SendInvoice transitions DRAFT → SENT and enqueues the outbound notification
// through the outbox in the same transaction. An invoice with no items has
// nothing to send.
func SendInvoice(ctx context.Context, workspaceId string, id int) (*Invoice, error) {
	db := config.GetDB()

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	invoice, err := fetchInvoiceForUpdate(tx, ctx, workspaceId, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(invoice.Status, InvoiceStatusSent) {
		return nil, utils.ValidationError("only draft invoices can be sent")
	}

	var itemCount int64
	if err := tx.WithContext(ctx).Model(&InvoiceItem{}).
		Where("invoice_id = ?", invoice.ID).Count(&itemCount).Error; err != nil {
		return nil, err
	}
	if itemCount == 0 {
		return nil, utils.ValidationError("invoice has no items to send")
	}

	recipient, err := invoiceRecipient(tx, ctx, invoice)
	if err != nil {
		return nil, err
	}

	invoice.Status = InvoiceStatusSent
	invoice.SentAt = nowPtr()
	if err := tx.WithContext(ctx).Model(invoice).Updates(map[string]interface{}{
		"status":  invoice.Status,
		"sent_at": invoice.SentAt,
	}).Error; err != nil {
		return nil, err
	}

	if err := EnqueueNotification(ctx, tx, workspaceId, NotificationKindInvoiceSend, invoice.ID, "invoice", recipient, invoice); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	invoice.projectEffectiveStatus(time.Now().UTC())
	return invoice, nil
}

// invoiceRecipient prefers the per-invoice email override, falling back to
// the client record.
func invoiceRecipient(tx *gorm.DB, ctx context.Context, invoice *Invoice) (string, error) {
	if invoice.ClientEmail != nil && *invoice.ClientEmail != "" {
		return *invoice.ClientEmail, nil
	}
	var email string
	err := tx.WithContext(ctx).Model(&Client{}).
		Where("id = ?", invoice.ClientId).
		Select("email").Scan(&email).Error
	if err != nil {
		return "", err
	}
	return email, nil
}

func MarkInvoiceAsViewed(ctx context.Context, workspaceId string, id int) (*Invoice, error) {
	db := config.GetDB()

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	invoice, err := fetchInvoiceForUpdate(tx, ctx, workspaceId, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(invoice.Status, InvoiceStatusViewed) {
		return nil, utils.ValidationError("only sent invoices can be marked as viewed")
	}

	invoice.Status = InvoiceStatusViewed
	invoice.ViewedAt = nowPtr()
	if err := tx.WithContext(ctx).Model(invoice).Updates(map[string]interface{}{
		"status":    invoice.Status,
		"viewed_at": invoice.ViewedAt,
	}).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	invoice.projectEffectiveStatus(time.Now().UTC())
	return invoice, nil
}

func MarkInvoiceAsPaid(ctx context.Context, workspaceId string, id int) (*Invoice, error) {
	db := config.GetDB()

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	invoice, err := fetchInvoiceForUpdate(tx, ctx, workspaceId, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(invoice.Status, InvoiceStatusPaid) {
		return nil, utils.ValidationError("invoice is already paid")
	}

	invoice.Status = InvoiceStatusPaid
	invoice.PaidAt = nowPtr()
	if err := tx.WithContext(ctx).Model(invoice).Updates(map[string]interface{}{
		"status":  invoice.Status,
		"paid_at": invoice.PaidAt,
	}).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// NextInvoiceNumber is a display suggestion only; the authoritative sequence
// is assigned inside the creating transaction.
func NextInvoiceNumber(ctx context.Context, workspaceId string) (int, error) {
	return PeekNextSequence(config.GetDB(), ctx, workspaceId, SequenceKindInvoice)
}

type ListInvoicesQuery struct {
	Page   int
	Limit  int
	Search string
	Status InvoiceStatus
}

// InvoiceListStats are aggregate figures over ALL of the workspace's
// invoices, independent of the page window.
type InvoiceListStats struct {
	TotalCount     int64                   `json:"total_count"`
	CountsByStatus map[InvoiceStatus]int64 `json:"counts_by_status"`
	Revenue        decimal.Decimal         `json:"revenue"`
	Outstanding    decimal.Decimal         `json:"outstanding"`
}

type InvoiceList struct {
	Invoices []*Invoice       `json:"invoices"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
	Total    int64            `json:"total"`
	Stats    InvoiceListStats `json:"stats"`
}

func ListInvoices(ctx context.Context, workspaceId string, query ListInvoicesQuery) (*InvoiceList, error) {
	db := config.GetDB()

	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	now := time.Now().UTC()

	dbCtx := db.WithContext(ctx).Model(&Invoice{}).
		Where("invoices.workspace_id = ?", workspaceId)

	if query.Search != "" {
		like := "%" + query.Search + "%"
		dbCtx = dbCtx.
			Joins("LEFT JOIN clients ON clients.id = invoices.client_id").
			Where("clients.name LIKE ? OR clients.business_name LIKE ? OR CAST(invoices.sequence AS CHAR) LIKE ?", like, like, like)
	}

	switch query.Status {
	case "":
		// no status filter
	case InvoiceStatusOverdue:
		dbCtx = dbCtx.Where("invoices.due_date IS NOT NULL AND invoices.due_date < ? AND invoices.status != ?", now, InvoiceStatusPaid)
	case InvoiceStatusPaid:
		dbCtx = dbCtx.Where("invoices.status = ?", InvoiceStatusPaid)
	default:
		if !query.Status.Storable() {
			return nil, utils.ValidationError("invalid status filter")
		}
		// Stored-status filters exclude invoices that currently read as OVERDUE.
		dbCtx = dbCtx.Where("invoices.status = ? AND (invoices.due_date IS NULL OR invoices.due_date >= ?)", query.Status, now)
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, err
	}

	var invoices []*Invoice
	if err := dbCtx.
		Preload("Client").
		Order("invoices.sequence DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&invoices).Error; err != nil {
		return nil, err
	}

	for _, invoice := range invoices {
		invoice.projectEffectiveStatus(now)
	}

	stats, err := computeInvoiceStats(ctx, workspaceId, now)
	if err != nil {
		return nil, err
	}

	return &InvoiceList{
		Invoices: invoices,
		Page:     page,
		Limit:    limit,
		Total:    total,
		Stats:    *stats,
	}, nil
}

func computeInvoiceStats(ctx context.Context, workspaceId string, now time.Time) (*InvoiceListStats, error) {
	db := config.GetDB()

	type statusRow struct {
		Status  InvoiceStatus
		Overdue bool
		Count   int64
		Total   decimal.Decimal
		Balance decimal.Decimal
	}
	var rows []statusRow
	err := db.WithContext(ctx).Model(&Invoice{}).
		Where("workspace_id = ?", workspaceId).
		Select("status, (due_date IS NOT NULL AND due_date < ? AND status != ?) AS overdue, COUNT(*) AS count, SUM(total) AS total, SUM(balance) AS balance", now, InvoiceStatusPaid).
		Group("status, overdue").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := InvoiceListStats{
		CountsByStatus: map[InvoiceStatus]int64{},
		Revenue:        decimal.Zero,
		Outstanding:    decimal.Zero,
	}
	for _, row := range rows {
		stats.TotalCount += row.Count
		status := row.Status
		if row.Overdue {
			status = InvoiceStatusOverdue
		}
		stats.CountsByStatus[status] += row.Count
		if row.Status == InvoiceStatusPaid {
			stats.Revenue = stats.Revenue.Add(row.Total)
		} else {
			stats.Outstanding = stats.Outstanding.Add(row.Balance)
		}
	}
	return &stats, nil
}
