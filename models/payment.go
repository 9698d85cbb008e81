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

// Payment is one ledger entry against an invoice. The workspace id is
// denormalized from the invoice so receipts can be fetched without a join.
// Rows are soft-deleted; only active rows count toward the balance.
type Payment struct {
	ID            int             `gorm:"primary_key" json:"id"`
	WorkspaceId   string          `gorm:"size:64;index;not null" json:"workspace_id"`
	InvoiceId     int             `gorm:"index;not null" json:"invoice_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount" binding:"required"`
	Method        string          `gorm:"size:100" json:"method"`
	TransactionId *string         `gorm:"size:255" json:"transaction_id"`
	Details       string          `gorm:"type:text" json:"details"`
	PaidAt        time.Time       `gorm:"not null" json:"paid_at" binding:"required"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}

type NewPayment struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Method        string          `json:"method"`
	TransactionId *string         `json:"transaction_id"`
	Details       string          `json:"details"`
	PaidAt        time.Time       `json:"paid_at" binding:"required"`
}

type UpdatePaymentInput struct {
	Amount        *decimal.Decimal `json:"amount"`
	Method        *string          `json:"method"`
	TransactionId *string          `json:"transaction_id"`
	Details       *string          `json:"details"`
	PaidAt        *time.Time       `json:"paid_at"`
}

func (input NewPayment) validate() error {
	if !input.Amount.GreaterThan(decimal.Zero) {
		return utils.ValidationError("payment amount must be positive")
	}
	return nil
}

// transitionToPaidIfSettled stamps PAID when the recomputed balance has
// reached zero. Runs inside the payment's transaction.
func transitionToPaidIfSettled(tx *gorm.DB, ctx context.Context, invoice *Invoice) error {
	if invoice.Status == InvoiceStatusPaid {
		return nil
	}
	if invoice.Balance.GreaterThan(decimal.Zero) {
		return nil
	}
	invoice.Status = InvoiceStatusPaid
	invoice.PaidAt = nowPtr()
	return tx.WithContext(ctx).Model(invoice).Updates(map[string]interface{}{
		"status":  invoice.Status,
		"paid_at": invoice.PaidAt,
	}).Error
}

// CreatePayment records a payment, recomputes the invoice and transitions it
// to PAID when settled, all in one transaction. A receipt notification is
// enqueued through the outbox; delivery happens after commit and its outcome
// never affects the ledger.
func CreatePayment(ctx context.Context, workspaceId string, invoiceId int, input *NewPayment) (*Payment, error) {
	db := config.GetDB()

	if err := input.validate(); err != nil {
		return nil, err
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

	invoice, err := fetchInvoiceForUpdate(tx, ctx, workspaceId, invoiceId)
	if err != nil {
		return nil, err
	}

	payment := Payment{
		WorkspaceId:   workspaceId,
		InvoiceId:     invoice.ID,
		Amount:        input.Amount,
		Method:        input.Method,
		TransactionId: input.TransactionId,
		Details:       input.Details,
		PaidAt:        input.PaidAt,
	}
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}

	if err := recomputeInvoice(tx, ctx, invoice); err != nil {
		return nil, err
	}
	if err := transitionToPaidIfSettled(tx, ctx, invoice); err != nil {
		return nil, err
	}

	recipient, err := invoiceRecipient(tx, ctx, invoice)
	if err != nil {
		return nil, err
	}
	if err := EnqueueNotification(ctx, tx, workspaceId, NotificationKindPaymentReceipt, payment.ID, "payment", recipient, payment); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func fetchPaymentInInvoice(tx *gorm.DB, ctx context.Context, invoiceId int, paymentId int) (*Payment, error) {
	var payment Payment
	err := tx.WithContext(ctx).
		Where("invoice_id = ?", invoiceId).
		First(&payment, paymentId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func UpdatePayment(ctx context.Context, workspaceId string, invoiceId int, paymentId int, input *UpdatePaymentInput) (*Payment, error) {
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
	payment, err := fetchPaymentInInvoice(tx, ctx, invoice.ID, paymentId)
	if err != nil {
		return nil, err
	}

	if input.Amount != nil {
		if !input.Amount.GreaterThan(decimal.Zero) {
			return nil, utils.ValidationError("payment amount must be positive")
		}
		payment.Amount = *input.Amount
	}
	if input.Method != nil {
		payment.Method = *input.Method
	}
	if input.TransactionId != nil {
		payment.TransactionId = input.TransactionId
	}
	if input.Details != nil {
		payment.Details = *input.Details
	}
	if input.PaidAt != nil {
		payment.PaidAt = *input.PaidAt
	}

	if err := tx.WithContext(ctx).Save(payment).Error; err != nil {
		return nil, err
	}

	if err := recomputeInvoice(tx, ctx, invoice); err != nil {
		return nil, err
	}
	if err := transitionToPaidIfSettled(tx, ctx, invoice); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return payment, nil
}

// DeletePayment soft-deletes a ledger entry and recomputes the balance.
// A PAID invoice stays PAID even when the deletion reopens a balance; undoing
// a settled invoice is an explicit bookkeeping decision, not a side effect.
func DeletePayment(ctx context.Context, workspaceId string, invoiceId int, paymentId int) error {
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
	payment, err := fetchPaymentInInvoice(tx, ctx, invoice.ID, paymentId)
	if err != nil {
		return err
	}

	if err := tx.WithContext(ctx).Delete(payment).Error; err != nil {
		return err
	}

	if err := recomputeInvoice(tx, ctx, invoice); err != nil {
		return err
	}

	return tx.Commit().Error
}

// GetPayment serves the receipt endpoint; the invoice and its business/client
// are loaded for the rendered document.
func GetPayment(ctx context.Context, workspaceId string, id int) (*Payment, error) {
	db := config.GetDB()

	var payment Payment
	err := db.WithContext(ctx).
		Where("workspace_id = ?", workspaceId).
		First(&payment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &payment, nil
}
