package models

import (
	"errors"
	"strconv"
)

type DiscountType string

const (
	DiscountTypeNone       DiscountType = "NONE"
	DiscountTypePercentage DiscountType = "PERCENTAGE"
	DiscountTypeFixed      DiscountType = "FIXED"
)

// convert enum to send response
func (t DiscountType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

// convert input to enum type
func (t *DiscountType) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("discount type must be string")
	}
	switch str {
	case "NONE":
		*t = DiscountTypeNone
	case "PERCENTAGE":
		*t = DiscountTypePercentage
	case "FIXED":
		*t = DiscountTypeFixed
	default:
		return errors.New("invalid discount type")
	}
	return nil
}

func (t DiscountType) Valid() bool {
	switch t {
	case DiscountTypeNone, DiscountTypePercentage, DiscountTypeFixed:
		return true
	}
	return false
}

type TaxMode string

const (
	TaxModeNone      TaxMode = "NONE"
	TaxModeByProduct TaxMode = "BY_PRODUCT"
	TaxModeByTotal   TaxMode = "BY_TOTAL"
)

func (t TaxMode) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

func (t *TaxMode) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("tax mode must be string")
	}
	switch str {
	case "NONE":
		*t = TaxModeNone
	case "BY_PRODUCT":
		*t = TaxModeByProduct
	case "BY_TOTAL":
		*t = TaxModeByTotal
	default:
		return errors.New("invalid tax mode")
	}
	return nil
}

func (t TaxMode) Valid() bool {
	switch t {
	case TaxModeNone, TaxModeByProduct, TaxModeByTotal:
		return true
	}
	return false
}

type InvoiceStatus string

const (
	InvoiceStatusDraft  InvoiceStatus = "DRAFT"
	InvoiceStatusSent   InvoiceStatus = "SENT"
	InvoiceStatusViewed InvoiceStatus = "VIEWED"
	InvoiceStatusPaid   InvoiceStatus = "PAID"

	// Derived at read time from dueDate; never stored.
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
)

func (t InvoiceStatus) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

func (t *InvoiceStatus) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("invoice status must be string")
	}
	statuses := map[string]InvoiceStatus{
		"DRAFT":   InvoiceStatusDraft,
		"SENT":    InvoiceStatusSent,
		"VIEWED":  InvoiceStatusViewed,
		"PAID":    InvoiceStatusPaid,
		"OVERDUE": InvoiceStatusOverdue,
	}
	var ok bool
	*t, ok = statuses[str]
	if !ok {
		return errors.New("invalid invoice status")
	}
	return nil
}

// Storable reports whether the status can be persisted. OVERDUE is a read-time
// projection only.
func (t InvoiceStatus) Storable() bool {
	switch t {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusViewed, InvoiceStatusPaid:
		return true
	}
	return false
}

type QuantityUnit string

const (
	QuantityUnitDays  QuantityUnit = "DAYS"
	QuantityUnitHours QuantityUnit = "HOURS"
	QuantityUnitUnits QuantityUnit = "UNITS"
)

func (t QuantityUnit) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

func (t *QuantityUnit) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("quantity unit must be string")
	}
	switch str {
	case "DAYS":
		*t = QuantityUnitDays
	case "HOURS":
		*t = QuantityUnitHours
	case "UNITS":
		*t = QuantityUnitUnits
	default:
		return errors.New("invalid quantity unit")
	}
	return nil
}

func (t QuantityUnit) Valid() bool {
	switch t {
	case QuantityUnitDays, QuantityUnitHours, QuantityUnitUnits:
		return true
	}
	return false
}

type SubscriptionStatus string

const (
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
)

// WritesAllowed reports whether the workspace may perform mutating operations.
// Lapsed workspaces keep read access.
func (t SubscriptionStatus) WritesAllowed() bool {
	switch t {
	case SubscriptionStatusTrialing, SubscriptionStatusActive, SubscriptionStatusPastDue:
		return true
	}
	return false
}

// SequenceKind names a per-workspace monotonic counter.
type SequenceKind string

const (
	SequenceKindBusiness    SequenceKind = "business"
	SequenceKindClient      SequenceKind = "client"
	SequenceKindCatalogItem SequenceKind = "catalog_item"
	SequenceKindInvoice     SequenceKind = "invoice"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusSending NotificationStatus = "SENDING"
	NotificationStatusSent    NotificationStatus = "SENT"
	NotificationStatusFailed  NotificationStatus = "FAILED"
	NotificationStatusDead    NotificationStatus = "DEAD"
)

type NotificationKind string

const (
	NotificationKindInvoiceSend    NotificationKind = "INVOICE_SEND"
	NotificationKindPaymentReceipt NotificationKind = "PAYMENT_RECEIPT"
)
