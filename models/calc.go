package models

import (
	"github.com/shopspring/decimal"
)

// Pure financial computation for invoices. These functions never touch the
// database so that recomputation can be exercised directly in unit tests;
// model code calls them from inside the mutating transaction.

var decimalOneHundred = decimal.NewFromInt(100)

// CalculateDiscountAmount returns the discount portion for the given amount.
// Percentage discounts keep 4 decimal places on the intermediate value;
// rounding to 2 places happens only at persistence.
func CalculateDiscountAmount(amount decimal.Decimal, discount decimal.Decimal, discountType DiscountType) decimal.Decimal {

	var discountAmount decimal.Decimal

	if discount.GreaterThan(decimal.Zero) {
		if discountType == DiscountTypePercentage {
			discountAmount = amount.Mul(discount).DivRound(decimalOneHundred, 4)
		} else if discountType == DiscountTypeFixed {
			discountAmount = discount
		} else {
			discountAmount = decimal.Zero
		}
	} else {
		discountAmount = decimal.Zero
	}

	return discountAmount
}

// ItemAmounts holds the computed money fields of a single line.
type ItemAmounts struct {
	Base           decimal.Decimal
	DiscountAmount decimal.Decimal
	AfterDiscount  decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// ItemLine is the calculation input for one invoice line.
type ItemLine struct {
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	Discount      decimal.Decimal
	DiscountType  DiscountType
	TaxPercentage decimal.Decimal
	VatEnabled    bool
}

// ComputeItemAmounts derives one line's amounts under the invoice's tax mode.
// Discounts are NOT clamped: a discount larger than the base legitimately
// produces a negative line, and the caller is expected to allow it.
//
// Under BY_TOTAL the line total stays tax-free (tax is levied once at the
// invoice level over vat-enabled lines); under BY_PRODUCT the line's own tax
// is folded into its total.
func ComputeItemAmounts(line ItemLine, taxMode TaxMode) ItemAmounts {
	base := line.Quantity.Mul(line.UnitPrice)
	discountAmount := CalculateDiscountAmount(base, line.Discount, line.DiscountType)
	afterDiscount := base.Sub(discountAmount)

	var taxAmount decimal.Decimal
	switch taxMode {
	case TaxModeByProduct:
		taxAmount = afterDiscount.Mul(line.TaxPercentage).DivRound(decimalOneHundred, 4)
	default:
		taxAmount = decimal.Zero
	}

	return ItemAmounts{
		Base:           base,
		DiscountAmount: discountAmount,
		AfterDiscount:  afterDiscount,
		TaxAmount:      taxAmount,
		Total:          afterDiscount.Add(taxAmount),
	}
}

// InvoiceTotals holds the computed invoice-level money fields, rounded to
// 2 decimal places for persistence.
type InvoiceTotals struct {
	Subtotal decimal.Decimal
	TotalTax decimal.Decimal
	Total    decimal.Decimal
	Balance  decimal.Decimal
}

// ComputeInvoiceTotals aggregates line amounts into the persisted invoice
// fields. It is idempotent over the same inputs.
//
// Subtotal convention: the items subtotal sums line totals, which under
// BY_PRODUCT are tax-inclusive. The persisted subtotal is that sum after
// the invoice-level discount, so under BY_PRODUCT the grand total equals the
// subtotal and TotalTax is reported separately (re-derived per line) rather
// than added on top again. Under BY_TOTAL the tax is computed over the
// vat-enabled lines and added to the discounted subtotal.
func ComputeInvoiceTotals(
	items []ItemLine,
	discount decimal.Decimal,
	discountType DiscountType,
	taxMode TaxMode,
	taxPercentage decimal.Decimal,
	paymentsSum decimal.Decimal,
) InvoiceTotals {

	itemsSubtotal := decimal.Zero
	totalTax := decimal.Zero

	for _, line := range items {
		amounts := ComputeItemAmounts(line, taxMode)
		itemsSubtotal = itemsSubtotal.Add(amounts.Total)

		switch taxMode {
		case TaxModeByProduct:
			totalTax = totalTax.Add(amounts.TaxAmount)
		case TaxModeByTotal:
			if line.VatEnabled {
				totalTax = totalTax.Add(amounts.AfterDiscount.Mul(taxPercentage).DivRound(decimalOneHundred, 4))
			}
		}
	}

	invoiceDiscountAmount := CalculateDiscountAmount(itemsSubtotal, discount, discountType)
	subtotalAfterDiscount := itemsSubtotal.Sub(invoiceDiscountAmount)

	total := subtotalAfterDiscount
	if taxMode == TaxModeByTotal {
		total = subtotalAfterDiscount.Add(totalTax)
	}

	return InvoiceTotals{
		Subtotal: subtotalAfterDiscount.Round(2),
		TotalTax: totalTax.Round(2),
		Total:    total.Round(2),
		Balance:  total.Round(2).Sub(paymentsSum.Round(2)),
	}
}

// CanTransition reports whether an explicit status change is allowed.
// PAID is terminal. OVERDUE is never stored, so it is not a valid target here.
func CanTransition(from InvoiceStatus, to InvoiceStatus) bool {
	if !to.Storable() {
		return false
	}
	if from == to {
		return false
	}
	switch to {
	case InvoiceStatusSent:
		return from == InvoiceStatusDraft
	case InvoiceStatusViewed:
		return from == InvoiceStatusSent
	case InvoiceStatusPaid:
		return from != InvoiceStatusPaid
	default:
		// No transition back to DRAFT.
		return false
	}
}

// EffectiveStatus projects the stored status for reads: a non-paid invoice
// past its due date reads as OVERDUE without being rewritten.
func EffectiveStatus(stored InvoiceStatus, dueDatePassed bool) InvoiceStatus {
	if stored != InvoiceStatusPaid && dueDatePassed {
		return InvoiceStatusOverdue
	}
	return stored
}
