package models_test

import (
	"testing"

	"github.com/adstrategic/addinvoice/models"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeItemAmountsByProduct(t *testing.T) {
	line := models.ItemLine{
		Quantity:      dec("2"),
		UnitPrice:     dec("100"),
		Discount:      decimal.Zero,
		DiscountType:  models.DiscountTypeNone,
		TaxPercentage: dec("10"),
	}

	got := models.ComputeItemAmounts(line, models.TaxModeByProduct)

	if !got.Base.Equal(dec("200")) {
		t.Fatalf("base = %s, want 200", got.Base)
	}
	if !got.TaxAmount.Equal(dec("20")) {
		t.Fatalf("tax = %s, want 20", got.TaxAmount)
	}
	if !got.Total.Equal(dec("220")) {
		t.Fatalf("total = %s, want 220", got.Total)
	}
}

func TestComputeItemAmountsDiscounts(t *testing.T) {
	tests := []struct {
		name         string
		discount     string
		discountType models.DiscountType
		wantTotal    string
	}{
		{"no discount", "0", models.DiscountTypeNone, "200"},
		{"percentage", "25", models.DiscountTypePercentage, "150"},
		{"fixed", "50", models.DiscountTypeFixed, "150"},
		{"fixed larger than base goes negative", "250", models.DiscountTypeFixed, "-50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := models.ItemLine{
				Quantity:     dec("2"),
				UnitPrice:    dec("100"),
				Discount:     dec(tt.discount),
				DiscountType: tt.discountType,
			}
			got := models.ComputeItemAmounts(line, models.TaxModeNone)
			if !got.Total.Equal(dec(tt.wantTotal)) {
				t.Fatalf("total = %s, want %s", got.Total, tt.wantTotal)
			}
		})
	}
}

func TestComputeItemAmountsByTotalKeepsLineTaxFree(t *testing.T) {
	line := models.ItemLine{
		Quantity:      dec("3"),
		UnitPrice:     dec("40"),
		TaxPercentage: dec("10"),
		VatEnabled:    true,
	}

	got := models.ComputeItemAmounts(line, models.TaxModeByTotal)

	if !got.TaxAmount.Equal(decimal.Zero) {
		t.Fatalf("tax = %s, want 0 (tax is levied at invoice level)", got.TaxAmount)
	}
	if !got.Total.Equal(dec("120")) {
		t.Fatalf("total = %s, want 120", got.Total)
	}
}

func TestComputeItemTotalMonotonic(t *testing.T) {
	base := models.ItemLine{
		Quantity:      dec("2"),
		UnitPrice:     dec("100"),
		Discount:      dec("10"),
		DiscountType:  models.DiscountTypePercentage,
		TaxPercentage: dec("5"),
	}

	prev := models.ComputeItemAmounts(base, models.TaxModeByProduct).Total
	for _, price := range []string{"100.01", "110", "250", "999.99"} {
		line := base
		line.UnitPrice = dec(price)
		got := models.ComputeItemAmounts(line, models.TaxModeByProduct).Total
		if got.LessThan(prev) {
			t.Fatalf("total decreased when unitPrice rose to %s: %s < %s", price, got, prev)
		}
		prev = got
	}

	prev = models.ComputeItemAmounts(base, models.TaxModeByProduct).Total
	for _, qty := range []string{"2.5", "3", "10", "100"} {
		line := base
		line.Quantity = dec(qty)
		got := models.ComputeItemAmounts(line, models.TaxModeByProduct).Total
		if got.LessThan(prev) {
			t.Fatalf("total decreased when quantity rose to %s: %s < %s", qty, got, prev)
		}
		prev = got
	}
}

func TestComputeInvoiceTotalsByProduct(t *testing.T) {
	// One line: qty=2 x 100, 10% product tax. Line total 220 is tax-inclusive,
	// so the invoice total equals the subtotal and tax is reported separately.
	items := []models.ItemLine{
		{
			Quantity:      dec("2"),
			UnitPrice:     dec("100"),
			DiscountType:  models.DiscountTypeNone,
			TaxPercentage: dec("10"),
		},
	}

	got := models.ComputeInvoiceTotals(items, decimal.Zero, models.DiscountTypeNone, models.TaxModeByProduct, decimal.Zero, decimal.Zero)

	if !got.Subtotal.Equal(dec("220")) {
		t.Fatalf("subtotal = %s, want 220", got.Subtotal)
	}
	if !got.TotalTax.Equal(dec("20")) {
		t.Fatalf("totalTax = %s, want 20", got.TotalTax)
	}
	if !got.Total.Equal(dec("220")) {
		t.Fatalf("total = %s, want 220", got.Total)
	}
	if !got.Balance.Equal(dec("220")) {
		t.Fatalf("balance = %s, want 220", got.Balance)
	}
}

func TestComputeInvoiceTotalsInvoiceDiscount(t *testing.T) {
	// Two lines summing to 300 (tax embedded), 10% invoice discount -> 270.
	items := []models.ItemLine{
		{Quantity: dec("1"), UnitPrice: dec("100"), TaxPercentage: dec("10")},
		{Quantity: dec("1"), UnitPrice: dec("172.727273"), TaxPercentage: dec("10")},
	}

	got := models.ComputeInvoiceTotals(items, dec("10"), models.DiscountTypePercentage, models.TaxModeByProduct, decimal.Zero, decimal.Zero)

	if !got.Subtotal.Equal(dec("270")) {
		t.Fatalf("subtotal = %s, want 270", got.Subtotal)
	}
	if !got.Total.Equal(dec("270")) {
		t.Fatalf("total = %s, want 270", got.Total)
	}
}

func TestComputeInvoiceTotalsByTotal(t *testing.T) {
	// 10% invoice tax over vat-enabled lines only.
	items := []models.ItemLine{
		{Quantity: dec("1"), UnitPrice: dec("100"), VatEnabled: true},
		{Quantity: dec("1"), UnitPrice: dec("50"), VatEnabled: false},
	}

	got := models.ComputeInvoiceTotals(items, decimal.Zero, models.DiscountTypeNone, models.TaxModeByTotal, dec("10"), decimal.Zero)

	if !got.Subtotal.Equal(dec("150")) {
		t.Fatalf("subtotal = %s, want 150", got.Subtotal)
	}
	if !got.TotalTax.Equal(dec("10")) {
		t.Fatalf("totalTax = %s, want 10", got.TotalTax)
	}
	if !got.Total.Equal(dec("160")) {
		t.Fatalf("total = %s, want 160", got.Total)
	}
}

func TestComputeInvoiceTotalsNone(t *testing.T) {
	items := []models.ItemLine{
		{Quantity: dec("4"), UnitPrice: dec("25"), TaxPercentage: dec("10"), VatEnabled: true},
	}

	got := models.ComputeInvoiceTotals(items, decimal.Zero, models.DiscountTypeNone, models.TaxModeNone, dec("10"), decimal.Zero)

	if !got.TotalTax.Equal(decimal.Zero) {
		t.Fatalf("totalTax = %s, want 0", got.TotalTax)
	}
	if !got.Total.Equal(dec("100")) {
		t.Fatalf("total = %s, want 100", got.Total)
	}
}

func TestComputeInvoiceTotalsIdempotent(t *testing.T) {
	items := []models.ItemLine{
		{Quantity: dec("3"), UnitPrice: dec("33.33"), Discount: dec("5"), DiscountType: models.DiscountTypePercentage, TaxPercentage: dec("7.5")},
		{Quantity: dec("1.5"), UnitPrice: dec("80"), Discount: dec("10"), DiscountType: models.DiscountTypeFixed, TaxPercentage: dec("7.5")},
	}

	first := models.ComputeInvoiceTotals(items, dec("12.5"), models.DiscountTypePercentage, models.TaxModeByProduct, decimal.Zero, dec("50"))
	second := models.ComputeInvoiceTotals(items, dec("12.5"), models.DiscountTypePercentage, models.TaxModeByProduct, decimal.Zero, dec("50"))

	if !first.Subtotal.Equal(second.Subtotal) ||
		!first.TotalTax.Equal(second.TotalTax) ||
		!first.Total.Equal(second.Total) ||
		!first.Balance.Equal(second.Balance) {
		t.Fatalf("recompute not idempotent: %+v vs %+v", first, second)
	}
}

func TestComputeInvoiceTotalsBalance(t *testing.T) {
	items := []models.ItemLine{
		{Quantity: dec("2"), UnitPrice: dec("100"), TaxPercentage: dec("10")},
	}

	got := models.ComputeInvoiceTotals(items, decimal.Zero, models.DiscountTypeNone, models.TaxModeByProduct, decimal.Zero, dec("220"))
	if !got.Balance.Equal(decimal.Zero) {
		t.Fatalf("balance = %s, want 0", got.Balance)
	}

	// Overpayment is tracked, not blocked.
	got = models.ComputeInvoiceTotals(items, decimal.Zero, models.DiscountTypeNone, models.TaxModeByProduct, decimal.Zero, dec("300"))
	if !got.Balance.Equal(dec("-80")) {
		t.Fatalf("balance = %s, want -80", got.Balance)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.InvoiceStatus
		want     bool
	}{
		{models.InvoiceStatusDraft, models.InvoiceStatusSent, true},
		{models.InvoiceStatusSent, models.InvoiceStatusViewed, true},
		{models.InvoiceStatusDraft, models.InvoiceStatusPaid, true},
		{models.InvoiceStatusSent, models.InvoiceStatusPaid, true},
		{models.InvoiceStatusViewed, models.InvoiceStatusPaid, true},
		{models.InvoiceStatusPaid, models.InvoiceStatusPaid, false},
		{models.InvoiceStatusPaid, models.InvoiceStatusSent, false},
		{models.InvoiceStatusViewed, models.InvoiceStatusSent, false},
		{models.InvoiceStatusSent, models.InvoiceStatusDraft, false},
		{models.InvoiceStatusDraft, models.InvoiceStatusViewed, false},
		{models.InvoiceStatusSent, models.InvoiceStatusOverdue, false},
	}

	for _, tt := range tests {
		if got := models.CanTransition(tt.from, tt.to); got != tt.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestEffectiveStatus(t *testing.T) {
	if got := models.EffectiveStatus(models.InvoiceStatusSent, true); got != models.InvoiceStatusOverdue {
		t.Fatalf("sent past due = %s, want OVERDUE", got)
	}
	if got := models.EffectiveStatus(models.InvoiceStatusPaid, true); got != models.InvoiceStatusPaid {
		t.Fatalf("paid past due = %s, want PAID", got)
	}
	if got := models.EffectiveStatus(models.InvoiceStatusDraft, false); got != models.InvoiceStatusDraft {
		t.Fatalf("draft before due = %s, want DRAFT", got)
	}
}
