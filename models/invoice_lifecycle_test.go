package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/adstrategic/addinvoice/config"
	"github.com/adstrategic/addinvoice/models"
	"github.com/adstrategic/addinvoice/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DB-backed lifecycle scenarios.
//
// Usage: INTEGRATION_TESTS=1 go test ./models -run Lifecycle -v
// (requires a reachable MySQL configured via the usual DB_* env vars)

var integrationSetup sync.Once

func requireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run DB-backed tests")
	}
	integrationSetup.Do(func() {
		config.ConnectDatabaseWithRetry()
		models.MigrateTable()
	})
}

func newTestWorkspace(t *testing.T, ctx context.Context) string {
	t.Helper()
	workspaceId := uuid.NewString()
	if _, err := models.GetOrCreateWorkspace(ctx, workspaceId, "test workspace"); err != nil {
		t.Fatalf("bootstrap workspace: %v", err)
	}
	return workspaceId
}

func newTestBusinessAndClient(t *testing.T, ctx context.Context, workspaceId string) (int, int) {
	t.Helper()
	business, err := models.CreateBusiness(ctx, workspaceId, &models.NewBusiness{Name: "Acme Studio"})
	if err != nil {
		t.Fatalf("create business: %v", err)
	}
	client, err := models.CreateClient(ctx, workspaceId, &models.NewClient{Name: "Jordan Smith", Email: "jordan@example.com"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return business.ID, client.ID
}

func newDraftInvoice(t *testing.T, ctx context.Context, workspaceId string, businessId, clientId int, items []models.NewInvoiceItem) *models.Invoice {
	t.Helper()
	invoice, err := models.CreateInvoice(ctx, workspaceId, &models.NewInvoice{
		BusinessId: businessId,
		ClientId:   clientId,
		IssueDate:  time.Now().UTC(),
		TaxMode:    models.TaxModeByProduct,
		Items:      items,
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return invoice
}

func TestLifecyclePaymentSettlesInvoice(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()

	workspaceId := newTestWorkspace(t, ctx)
	businessId, clientId := newTestBusinessAndClient(t, ctx, workspaceId)

	invoice := newDraftInvoice(t, ctx, workspaceId, businessId, clientId, []models.NewInvoiceItem{
		{Name: "Design work", Quantity: dec("2"), UnitPrice: dec("100"), TaxPercentage: dec("10")},
	})

	if !invoice.Total.Equal(dec("220")) {
		t.Fatalf("total = %s, want 220", invoice.Total)
	}
	if !invoice.Balance.Equal(dec("220")) {
		t.Fatalf("balance = %s, want 220", invoice.Balance)
	}

	payment, err := models.CreatePayment(ctx, workspaceId, invoice.ID, &models.NewPayment{
		Amount: dec("220"),
		Method: "bank transfer",
		PaidAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	settled, err := models.GetInvoice(ctx, workspaceId, invoice.ID)
	if err != nil {
		t.Fatalf("reload invoice: %v", err)
	}
	if !settled.Balance.Equal(decimal.Zero) {
		t.Fatalf("balance = %s, want 0", settled.Balance)
	}
	if settled.Status != models.InvoiceStatusPaid {
		t.Fatalf("status = %s, want PAID", settled.Status)
	}
	if settled.PaidAt == nil {
		t.Fatalf("paidAt not stamped")
	}

	// Deleting the settling payment reopens the balance but never reverts PAID.
	if err := models.DeletePayment(ctx, workspaceId, invoice.ID, payment.ID); err != nil {
		t.Fatalf("delete payment: %v", err)
	}
	reopened, err := models.GetInvoice(ctx, workspaceId, invoice.ID)
	if err != nil {
		t.Fatalf("reload invoice: %v", err)
	}
	if !reopened.Balance.Equal(dec("220")) {
		t.Fatalf("balance after delete = %s, want 220", reopened.Balance)
	}
	if reopened.Status != models.InvoiceStatusPaid {
		t.Fatalf("status after payment delete = %s, want PAID (no auto-revert)", reopened.Status)
	}
}

func TestLifecycleSendRequiresItems(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()

	workspaceId := newTestWorkspace(t, ctx)
	businessId, clientId := newTestBusinessAndClient(t, ctx, workspaceId)

	invoice := newDraftInvoice(t, ctx, workspaceId, businessId, clientId, nil)

	if _, err := models.SendInvoice(ctx, workspaceId, invoice.ID); err == nil {
		t.Fatalf("sending an empty invoice should fail")
	}

	if _, err := models.CreateInvoiceItem(ctx, workspaceId, invoice.ID, &models.NewInvoiceItem{
		Name: "Consulting", Quantity: dec("1"), UnitPrice: dec("500"),
	}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	sent, err := models.SendInvoice(ctx, workspaceId, invoice.ID)
	if err != nil {
		t.Fatalf("send invoice: %v", err)
	}
	if sent.Status != models.InvoiceStatusSent || sent.SentAt == nil {
		t.Fatalf("status = %s sentAt = %v, want SENT with timestamp", sent.Status, sent.SentAt)
	}

	// Second send is rejected.
	if _, err := models.SendInvoice(ctx, workspaceId, invoice.ID); err == nil {
		t.Fatalf("re-sending a sent invoice should fail")
	}
}

func TestLifecycleDeletePolicy(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()

	workspaceId := newTestWorkspace(t, ctx)
	businessId, clientId := newTestBusinessAndClient(t, ctx, workspaceId)

	draft := newDraftInvoice(t, ctx, workspaceId, businessId, clientId, []models.NewInvoiceItem{
		{Name: "Sketches", Quantity: dec("1"), UnitPrice: dec("50")},
	})
	if err := models.DeleteInvoice(ctx, workspaceId, draft.ID); err != nil {
		t.Fatalf("draft delete should succeed: %v", err)
	}

	withPayment := newDraftInvoice(t, ctx, workspaceId, businessId, clientId, []models.NewInvoiceItem{
		{Name: "Sketches", Quantity: dec("1"), UnitPrice: dec("50")},
	})
	if _, err := models.SendInvoice(ctx, workspaceId, withPayment.ID); err != nil {
		t.Fatalf("send invoice: %v", err)
	}
	if _, err := models.CreatePayment(ctx, workspaceId, withPayment.ID, &models.NewPayment{
		Amount: dec("10"), PaidAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if err := models.DeleteInvoice(ctx, workspaceId, withPayment.ID); err == nil {
		t.Fatalf("deleting a sent invoice with payments should fail")
	}
}

func TestLifecycleCrossWorkspaceReadsAsNotFound(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()

	workspaceA := newTestWorkspace(t, ctx)
	businessId, clientId := newTestBusinessAndClient(t, ctx, workspaceA)
	invoice := newDraftInvoice(t, ctx, workspaceA, businessId, clientId, []models.NewInvoiceItem{
		{Name: "Audit", Quantity: dec("1"), UnitPrice: dec("900")},
	})

	workspaceB := newTestWorkspace(t, ctx)
	_, err := models.GetInvoice(ctx, workspaceB, invoice.ID)
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("cross-workspace read = %v, want record not found", err)
	}
	_, err = models.GetInvoiceBySequence(ctx, workspaceB, invoice.Sequence)
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("cross-workspace read by sequence = %v, want record not found", err)
	}
}

func TestLifecycleOverdueReadProjection(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()

	workspaceId := newTestWorkspace(t, ctx)
	businessId, clientId := newTestBusinessAndClient(t, ctx, workspaceId)

	due := time.Now().UTC().Add(-24 * time.Hour)
	invoice, err := models.CreateInvoice(ctx, workspaceId, &models.NewInvoice{
		BusinessId: businessId,
		ClientId:   clientId,
		IssueDate:  time.Now().UTC().Add(-48 * time.Hour),
		DueDate:    &due,
		Items: []models.NewInvoiceItem{
			{Name: "Retainer", Quantity: dec("1"), UnitPrice: dec("300")},
		},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	if _, err := models.SendInvoice(ctx, workspaceId, invoice.ID); err != nil {
		t.Fatalf("send invoice: %v", err)
	}

	// Detail reads agree with the list projection.
	byId, err := models.GetInvoice(ctx, workspaceId, invoice.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if byId.Status != models.InvoiceStatusOverdue {
		t.Fatalf("detail status = %s, want OVERDUE", byId.Status)
	}
	bySeq, err := models.GetInvoiceBySequence(ctx, workspaceId, invoice.Sequence)
	if err != nil {
		t.Fatalf("get invoice by sequence: %v", err)
	}
	if bySeq.Status != models.InvoiceStatusOverdue {
		t.Fatalf("sequence read status = %s, want OVERDUE", bySeq.Status)
	}

	list, err := models.ListInvoices(ctx, workspaceId, models.ListInvoicesQuery{})
	if err != nil {
		t.Fatalf("list invoices: %v", err)
	}
	for _, row := range list.Invoices {
		if row.ID == invoice.ID && row.Status != models.InvoiceStatusOverdue {
			t.Fatalf("list status = %s, want OVERDUE", row.Status)
		}
	}

	// PAID is terminal and never projected to OVERDUE.
	if _, err := models.CreatePayment(ctx, workspaceId, invoice.ID, &models.NewPayment{
		Amount: dec("300"), PaidAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create payment: %v", err)
	}
	settled, err := models.GetInvoice(ctx, workspaceId, invoice.ID)
	if err != nil {
		t.Fatalf("reload invoice: %v", err)
	}
	if settled.Status != models.InvoiceStatusPaid {
		t.Fatalf("settled status = %s, want PAID", settled.Status)
	}
}

func TestLifecycleTaxSettingsPartialUpdate(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()

	workspaceId := newTestWorkspace(t, ctx)
	businessId, clientId := newTestBusinessAndClient(t, ctx, workspaceId)

	taxName := "VAT"
	taxPct := dec("10")
	invoice, err := models.CreateInvoice(ctx, workspaceId, &models.NewInvoice{
		BusinessId:    businessId,
		ClientId:      clientId,
		IssueDate:     time.Now().UTC(),
		TaxMode:       models.TaxModeByTotal,
		TaxName:       &taxName,
		TaxPercentage: &taxPct,
		Items: []models.NewInvoiceItem{
			{Name: "Hosting", Quantity: dec("1"), UnitPrice: dec("100")},
		},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	// Renaming the tax keeps the stored percentage.
	newName := "GST"
	updated, err := models.UpdateInvoice(ctx, workspaceId, invoice.ID, &models.UpdateInvoiceInput{
		TaxName: &newName,
	})
	if err != nil {
		t.Fatalf("update tax name: %v", err)
	}
	if updated.TaxName == nil || *updated.TaxName != "GST" {
		t.Fatalf("tax name = %v, want GST", updated.TaxName)
	}
	if updated.TaxPercentage == nil || !updated.TaxPercentage.Equal(dec("10")) {
		t.Fatalf("tax percentage = %v, want 10", updated.TaxPercentage)
	}

	// And the other way round.
	newPct := dec("12.5")
	updated, err = models.UpdateInvoice(ctx, workspaceId, invoice.ID, &models.UpdateInvoiceInput{
		TaxPercentage: &newPct,
	})
	if err != nil {
		t.Fatalf("update tax percentage: %v", err)
	}
	if updated.TaxName == nil || *updated.TaxName != "GST" {
		t.Fatalf("tax name = %v, want GST", updated.TaxName)
	}
	if !updated.TotalTax.Equal(dec("12.50")) {
		t.Fatalf("total tax = %s, want 12.50", updated.TotalTax)
	}
}

func TestLifecycleSubscriptionStatusGate(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()

	workspaceId := newTestWorkspace(t, ctx)

	status, err := models.GetWorkspaceSubscriptionStatus(ctx, workspaceId)
	if err != nil {
		t.Fatalf("read subscription status: %v", err)
	}
	if status != models.SubscriptionStatusTrialing || !status.WritesAllowed() {
		t.Fatalf("status = %s, want trialing with writes allowed", status)
	}

	if err := models.UpdateWorkspaceSubscription(ctx, workspaceId, models.SubscriptionUpdate{
		Plan:   "pro",
		Status: models.SubscriptionStatusCanceled,
	}); err != nil {
		t.Fatalf("update subscription: %v", err)
	}

	// The sync invalidates the cached status, so the gate sees the change.
	status, err = models.GetWorkspaceSubscriptionStatus(ctx, workspaceId)
	if err != nil {
		t.Fatalf("re-read subscription status: %v", err)
	}
	if status != models.SubscriptionStatusCanceled || status.WritesAllowed() {
		t.Fatalf("status = %s, want canceled with writes locked", status)
	}
}

func TestLifecycleCanceledContextIsNotNotFound(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()

	workspaceId := newTestWorkspace(t, ctx)
	businessId, clientId := newTestBusinessAndClient(t, ctx, workspaceId)
	invoice := newDraftInvoice(t, ctx, workspaceId, businessId, clientId, []models.NewInvoiceItem{
		{Name: "Audit", Quantity: dec("1"), UnitPrice: dec("900")},
	})
	payment, err := models.CreatePayment(ctx, workspaceId, invoice.ID, &models.NewPayment{
		Amount: dec("100"), PaidAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	// Infrastructure failures must not masquerade as missing records.
	if _, err := models.GetWorkspace(canceled, workspaceId); err == nil {
		t.Fatalf("expected error from canceled context")
	} else if errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("workspace read on canceled context = record not found, want transport error")
	}
	if _, err := models.GetPayment(canceled, workspaceId, payment.ID); err == nil {
		t.Fatalf("expected error from canceled context")
	} else if errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("payment read on canceled context = record not found, want transport error")
	}
}

func TestLifecycleConcurrentSequenceAssignment(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()

	workspaceId := newTestWorkspace(t, ctx)
	businessId, clientId := newTestBusinessAndClient(t, ctx, workspaceId)

	const workers = 8
	sequences := make(chan int, workers)
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			invoice, err := models.CreateInvoice(ctx, workspaceId, &models.NewInvoice{
				BusinessId: businessId,
				ClientId:   clientId,
				IssueDate:  time.Now().UTC(),
				Notes:      fmt.Sprintf("concurrent %d", n),
			})
			if err != nil {
				errs <- err
				return
			}
			sequences <- invoice.Sequence
		}(i)
	}
	wg.Wait()
	close(sequences)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent create: %v", err)
	}

	seen := make(map[int]bool)
	for seq := range sequences {
		if seen[seq] {
			t.Fatalf("duplicate sequence %d assigned", seq)
		}
		seen[seq] = true
	}
	if len(seen) != workers {
		t.Fatalf("got %d unique sequences, want %d", len(seen), workers)
	}
}
