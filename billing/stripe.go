package billing

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/adstrategic/addinvoice/config"
	"github.com/adstrategic/addinvoice/models"
	"github.com/adstrategic/addinvoice/utils"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const moduleName = "billing"

// MaxWebhookBodyBytes bounds the raw webhook payload read by the handler.
const MaxWebhookBodyBytes = int64(65536)

// VerifyAndParseEvent checks the Stripe-Signature header against
// STRIPE_WEBHOOK_SECRET and parses the event. Unverified payloads are
// rejected before any state is touched.
func VerifyAndParseEvent(payload []byte, signature string) (stripe.Event, error) {
	secret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if secret == "" {
		return stripe.Event{}, utils.NewAppError(utils.ErrCodeExternalService, "stripe webhook secret is not configured")
	}
	event, err := webhook.ConstructEvent(payload, signature, secret)
	if err != nil {
		return stripe.Event{}, utils.WrapAppError(utils.ErrCodeValidation, "invalid webhook signature", err)
	}
	return event, nil
}

// ProcessEvent applies a verified billing event to the owning workspace.
// Unhandled event types are acknowledged without side effects so Stripe
// does not retry them.
func ProcessEvent(ctx context.Context, event stripe.Event) error {
	logger := config.GetLogger()

	switch event.Type {
	case "checkout.session.completed":
		return processCheckoutCompleted(ctx, event)
	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		return processSubscriptionEvent(ctx, event)
	default:
		logger.WithField("eventType", event.Type).Debug("ignoring unhandled billing event")
		return nil
	}
}

// processCheckoutCompleted links the Stripe customer to the workspace that
// started the checkout. The workspace id travels in the session metadata set
// when the checkout was created.
func processCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	logger := config.GetLogger()

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		config.LogError(logger, moduleName, "processCheckoutCompleted", "parsing checkout session", event.ID, err)
		return utils.WrapAppError(utils.ErrCodeValidation, "malformed checkout session payload", err)
	}

	workspaceId := session.Metadata["workspace_id"]
	if workspaceId == "" || session.Customer == nil {
		logger.WithField("sessionId", session.ID).Warn("checkout session without workspace metadata")
		return nil
	}

	workspace, err := models.GetWorkspace(ctx, workspaceId)
	if err != nil {
		return err
	}

	return models.UpdateWorkspaceSubscription(ctx, workspace.ID, models.SubscriptionUpdate{
		Plan:              workspace.SubscriptionPlan,
		Status:            workspace.SubscriptionStatus,
		BillingCustomerId: &session.Customer.ID,
	})
}

func processSubscriptionEvent(ctx context.Context, event stripe.Event) error {
	logger := config.GetLogger()

	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		config.LogError(logger, moduleName, "processSubscriptionEvent", "parsing subscription", event.ID, err)
		return utils.WrapAppError(utils.ErrCodeValidation, "malformed subscription payload", err)
	}

	workspace, err := resolveWorkspace(ctx, &sub)
	if err != nil {
		// The customer may belong to a deleted workspace; acknowledge and move on.
		logger.WithFields(map[string]interface{}{
			"subscriptionId": sub.ID,
			"eventType":      event.Type,
		}).Warn("billing event for unknown workspace")
		return nil
	}

	update := models.SubscriptionUpdate{
		Plan:                  planFromSubscription(&sub),
		Status:                MapStripeStatus(sub.Status),
		PeriodEnd:             subscriptionPeriodEnd(&sub),
		BillingSubscriptionId: &sub.ID,
	}
	if sub.Customer != nil {
		update.BillingCustomerId = &sub.Customer.ID
	}
	if event.Type == "customer.subscription.deleted" {
		update.Status = models.SubscriptionStatusCanceled
	}

	if err := models.UpdateWorkspaceSubscription(ctx, workspace.ID, update); err != nil {
		config.LogError(logger, moduleName, "processSubscriptionEvent", "updating workspace subscription", workspace.ID, err)
		return err
	}

	logger.WithFields(map[string]interface{}{
		"workspaceId":    workspace.ID,
		"subscriptionId": sub.ID,
		"status":         update.Status,
	}).Info("workspace subscription synced")
	return nil
}

// resolveWorkspace prefers the workspace id stamped into the subscription's
// metadata at checkout time, falling back to the stored customer link.
func resolveWorkspace(ctx context.Context, sub *stripe.Subscription) (*models.Workspace, error) {
	if workspaceId := sub.Metadata["workspace_id"]; workspaceId != "" {
		return models.GetWorkspace(ctx, workspaceId)
	}
	if sub.Customer != nil {
		return models.FindWorkspaceByBillingCustomer(ctx, sub.Customer.ID)
	}
	return nil, utils.ErrorRecordNotFound
}

// MapStripeStatus converts the provider's subscription status to ours. The
// two sets coincide today; the mapping still funnels unknown values to
// "unpaid" so a new provider status locks writes instead of allowing them.
func MapStripeStatus(status stripe.SubscriptionStatus) models.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusTrialing:
		return models.SubscriptionStatusTrialing
	case stripe.SubscriptionStatusActive:
		return models.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue:
		return models.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusCanceled:
		return models.SubscriptionStatusCanceled
	case stripe.SubscriptionStatusUnpaid:
		return models.SubscriptionStatusUnpaid
	case stripe.SubscriptionStatusIncomplete:
		return models.SubscriptionStatusIncomplete
	case stripe.SubscriptionStatusIncompleteExpired:
		return models.SubscriptionStatusIncompleteExpired
	default:
		return models.SubscriptionStatusUnpaid
	}
}

func planFromSubscription(sub *stripe.Subscription) string {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return ""
	}
	price := sub.Items.Data[0].Price
	if price == nil {
		return ""
	}
	if price.LookupKey != "" {
		return price.LookupKey
	}
	return price.ID
}

func subscriptionPeriodEnd(sub *stripe.Subscription) *time.Time {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	end := sub.Items.Data[0].CurrentPeriodEnd
	if end == 0 {
		return nil
	}
	t := time.Unix(end, 0).UTC()
	return &t
}
