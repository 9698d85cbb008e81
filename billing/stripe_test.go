package billing_test

import (
	"testing"

	"github.com/adstrategic/addinvoice/billing"
	"github.com/adstrategic/addinvoice/models"
	"github.com/stripe/stripe-go/v82"
)

func TestMapStripeStatus(t *testing.T) {
	cases := []struct {
		in   stripe.SubscriptionStatus
		want models.SubscriptionStatus
	}{
		{stripe.SubscriptionStatusTrialing, models.SubscriptionStatusTrialing},
		{stripe.SubscriptionStatusActive, models.SubscriptionStatusActive},
		{stripe.SubscriptionStatusPastDue, models.SubscriptionStatusPastDue},
		{stripe.SubscriptionStatusCanceled, models.SubscriptionStatusCanceled},
		{stripe.SubscriptionStatusUnpaid, models.SubscriptionStatusUnpaid},
		{stripe.SubscriptionStatusIncomplete, models.SubscriptionStatusIncomplete},
		{stripe.SubscriptionStatusIncompleteExpired, models.SubscriptionStatusIncompleteExpired},
		{stripe.SubscriptionStatus("some_future_status"), models.SubscriptionStatusUnpaid},
	}
	for _, tc := range cases {
		if got := billing.MapStripeStatus(tc.in); got != tc.want {
			t.Fatalf("MapStripeStatus(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestMapStripeStatusWriteGate(t *testing.T) {
	// Unknown provider statuses must land on a status that locks writes.
	got := billing.MapStripeStatus(stripe.SubscriptionStatus("paused"))
	if got.WritesAllowed() {
		t.Fatalf("unknown status mapped to %s which allows writes", got)
	}
}
