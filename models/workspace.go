package models

import (
	"context"
	"errors"
	"time"

	"github.com/adstrategic/addinvoice/config"
	"github.com/adstrategic/addinvoice/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Workspace is the tenant. It is created lazily on first authenticated access;
// the id comes from the identity provider's token, never from request bodies.
// Subscription fields mirror the external billing provider and are written
// only by the billing webhook sync.
type Workspace struct {
	ID                    string             `gorm:"primary_key;size:64" json:"id"`
	Name                  string             `gorm:"size:255" json:"name"`
	SubscriptionPlan      string             `gorm:"size:100" json:"subscription_plan"`
	SubscriptionStatus    SubscriptionStatus `gorm:"size:32;not null;default:'trialing'" json:"subscription_status"`
	SubscriptionPeriodEnd *time.Time         `json:"subscription_period_end"`
	BillingCustomerId     *string            `gorm:"size:255;index" json:"billing_customer_id"`
	BillingSubscriptionId *string            `gorm:"size:255;index" json:"billing_subscription_id"`
	CreatedAt             time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt     `gorm:"index" json:"-"`
}

// GetOrCreateWorkspace bootstraps the tenant row on first authenticated
// access. Concurrent first requests are safe: the insert ignores duplicates.
func GetOrCreateWorkspace(ctx context.Context, workspaceId string, name string) (*Workspace, error) {
	if workspaceId == "" {
		return nil, utils.NewAppError(utils.ErrCodeUnauthorized, "workspace id is required")
	}

	db := config.GetDB()

	var workspace Workspace
	err := db.WithContext(ctx).Where("id = ?", workspaceId).First(&workspace).Error
	if err == nil {
		return &workspace, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	workspace = Workspace{
		ID:                 workspaceId,
		Name:               name,
		SubscriptionStatus: SubscriptionStatusTrialing,
	}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&workspace).Error; err != nil {
		return nil, err
	}

	// Re-read in case another request won the insert race.
	if err := db.WithContext(ctx).Where("id = ?", workspaceId).First(&workspace).Error; err != nil {
		return nil, err
	}
	return &workspace, nil
}

func GetWorkspace(ctx context.Context, workspaceId string) (*Workspace, error) {
	db := config.GetDB()
	var workspace Workspace
	err := db.WithContext(ctx).Where("id = ?", workspaceId).First(&workspace).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &workspace, nil
}

// Subscription status is cached in redis so the write gate does not hit MySQL
// on every mutating request. The TTL bounds staleness when an invalidation is
// lost; the webhook sync removes the key on every status change.
const subscriptionStatusCacheTTL = 5 * time.Minute

func subscriptionStatusCacheKey(workspaceId string) string {
	return "workspace:subscription:" + workspaceId
}

// GetWorkspaceSubscriptionStatus serves the write gate. A missing or
// unavailable cache falls through to the workspace row.
func GetWorkspaceSubscriptionStatus(ctx context.Context, workspaceId string) (SubscriptionStatus, error) {
	if cached, ok, err := config.GetRedisValue(subscriptionStatusCacheKey(workspaceId)); err == nil && ok {
		return SubscriptionStatus(cached), nil
	}

	workspace, err := GetWorkspace(ctx, workspaceId)
	if err != nil {
		return "", err
	}
	_ = config.SetRedisValue(subscriptionStatusCacheKey(workspaceId), string(workspace.SubscriptionStatus), subscriptionStatusCacheTTL)
	return workspace.SubscriptionStatus, nil
}

// SubscriptionUpdate carries the billing-provider state applied by the
// webhook sync. Local code never computes these values.
type SubscriptionUpdate struct {
	Plan                  string
	Status                SubscriptionStatus
	PeriodEnd             *time.Time
	BillingCustomerId     *string
	BillingSubscriptionId *string
}

func UpdateWorkspaceSubscription(ctx context.Context, workspaceId string, update SubscriptionUpdate) error {
	db := config.GetDB()

	values := map[string]interface{}{
		"subscription_plan":   update.Plan,
		"subscription_status": update.Status,
	}
	if update.PeriodEnd != nil {
		values["subscription_period_end"] = update.PeriodEnd
	}
	if update.BillingCustomerId != nil {
		values["billing_customer_id"] = update.BillingCustomerId
	}
	if update.BillingSubscriptionId != nil {
		values["billing_subscription_id"] = update.BillingSubscriptionId
	}

	result := db.WithContext(ctx).Model(&Workspace{}).
		Where("id = ?", workspaceId).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}

	if err := config.RemoveRedisKey(subscriptionStatusCacheKey(workspaceId)); err != nil {
		config.LogError(config.GetLogger(), "models", "UpdateWorkspaceSubscription", "failed to invalidate subscription status cache", workspaceId, err)
	}
	return nil
}

// FindWorkspaceByBillingCustomer resolves the tenant for an inbound billing
// webhook, which carries the provider's customer id rather than ours.
func FindWorkspaceByBillingCustomer(ctx context.Context, customerId string) (*Workspace, error) {
	if customerId == "" {
		return nil, utils.ErrorRecordNotFound
	}
	db := config.GetDB()
	var workspace Workspace
	err := db.WithContext(ctx).Where("billing_customer_id = ?", customerId).First(&workspace).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &workspace, nil
}
