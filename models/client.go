package models

import (
	"context"
	"time"

	"github.com/adstrategic/addinvoice/config"
	"github.com/adstrategic/addinvoice/utils"
	"gorm.io/gorm"
)

// Client is the buyer an invoice is addressed to. Its contact fields serve as
// invoice defaults; invoices may override them per-invoice without mutating
// the client record.
type Client struct {
	ID           int            `gorm:"primary_key" json:"id"`
	WorkspaceId  string         `gorm:"size:64;index;not null;uniqueIndex:uix_clients_workspace_sequence,priority:1" json:"workspace_id"`
	Sequence     int            `gorm:"not null;uniqueIndex:uix_clients_workspace_sequence,priority:2" json:"sequence"`
	Name         string         `gorm:"size:255;not null" json:"name" binding:"required"`
	BusinessName string         `gorm:"size:255" json:"business_name"`
	Email        string         `gorm:"size:255" json:"email"`
	Phone        string         `gorm:"size:64" json:"phone"`
	Address      string         `gorm:"type:text" json:"address"`
	TaxId        string         `gorm:"size:100" json:"tax_id"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

type NewClient struct {
	Name         string `json:"name" binding:"required"`
	BusinessName string `json:"business_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	TaxId        string `json:"tax_id"`
}

type UpdateClientInput struct {
	Name         *string `json:"name"`
	BusinessName *string `json:"business_name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
	TaxId        *string `json:"tax_id"`
}

func validateClientContact(email string, phone string) error {
	if email != "" && !utils.IsValidEmail(email) {
		return utils.ValidationError("invalid email")
	}
	if phone != "" {
		if err := utils.ValidatePhoneNumber(phone, utils.CountryCode); err != nil {
			return utils.ValidationError("invalid phone number")
		}
	}
	return nil
}

func CreateClient(ctx context.Context, workspaceId string, input *NewClient) (*Client, error) {
	return retryOnSequenceConflict(func() (*Client, error) {
		return createClient(ctx, workspaceId, input)
	})
}

func createClient(ctx context.Context, workspaceId string, input *NewClient) (*Client, error) {
	db := config.GetDB()

	if err := validateClientContact(input.Email, input.Phone); err != nil {
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

	sequence, err := NextSequence(tx, ctx, workspaceId, SequenceKindClient)
	if err != nil {
		return nil, err
	}

	client := Client{
		WorkspaceId:  workspaceId,
		Sequence:     sequence,
		Name:         input.Name,
		BusinessName: input.BusinessName,
		Email:        input.Email,
		Phone:        input.Phone,
		Address:      input.Address,
		TaxId:        input.TaxId,
	}
	if err := tx.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func GetClients(ctx context.Context, workspaceId string) ([]*Client, error) {
	return utils.FetchAllModels[Client](ctx, workspaceId)
}

func GetClient(ctx context.Context, workspaceId string, id int) (*Client, error) {
	return utils.FetchModel[Client](ctx, workspaceId, id)
}

func UpdateClient(ctx context.Context, workspaceId string, id int, input *UpdateClientInput) (*Client, error) {
	db := config.GetDB()

	client, err := utils.FetchModel[Client](ctx, workspaceId, id)
	if err != nil {
		return nil, err
	}

	email := client.Email
	if input.Email != nil {
		email = *input.Email
	}
	phone := client.Phone
	if input.Phone != nil {
		phone = *input.Phone
	}
	if err := validateClientContact(email, phone); err != nil {
		return nil, err
	}

	if input.Name != nil {
		client.Name = *input.Name
	}
	if input.BusinessName != nil {
		client.BusinessName = *input.BusinessName
	}
	client.Email = email
	client.Phone = phone
	if input.Address != nil {
		client.Address = *input.Address
	}
	if input.TaxId != nil {
		client.TaxId = *input.TaxId
	}

	if err := db.WithContext(ctx).Save(client).Error; err != nil {
		return nil, err
	}
	return client, nil
}

func DeleteClient(ctx context.Context, workspaceId string, id int) error {
	db := config.GetDB()

	client, err := utils.FetchModel[Client](ctx, workspaceId, id)
	if err != nil {
		return err
	}

	// Invoices keep a hard reference to their client.
	count, err := utils.ResourceCountWhere[Invoice](ctx, workspaceId, "client_id = ?", id)
	if err != nil {
		return err
	}
	if count > 0 {
		return utils.ValidationError("client has invoices and cannot be deleted")
	}

	return db.WithContext(ctx).Delete(client).Error
}
