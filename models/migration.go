package models

import (
	"log"

	"github.com/adstrategic/addinvoice/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Workspace{},
		&Business{},
		&Client{},
		&CatalogItem{},
		&Invoice{},
		&InvoiceItem{},
		&Payment{},
		&NotificationRecord{},
	)
	if err != nil {
		log.Fatalf("failed to migrate tables: %v", err)
	}
}
