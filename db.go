package main

import (
	"log"
	"os"
	"strings"

	"receiptocr/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

// initDB connects to Postgres when DB_DSN is set. Persistence is optional
// for the web server: without a DSN the /ocr endpoint still works, results
// are just not recorded.
func initDB() {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Printf("DB_DSN not set; running without result persistence")
		return
	}
	var err error
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true).
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	if shouldMigrate {
		if err := db.AutoMigrate(&models.Receipt{}); err != nil {
			log.Printf("migration warning (receipts): %v", err)
		}
	}
}
