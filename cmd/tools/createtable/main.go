package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/accounts"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/bookings"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/notifications"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/payments"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/payouts"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/reconcile"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/subscriptions"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	models := []any{
		&accounts.ProviderAccount{},
		&payments.PaymentIntent{},
		&bookings.Booking{},
		&payouts.PayoutRecord{},
		&subscriptions.ProviderSubscription{},
		&notifications.Notification{},
		&reconcile.ProcessorEvent{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	log.Println("✓ all tables migrated")
}
