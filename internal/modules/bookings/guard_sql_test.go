package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The lifecycle update must carry both the expected status and the acting
// provider in its WHERE clause; that single statement is the concurrency
// guard, so its shape is pinned here against the MySQL dialect.
func TestDeclineIssuesGuardedUpdate(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqlDB.Close()

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open gorm over sqlmock: %v", err)
	}

	mock.ExpectExec("UPDATE `bookings` SET .+ WHERE \\(?id = \\? AND status = \\?\\)? AND provider_id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT \\* FROM `bookings` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "customer_id", "provider_id", "service_id", "status", "payment_status", "updated_at"}).
			AddRow("b1", "c1", "p1", "s1", StatusDeclined, PaymentPaid, time.Now()))

	svc := NewService(db, nil)
	got, err := svc.Decline(context.Background(), "b1", "p1")
	if err != nil {
		t.Fatalf("Decline: %v", err)
	}
	if got.Status != StatusDeclined {
		t.Fatalf("status = %q, want declined", got.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
