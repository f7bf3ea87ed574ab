package router

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/config"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/http/handlers"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/http/middleware"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/accounts"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/bookings"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/payments"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/payouts"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/reconcile"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/processor"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/receipts"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/storage"
)

type Deps struct {
	Cfg       *config.Config
	DB        *gorm.DB
	Logger    *slog.Logger
	Processor processor.Client
	Store     storage.Store
}

// New wires services, handlers and middleware into the gin engine.
func New(d Deps) *gin.Engine {
	if d.Cfg.GinMode != "" {
		gin.SetMode(d.Cfg.GinMode)
	}

	payoutSvc := payouts.NewService(d.DB, d.Processor, d.Cfg)
	payoutSvc.SetLogger(d.Logger)
	bookingSvc := bookings.NewService(d.DB, payoutSvc)
	bookingSvc.SetLogger(d.Logger)
	intentSvc := payments.NewIntentService(d.DB, d.Processor, d.Cfg)
	intentSvc.SetLogger(d.Logger)
	captureSvc := payments.NewCaptureService(d.DB, d.Processor)
	captureSvc.SetLogger(d.Logger)
	accountSvc := accounts.NewService(d.DB, d.Processor, d.Cfg.ProcessorAPIBase)
	webhookSvc := reconcile.NewWebhookService(d.DB)
	webhookSvc.SetLogger(d.Logger)

	paymentsH := handlers.NewPaymentsHandler(intentSvc, captureSvc)
	bookingsH := handlers.NewBookingsHandler(bookingSvc)
	payoutsH := handlers.NewPayoutsHandler(payoutSvc)
	accountH := handlers.NewAccountHandler(accountSvc)
	notifH := handlers.NewNotificationsHandler(d.DB)
	receiptsH := handlers.NewReceiptsHandler(d.DB, bookingSvc, receipts.NewGenerator("Zova"), d.Store)
	webhookH := handlers.NewWebhookHandler(d.Logger, d.Cfg.ProcessorWebhookSecret, webhookSvc)
	adminH := handlers.NewAdminHandler(intentSvc, payoutSvc, webhookSvc)
	systemH := handlers.NewSystemHandler(d.DB)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.ErrorHandler(d.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "https://app.zova.example"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.HeaderRequestID},
		ExposeHeaders:    []string{middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", systemH.Health)

	// Signature-verified, never token-authenticated.
	r.POST("/webhooks/processor", webhookH.Handle)

	api := r.Group("/api/v1")
	api.Use(middleware.RequireAuth(d.Cfg.JWTSecret))
	{
		api.POST("/payments/intents", paymentsH.CreateIntent)
		api.POST("/payments/intents/:id/capture", paymentsH.CaptureIntent)

		api.GET("/bookings/:id", bookingsH.Get)
		api.POST("/bookings/:id/cancel", bookingsH.Cancel)
		api.POST("/bookings/:id/receipt", receiptsH.Generate)
		api.GET("/bookings/:id/payout", payoutsH.ByBooking)

		api.GET("/notifications", notifH.List)

		provider := api.Group("")
		provider.Use(middleware.RequireRole("provider"))
		{
			provider.POST("/bookings/:id/accept", bookingsH.Accept)
			provider.POST("/bookings/:id/decline", bookingsH.Decline)
			provider.POST("/bookings/:id/start", bookingsH.Start)
			provider.POST("/bookings/:id/complete", bookingsH.Complete)

			provider.GET("/payouts", payoutsH.List)
			provider.GET("/account/status", accountH.Status)
			provider.POST("/account/onboarding-link", accountH.OnboardingLink)
		}
	}

	admin := r.Group("/admin")
	admin.Use(middleware.RequireAdminToken(d.Cfg.AdminTokenBcrypt))
	{
		admin.GET("/orphaned-captures", adminH.OrphanedCaptures)
		admin.POST("/intents/sweep", adminH.SweepIntents)
		admin.POST("/payouts/:bookingID/retry", adminH.RetryPayout)
		admin.POST("/events/:eventID/replay", adminH.ReplayEvent)
	}

	return r
}
