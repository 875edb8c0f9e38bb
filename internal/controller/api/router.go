// Package api HTTP-интерфейс для гостей, администратора и внутренних задач
package api

import (
	"context"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/ledger"
	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/Freeeeeet/venue_booking/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingService операции жизненного цикла, которые вызывает HTTP-слой
type BookingService interface {
	Create(ctx context.Context, req service.CreateBookingRequest) (*service.Result, error)
	Quote(checkIn, checkOut time.Time, guests int) (*model.Quote, error)
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	GetForGuest(ctx context.Context, id, userID int64) (*model.Booking, error)
	Confirm(ctx context.Context, id int64, now time.Time) (*service.Result, error)
	CancelByGuest(ctx context.Context, id, userID int64, reason string, now time.Time) (*service.Result, error)
	CancelByAdmin(ctx context.Context, id int64, reason string, now time.Time) (*service.Result, error)
	Reschedule(ctx context.Context, req service.RescheduleRequest) (*service.Result, error)
	RefundPreview(ctx context.Context, id, userID int64, now time.Time) (*model.RefundDecision, error)
	ReconcilePayment(ctx context.Context, id int64, now time.Time) (*service.Result, error)
	AttachGatewayPayment(ctx context.Context, id int64, externalID string) (*service.Result, error)
	AnonymizeGuest(ctx context.Context, userID int64) (int64, error)
}

// PaymentService операции с чеками
type PaymentService interface {
	SubmitProof(ctx context.Context, req service.SubmitProofRequest) (*service.ProofResult, error)
	Decide(ctx context.Context, proofID int64, decision service.Decision, now time.Time) (*service.ProofResult, error)
	History(ctx context.Context, bookingID, userID int64) ([]*model.PaymentProof, error)
	SummarizeForGuest(ctx context.Context, bookingID, userID int64) (*ledger.Summary, error)
	ListPending(ctx context.Context) ([]*model.PaymentProof, error)
}

// Sweeper завершение бронирований после выезда
type Sweeper interface {
	Sweep(ctx context.Context, today time.Time) (int64, error)
}

// Options настройки роутера
type Options struct {
	AdminToken     string
	AllowedOrigins []string
	Location       *time.Location
	Now            func() time.Time
}

type Handler struct {
	bookings BookingService
	payments PaymentService
	sweeper  Sweeper
	location *time.Location
	clock    func() time.Time
	logger   *zap.Logger
}

func NewHandler(bookings BookingService, payments PaymentService, sweeper Sweeper, opts Options, logger *zap.Logger) *Handler {
	h := &Handler{
		bookings: bookings,
		payments: payments,
		sweeper:  sweeper,
		location: opts.Location,
		clock:    opts.Now,
		logger:   logger,
	}
	if h.location == nil {
		h.location = time.UTC
	}
	if h.clock == nil {
		h.clock = time.Now
	}
	return h
}

// now текущее время в часовом поясе площадки
func (h *Handler) now() time.Time {
	return h.clock().In(h.location)
}

// NewRouter собирает gin.Engine со всеми маршрутами
func NewRouter(h *Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(h.logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, headerUserID, headerAdminToken, headerRequestID)
	if len(opts.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = opts.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	guest := r.Group("/api")
	guest.GET("/quote", h.quote)

	bookings := guest.Group("/bookings", guestAuth())
	bookings.POST("", h.createBooking)
	bookings.GET("/:id", h.getBooking)
	bookings.POST("/:id/cancel", h.cancelByGuest)
	bookings.POST("/:id/reschedule", h.rescheduleByGuest)
	bookings.POST("/:id/proofs", h.submitProof)
	bookings.GET("/:id/payments", h.paymentHistory)
	bookings.GET("/:id/refund-preview", h.refundPreview)

	admin := r.Group("/admin", adminAuth(opts.AdminToken))
	admin.GET("/bookings/:id", h.adminGetBooking)
	admin.POST("/bookings/:id/confirm", h.confirm)
	admin.POST("/bookings/:id/cancel", h.cancelByAdmin)
	admin.POST("/bookings/:id/reschedule", h.rescheduleByAdmin)
	admin.POST("/bookings/:id/reconcile", h.reconcile)
	admin.PUT("/bookings/:id/external-payment", h.attachExternalPayment)
	admin.GET("/proofs/pending", h.pendingProofs)
	admin.POST("/proofs/:id/decision", h.decide)
	admin.DELETE("/users/:id", h.anonymize)

	internal := r.Group("/internal", adminAuth(opts.AdminToken))
	internal.POST("/sweep", h.sweep)

	return r
}
