package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/Freeeeeet/venue_booking/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const dateOnly = "2006-01-02"

type createBookingBody struct {
	GuestName   string            `json:"guest_name"`
	GuestEmail  string            `json:"guest_email"`
	GuestPhone  string            `json:"guest_phone"`
	CheckIn     string            `json:"check_in" binding:"required"`
	CheckOut    string            `json:"check_out" binding:"required"`
	GuestCount  int               `json:"guest_count"`
	PaymentType model.PaymentType `json:"payment_type"`
}

type externalPaymentBody struct {
	ExternalPaymentID string `json:"external_payment_id" binding:"required"`
}

type datesBody struct {
	CheckIn  string `json:"check_in" binding:"required"`
	CheckOut string `json:"check_out" binding:"required"`
}

type cancelBody struct {
	Reason string `json:"reason"`
}

type proofBody struct {
	Amount          decimal.Decimal     `json:"amount"`
	Method          model.PaymentMethod `json:"method" binding:"required"`
	ReferenceNumber string              `json:"reference_number"`
}

type decisionBody struct {
	Action          service.DecisionAction `json:"action" binding:"required"`
	Notes           string                 `json:"notes"`
	RejectionReason model.RejectionReason  `json:"rejection_reason"`
}

type sweepBody struct {
	Date string `json:"date"`
}

// parseTime принимает RFC3339 или дату YYYY-MM-DD в часовом поясе площадки
func (h *Handler) parseTime(field, value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(h.location), nil
	}
	if t, err := time.ParseInLocation(dateOnly, value, h.location); err == nil {
		return t, nil
	}
	return time.Time{}, model.Invalid(field, "expected RFC3339 timestamp or YYYY-MM-DD date")
}

func (h *Handler) parseDates(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := h.parseTime("check_in", checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	out, err := h.parseTime("check_out", checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return in, out, nil
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) quote(c *gin.Context) {
	checkIn, checkOut, err := h.parseDates(c.Query("check_in"), c.Query("check_out"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	guests, err := strconv.Atoi(c.DefaultQuery("guests", "1"))
	if err != nil {
		badRequest(c, "guests must be a number")
		return
	}

	quote, err := h.bookings.Quote(checkIn, checkOut, guests)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *Handler) createBooking(c *gin.Context) {
	var body createBookingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	checkIn, checkOut, err := h.parseDates(body.CheckIn, body.CheckOut)
	if err != nil {
		h.writeError(c, err)
		return
	}

	res, err := h.bookings.Create(c.Request.Context(), service.CreateBookingRequest{
		UserID:      currentUserID(c),
		GuestName:   body.GuestName,
		GuestEmail:  body.GuestEmail,
		GuestPhone:  body.GuestPhone,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		GuestCount:  body.GuestCount,
		PaymentType: body.PaymentType,
		Now:         h.now(),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) getBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	booking, err := h.bookings.GetForGuest(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking, "state": booking.State()})
}

func (h *Handler) cancelByGuest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body cancelBody
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, err.Error())
		return
	}

	res, err := h.bookings.CancelByGuest(c.Request.Context(), id, currentUserID(c), body.Reason, h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) rescheduleByGuest(c *gin.Context) {
	h.reschedule(c, false)
}

func (h *Handler) rescheduleByAdmin(c *gin.Context) {
	h.reschedule(c, true)
}

func (h *Handler) reschedule(c *gin.Context, asAdmin bool) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body datesBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	checkIn, checkOut, err := h.parseDates(body.CheckIn, body.CheckOut)
	if err != nil {
		h.writeError(c, err)
		return
	}

	res, err := h.bookings.Reschedule(c.Request.Context(), service.RescheduleRequest{
		BookingID: id,
		UserID:    currentUserID(c),
		AsAdmin:   asAdmin,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Now:       h.now(),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) submitProof(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body proofBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.payments.SubmitProof(c.Request.Context(), service.SubmitProofRequest{
		BookingID:       id,
		UserID:          currentUserID(c),
		Amount:          body.Amount,
		Method:          body.Method,
		ReferenceNumber: body.ReferenceNumber,
		Now:             h.now(),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) paymentHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	userID := currentUserID(c)

	summary, err := h.payments.SummarizeForGuest(ctx, id, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	proofs, err := h.payments.History(ctx, id, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if proofs == nil {
		proofs = []*model.PaymentProof{}
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "proofs": proofs})
}

func (h *Handler) refundPreview(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	decision, err := h.bookings.RefundPreview(c.Request.Context(), id, currentUserID(c), h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

func (h *Handler) adminGetBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	booking, err := h.bookings.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking, "state": booking.State()})
}

func (h *Handler) confirm(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.bookings.Confirm(c.Request.Context(), id, h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) cancelByAdmin(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body cancelBody
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, err.Error())
		return
	}

	res, err := h.bookings.CancelByAdmin(c.Request.Context(), id, body.Reason, h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) reconcile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.bookings.ReconcilePayment(c.Request.Context(), id, h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) attachExternalPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body externalPaymentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.bookings.AttachGatewayPayment(c.Request.Context(), id, body.ExternalPaymentID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) pendingProofs(c *gin.Context) {
	proofs, err := h.payments.ListPending(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if proofs == nil {
		proofs = []*model.PaymentProof{}
	}
	c.JSON(http.StatusOK, gin.H{"proofs": proofs})
}

func (h *Handler) decide(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body decisionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.payments.Decide(c.Request.Context(), id, service.Decision{
		Action:          body.Action,
		Notes:           body.Notes,
		RejectionReason: body.RejectionReason,
	}, h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) anonymize(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	count, err := h.bookings.AnonymizeGuest(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"anonymized_bookings": count})
}

// sweep запускает завершение вручную, дату можно передать для повторного прогона
func (h *Handler) sweep(c *gin.Context) {
	var body sweepBody
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, err.Error())
		return
	}

	today := h.now()
	if body.Date != "" {
		t, err := h.parseTime("date", body.Date)
		if err != nil {
			h.writeError(c, err)
			return
		}
		today = t
	}

	completed, err := h.sweeper.Sweep(c.Request.Context(), today)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed": completed})
}
