package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ProofStatus string

const (
	ProofStatusPending  ProofStatus = "pending"
	ProofStatusVerified ProofStatus = "verified"
	ProofStatusRejected ProofStatus = "rejected"
)

type PaymentMethod string

const (
	PaymentMethodGCash         PaymentMethod = "gcash"
	PaymentMethodMaya          PaymentMethod = "maya"
	PaymentMethodBankTransfer  PaymentMethod = "bank_transfer"
	PaymentMethodCreditCard    PaymentMethod = "credit_card"
	PaymentMethodCashOnArrival PaymentMethod = "cash_on_arrival"
)

// IsValid проверяет что метод известен
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodGCash, PaymentMethodMaya, PaymentMethodBankTransfer,
		PaymentMethodCreditCard, PaymentMethodCashOnArrival:
		return true
	}
	return false
}

// RequiresReference номер транзакции обязателен для электронных переводов
func (m PaymentMethod) RequiresReference() bool {
	switch m {
	case PaymentMethodGCash, PaymentMethodMaya, PaymentMethodBankTransfer:
		return true
	}
	return false
}

type PaymentProof struct {
	ID              int64           `json:"id"`
	BookingID       int64           `json:"booking_id"`
	UserID          int64           `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	Method          PaymentMethod   `json:"method"`
	ReferenceNumber *string         `json:"reference_number,omitempty"`
	Status          ProofStatus     `json:"status"`
	AdminNotes      *string         `json:"admin_notes,omitempty"`
	UploadedAt      time.Time       `json:"uploaded_at"`
	VerifiedAt      *time.Time      `json:"verified_at,omitempty"`
}

// ProofPatch частичное обновление чека. ExpectStatus проверяется в том же UPDATE.
type ProofPatch struct {
	Status     *ProofStatus
	AdminNotes *string
	VerifiedAt *time.Time

	ExpectStatus *ProofStatus
}

// Apply применяет патч к копии чека
func (p ProofPatch) Apply(proof *PaymentProof) *PaymentProof {
	out := *proof
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.AdminNotes != nil {
		out.AdminNotes = p.AdminNotes
	}
	if p.VerifiedAt != nil {
		out.VerifiedAt = p.VerifiedAt
	}
	return &out
}

// RejectionReason причина отклонения чека
type RejectionReason string

const (
	RejectionAmountMismatch   RejectionReason = "amount_mismatch"
	RejectionInvalidReference RejectionReason = "invalid_reference"
	RejectionUnreadableProof  RejectionReason = "unreadable_proof"
	RejectionDuplicate        RejectionReason = "duplicate"
	RejectionOther            RejectionReason = "other"
)

// IsValid проверяет причину отклонения
func (r RejectionReason) IsValid() bool {
	switch r {
	case RejectionAmountMismatch, RejectionInvalidReference, RejectionUnreadableProof,
		RejectionDuplicate, RejectionOther:
		return true
	}
	return false
}

const rejectionPrefix = "rejected:"

// EncodeRejectionNotes кладёт причину в первую строку admin_notes
func EncodeRejectionNotes(reason RejectionReason, notes string) string {
	header := rejectionPrefix + string(reason)
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return header
	}
	return fmt.Sprintf("%s\n%s", header, notes)
}

// ParseRejectionNotes разбирает admin_notes, записанные EncodeRejectionNotes
func ParseRejectionNotes(adminNotes string) (RejectionReason, string, bool) {
	header, rest, _ := strings.Cut(adminNotes, "\n")
	if !strings.HasPrefix(header, rejectionPrefix) {
		return "", adminNotes, false
	}
	return RejectionReason(strings.TrimPrefix(header, rejectionPrefix)), rest, true
}
