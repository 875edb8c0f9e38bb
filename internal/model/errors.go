package model

import (
	"errors"
	"fmt"
)

// Причины ошибок, заворачиваются в типизированные ошибки ниже
var (
	ErrDatesUnavailable         = errors.New("dates are not available")
	ErrProofAlreadyDecided      = errors.New("payment proof already processed")
	ErrBalanceAlreadyRecorded   = errors.New("balance payment already recorded")
	ErrProofUnderReview         = errors.New("a payment proof is already under review")
	ErrAlreadyPaid              = errors.New("booking payment is already settled")
	ErrDepositNotVerified       = errors.New("deposit payment is not verified")
	ErrCancellationWindowClosed = errors.New("cancellation is no longer allowed for this booking")
	ErrRescheduleWindowClosed   = errors.New("confirmed bookings can only be rescheduled 24 hours before check-in")
	ErrAlreadyTerminal          = errors.New("booking is already cancelled or completed")
	ErrTransitionNotAllowed     = errors.New("transition is not allowed")
	ErrBookingChanged           = errors.New("booking was modified by another request")
	ErrNoGatewayPayment         = errors.New("booking has no gateway payment")
	ErrExternalPaymentInUse     = errors.New("gateway payment is already attached to another booking")
	ErrGatewayAmountShort       = errors.New("gateway payment does not cover the amount due")
)

// ValidationError некорректные входные данные, ничего не изменено
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// Invalid создаёт ValidationError
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError пересечение дат, повторная обработка, дубликат оплаты
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Err.Error()
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// Conflict создаёт ConflictError
func Conflict(err error) error {
	return &ConflictError{Err: err}
}

// NotFoundError неизвестный id или чужое бронирование
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// NotFound создаёт NotFoundError
func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// InvalidStateError переход из несовместимого состояния, Current возвращается клиенту
type InvalidStateError struct {
	Current State
	Err     error
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state %s: %v", e.Current, e.Err)
}

func (e *InvalidStateError) Unwrap() error {
	return e.Err
}

// InvalidState создаёт InvalidStateError
func InvalidState(current State, err error) error {
	return &InvalidStateError{Current: current, Err: err}
}

// IsNotFound проверяет NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict проверяет ConflictError
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsValidation проверяет ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsInvalidState проверяет InvalidStateError
func IsInvalidState(err error) bool {
	var s *InvalidStateError
	return errors.As(err, &s)
}
