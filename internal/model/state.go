package model

// State объединяет status и payment_status в одно именованное состояние
type State string

const (
	StateAwaitingPayment                    State = "awaiting_payment"
	StatePaymentUnderReview                 State = "payment_under_review"
	StatePaymentRejected                    State = "payment_rejected"
	StatePaymentFailed                      State = "payment_failed"
	StatePaymentVerifiedPendingConfirmation State = "payment_verified_pending_confirmation"
	StateConfirmed                          State = "confirmed"
	StateCancelled                          State = "cancelled"
	StateCompleted                          State = "completed"
)

// Action действие над бронированием
type Action string

const (
	ActionConfirm     Action = "confirm"
	ActionCancel      Action = "cancel"
	ActionReschedule  Action = "reschedule"
	ActionComplete    Action = "complete"
	ActionSubmitProof Action = "submit_proof"
	ActionPayBalance  Action = "pay_balance" // Остаток наличными при заезде
	ActionDecideProof Action = "decide_proof"
	ActionReconcile   Action = "reconcile"
)

var pendingActions = []Action{
	ActionConfirm, ActionCancel, ActionReschedule, ActionSubmitProof, ActionPayBalance, ActionDecideProof, ActionReconcile,
}

var allowedActions = map[State][]Action{
	StateAwaitingPayment:                    pendingActions,
	StatePaymentUnderReview:                 pendingActions,
	StatePaymentRejected:                    pendingActions,
	StatePaymentFailed:                      pendingActions,
	StatePaymentVerifiedPendingConfirmation: pendingActions,
	StateConfirmed: {
		ActionConfirm, ActionCancel, ActionReschedule, ActionComplete,
		ActionSubmitProof, ActionPayBalance, ActionDecideProof, ActionReconcile,
	},
	// После выезда можно только записать остаток при заезде
	StateCompleted: {ActionPayBalance},
	StateCancelled: {},
}

// StateOf выводит состояние из пары статусов
func StateOf(status BookingStatus, payment PaymentStatus) State {
	switch status {
	case BookingStatusCancelled:
		return StateCancelled
	case BookingStatusCompleted:
		return StateCompleted
	case BookingStatusConfirmed:
		return StateConfirmed
	}

	switch payment {
	case PaymentStatusPendingVerification:
		return StatePaymentUnderReview
	case PaymentStatusRejected:
		return StatePaymentRejected
	case PaymentStatusFailed:
		return StatePaymentFailed
	case PaymentStatusVerified, PaymentStatusPaid:
		return StatePaymentVerifiedPendingConfirmation
	default:
		return StateAwaitingPayment
	}
}

// Allows проверяет, разрешено ли действие в этом состоянии
func (s State) Allows(a Action) bool {
	for _, allowed := range allowedActions[s] {
		if allowed == a {
			return true
		}
	}
	return false
}

// IsTerminal терминальные состояния не допускают изменений дат, суммы и типа оплаты
func (s State) IsTerminal() bool {
	return s == StateCancelled || s == StateCompleted
}

func (s State) String() string {
	return string(s)
}
