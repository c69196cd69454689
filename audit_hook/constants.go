package audithook

// Action constants for audit events.
const (
	// Transaction actions
	ActionTransactionCreated  = "transaction.created"
	ActionTransactionCanceled = "transaction.canceled"
	ActionTransactionSettled  = "transaction.settled"

	// Payment actions
	ActionPaymentApplied  = "payment.applied"
	ActionPaymentReversed = "payment.reversed"

	// Recurrence actions
	ActionRecurrenceAdvanced = "recurrence.advanced"
	ActionRecurrenceFinished = "recurrence.finished"
	ActionSchedulerRun       = "scheduler.run"

	// Party actions
	ActionPartyCreated = "party.created"
)

// Resource constants for audit events.
const (
	ResourceTransaction = "transaction"
	ResourcePayment     = "payment"
	ResourceRecurrence  = "recurrence"
	ResourceScheduler   = "scheduler"
	ResourceParty       = "party"
)

// Category constants for audit events.
const (
	CategoryLedger    = "ledger"
	CategoryPayment   = "payment"
	CategorySchedule  = "schedule"
	CategoryDirectory = "directory"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
