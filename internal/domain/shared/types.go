package shared

// TransactionStatus defines the two terminal ledger states
type TransactionStatus string

const (
	TransactionStatusApproved TransactionStatus = "approved"
	TransactionStatusDeclined TransactionStatus = "declined"
)

// Valid reports whether s is a known status
func (s TransactionStatus) Valid() bool {
	return s == TransactionStatusApproved || s == TransactionStatusDeclined
}

// DeclineReason defines why an authorization was declined or later demoted
type DeclineReason string

const (
	DeclineReasonCardNotFound        DeclineReason = "card_not_found"
	DeclineReasonCardCanceled        DeclineReason = "card_canceled"
	DeclineReasonCardInactive        DeclineReason = "card_inactive"
	DeclineReasonCardExpired         DeclineReason = "card_expired"
	DeclineReasonSingleUseExhausted  DeclineReason = "single_use_exhausted"
	DeclineReasonSpendingLimit       DeclineReason = "spending_limit_exceeded"
	DeclineReasonNoFundingInstrument DeclineReason = "no_funding_instrument"
	DeclineReasonChargeDeclined      DeclineReason = "charge_declined"
	DeclineReasonChargeTimeout       DeclineReason = "charge_timeout"
	DeclineReasonChargeFailedLater   DeclineReason = "charge_failed"
	DeclineReasonInternalError       DeclineReason = "internal_error"
	// DeclineReasonPending marks a claimed row that has not been finalized yet.
	// It is only ever visible inside the claiming database transaction.
	DeclineReasonPending DeclineReason = "pending"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
