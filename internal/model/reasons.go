package model

// RejectionReason is a permanent reason for rejecting a candidate.
// Rejection is terminal; no resource is created.
type RejectionReason string

const (
	RejectDuplicate         RejectionReason = "duplicate"
	RejectWrongServiceType  RejectionReason = "wrong_service_type"
	RejectPermanentlyClosed RejectionReason = "permanently_closed"
	RejectDoesNotExist      RejectionReason = "does_not_exist"
	RejectWrongLocation     RejectionReason = "wrong_location"
	RejectSpam              RejectionReason = "spam"
	RejectInsufficientInfo  RejectionReason = "insufficient_info"
)

var rejectionReasons = map[RejectionReason]bool{
	RejectDuplicate:         true,
	RejectWrongServiceType:  true,
	RejectPermanentlyClosed: true,
	RejectDoesNotExist:      true,
	RejectWrongLocation:     true,
	RejectSpam:              true,
	RejectInsufficientInfo:  true,
}

// ValidRejectionReason reports whether r belongs to the permanent taxonomy.
func ValidRejectionReason(r RejectionReason) bool {
	return rejectionReasons[r]
}

// AttentionReason is a recoverable issue that sends a candidate to human
// review rather than terminating it.
type AttentionReason string

const (
	AttentionWrongName           AttentionReason = "wrong_name"
	AttentionIncompleteAddress   AttentionReason = "incomplete_address"
	AttentionTemporarilyClosed   AttentionReason = "temporarily_closed"
	AttentionNeedsVerification   AttentionReason = "needs_verification"
	AttentionConfidentialAddress AttentionReason = "confidential_address"
	AttentionMissingDetails      AttentionReason = "missing_details"
)

var attentionReasons = map[AttentionReason]bool{
	AttentionWrongName:           true,
	AttentionIncompleteAddress:   true,
	AttentionTemporarilyClosed:   true,
	AttentionNeedsVerification:   true,
	AttentionConfidentialAddress: true,
	AttentionMissingDetails:      true,
}

// ValidAttentionReason reports whether r belongs to the recoverable taxonomy.
func ValidAttentionReason(r AttentionReason) bool {
	return attentionReasons[r]
}
