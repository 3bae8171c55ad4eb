package gateway

import "strings"

// Internal dispute states. Every provider status string is translated into one
// of these before persistence; StateInitiated is the fallback when no mapping
// rule matches.
const (
	StateInitiated      = "initiated"
	StateActionRequired = "action_required"
	StateUnderReview    = "under_review"
	StateWon            = "won"
	StateLost           = "lost"
	StateClosed         = "closed"
)

// razorpayStates maps Razorpay's lower-case dispute statuses directly.
var razorpayStates = map[string]string{
	"open":            StateInitiated,
	"action_required": StateActionRequired,
	"under_review":    StateUnderReview,
	"won":             StateWon,
	"lost":            StateLost,
	"closed":          StateClosed,
}

// cashfreeStateSuffixes maps Cashfree's upper-case compound statuses
// (e.g. CHARGEBACK_MERCHANT_WON, PRE_ARBITRATION_CREATED) by suffix. Order
// matters: longer, more specific suffixes are checked first.
var cashfreeStateSuffixes = []struct {
	suffix string
	state  string
}{
	{"_MERCHANT_WON", StateWon},
	{"_MERCHANT_LOST", StateLost},
	{"_UNDER_REVIEW", StateUnderReview},
	{"_CREATED", StateActionRequired},
	{"_CANCELLED", StateClosed},
	{"_CLOSED", StateClosed},
	{"_ACCEPTED", StateLost},
	{"_WON", StateWon},
	{"_LOST", StateLost},
}

func razorpayInternalState(status string) string {
	if state, ok := razorpayStates[strings.ToLower(strings.TrimSpace(status))]; ok {
		return state
	}
	return StateInitiated
}

func cashfreeInternalState(status string) string {
	normalized := strings.ToUpper(strings.TrimSpace(status))
	for _, rule := range cashfreeStateSuffixes {
		if strings.HasSuffix(normalized, rule.suffix) {
			return rule.state
		}
	}
	return StateInitiated
}
