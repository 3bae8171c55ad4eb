package gateway

// Parse dispatches a raw payload to the parser for the detected gateway. An
// unrecognized gateway yields a nil result, which the caller treats as an
// unsupported payload (fatal for the message, not retried). Parsers return an
// error only for malformed JSON; a structurally valid payload missing its
// primary fields comes back with an empty DisputeID for the caller to reject.
func Parse(gateway string, raw []byte) (*ParsedDispute, error) {
	switch gateway {
	case Razorpay:
		return parseRazorpay(raw)
	case Cashfree:
		return parseCashfree(raw)
	default:
		return nil, nil
	}
}
