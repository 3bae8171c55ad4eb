package app

import (
	"strconv"
	"time"
)

const customIDPrefix = "DIS"

// GenerateCustomDisputeID builds the human-meaningful dispute identifier:
// "DIS" + the 2-digit merchant-code fragment (the characters following the
// "MID" prefix of the public merchant id) + an 8-char suffix derived from the
// reversed unix-millisecond timestamp. Reversal puts the fastest-moving digits
// first, so ids minted close together still differ early in the string.
// Collisions are possible within one millisecond; callers re-generate with an
// advanced timestamp after an existence check.
func GenerateCustomDisputeID(publicMerchantID string, now time.Time) string {
	fragment := ""
	if len(publicMerchantID) >= 5 {
		fragment = publicMerchantID[3:5]
	}

	numbering := reverseString(strconv.FormatInt(now.UnixMilli(), 10))
	if len(numbering) > 8 {
		numbering = numbering[:8]
	}

	return customIDPrefix + fragment + numbering
}

func reverseString(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
