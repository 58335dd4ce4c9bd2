package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
)

// DefaultSkewWindow bounds how far a signed timestamp may drift from
// the receiving clock before the request is rejected as a replay.
const DefaultSkewWindow = 5 * time.Minute

// Sign computes the hex HMAC-SHA256 over "<timestamp>.<body>"
func Sign(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a hex HMAC-SHA256 signature in constant time and
// rejects timestamps outside the skew window. A zero skew disables the
// timestamp check.
func Verify(secret, provided string, timestamp int64, body []byte, skew time.Duration, now time.Time) error {
	if skew > 0 {
		ts := time.Unix(timestamp, 0)
		drift := now.Sub(ts)
		if drift < 0 {
			drift = -drift
		}
		if drift > skew {
			return shared.ErrAuthenticationFailed
		}
	}
	expected := Sign(secret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return shared.ErrAuthenticationFailed
	}
	return nil
}

// ParseTimestamp parses the timestamp header value
func ParseTimestamp(value string) (int64, error) {
	ts, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, shared.ErrAuthenticationFailed
	}
	return ts, nil
}
