package reliability

import "time"

// IsRetryableHTTPStatus classifies HTTP status codes from the avatar and room
// management APIs that are worth retrying on a fresh job attempt.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// IsRetryableReplyCode classifies realtime-backend error codes that indicate a
// transient condition rather than a broken session.
func IsRetryableReplyCode(code string) bool {
	switch code {
	case "rate_limit_exceeded", "server_error", "session_expired":
		return true
	default:
		return false
	}
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
