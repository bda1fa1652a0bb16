package deepseek

import "time"

// attemptOutcome classifies one backend attempt for the retry loop.
type attemptOutcome int

const (
	outcomeSuccess attemptOutcome = iota
	// outcomeRetry covers transport failures and 5xx answers: the request
	// may succeed if repeated.
	outcomeRetry
	// outcomeFatal covers 4xx answers: the request itself is unacceptable
	// (bad key, exhausted quota, oversized payload) and repeating it cannot
	// change the verdict.
	outcomeFatal
)

// classify maps one attempt's transport error or HTTP status onto the state
// machine. A zero status means no response was received at all.
func classify(status int, err error) attemptOutcome {
	switch {
	case err != nil:
		return outcomeRetry
	case status >= 200 && status < 300:
		return outcomeSuccess
	case status >= 400 && status < 500:
		return outcomeFatal
	default:
		return outcomeRetry
	}
}

const maxBackoff = 30 * time.Second

// backoffFor returns the delay before the given retry (1-based): the base
// delay doubled per retry, capped so late attempts stay bounded.
func backoffFor(base time.Duration, retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	d := base << (retry - 1)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}
