package respd

import "time"

// blockTimeout returns a channel that fires once secs have elapsed, or nil
// (which blocks forever in a select) when secs <= 0 — BLPOP's "0" timeout
// meaning "wait indefinitely".
func blockTimeout(secs float64) <-chan time.Time {
	if secs <= 0 {
		return nil
	}
	return time.After(time.Duration(secs * float64(time.Second)))
}

// blockTimeoutMs is blockTimeout's millisecond-resolution counterpart, used
// by XREAD BLOCK, whose timeout argument is an integer count of milliseconds
// rather than BLPOP's fractional seconds.
func blockTimeoutMs(ms int64) <-chan time.Time {
	if ms <= 0 {
		return nil
	}
	return time.After(time.Duration(ms) * time.Millisecond)
}
