package p2p

import "time"

// Ban-score policy constants. The spec's error taxonomy (§7) names the
// error classes but not numeric weights; these mirror the teacher's
// banscore.go thresholds and decay rate, with per-command deltas chosen by
// the same severity ordering the teacher uses (malformed framing costs
// more than an application-level rejection, DoubleSpend/Conflict-shaped
// rejects cost more than a single bad light-wallet query).
const (
	BanThreshold      = 100
	ThrottleThreshold = 50
	ThrottleDelay     = 500 * time.Millisecond

	// BanScoreDecaysPerMinute is the decay rate applied to a peer's running
	// score, so a peer that stops misbehaving recovers over time instead of
	// being banned forever for a single burst.
	BanScoreDecaysPerMinute = 1

	// Per-payload ban-score deltas for application-level (post-checksum)
	// rejections; transport-level deltas are returned directly by ReadError.
	BanScoreMalformedPayload   = 10
	BanScoreDoubleSpendOrFatal = 100
	BanScoreOversizeRequest    = 20
)

// BanScore is a small deterministic policy primitive; it has no bearing on
// consensus, only on which peers this node keeps talking to.
type BanScore struct {
	score       int
	lastUpdated time.Time
}

func (b *BanScore) Score(now time.Time) int {
	b.decayTo(now)
	return b.score
}

func (b *BanScore) Add(now time.Time, delta int) int {
	b.decayTo(now)
	b.score += delta
	if b.score < 0 {
		b.score = 0
	}
	return b.score
}

func (b *BanScore) ShouldBan(now time.Time) bool {
	return b.Score(now) >= BanThreshold
}

func (b *BanScore) ShouldThrottle(now time.Time) bool {
	return b.Score(now) >= ThrottleThreshold
}

func (b *BanScore) decayTo(now time.Time) {
	if b.lastUpdated.IsZero() {
		b.lastUpdated = now
		return
	}
	if now.Before(b.lastUpdated) {
		b.lastUpdated = now
		return
	}
	minutes := int(now.Sub(b.lastUpdated) / time.Minute)
	if minutes <= 0 {
		return
	}
	b.score -= minutes * BanScoreDecaysPerMinute
	if b.score < 0 {
		b.score = 0
	}
	b.lastUpdated = now
}
