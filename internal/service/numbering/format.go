package numbering

import (
	"fmt"
	"strings"
	"time"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

// SeqWidth is the zero-padded width of the {SEQ} token.
const SeqWidth = 4

// Format expands a numbering template. Supported tokens are {PREFIX}, {YYYY},
// {YY}, {MM}, {DD} and {SEQ}; anything else is copied verbatim.
func Format(format, prefix string, seq int64, at time.Time) string {
	at = at.UTC()
	r := strings.NewReplacer(
		"{PREFIX}", prefix,
		"{YYYY}", fmt.Sprintf("%04d", at.Year()),
		"{YY}", fmt.Sprintf("%02d", at.Year()%100),
		"{MM}", fmt.Sprintf("%02d", int(at.Month())),
		"{DD}", fmt.Sprintf("%02d", at.Day()),
		"{SEQ}", fmt.Sprintf("%0*d", SeqWidth, seq),
	)
	return r.Replace(format)
}

// NeedsReset reports whether now falls in a later reset period than the last
// reset. A counter that has never been reset always needs one. A clock that
// moves backwards never triggers a reset.
func NeedsReset(interval domain.ResetInterval, lastReset *time.Time, now time.Time) bool {
	if lastReset == nil {
		return true
	}
	last := lastReset.UTC()
	now = now.UTC()

	switch interval {
	case domain.ResetYearly:
		return now.Year() > last.Year()
	case domain.ResetMonthly:
		return monthIndex(now) > monthIndex(last)
	default:
		return false
	}
}

// Advance returns the counter value to allocate and the reset timestamp to
// persist alongside it.
func Advance(c *domain.SequenceCounter, now time.Time) (int64, time.Time) {
	if NeedsReset(c.ResetInterval, c.LastResetAt, now) {
		return 1, now
	}
	return c.Counter + 1, *c.LastResetAt
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}
