package rollout

import (
	"sort"
	"time"
)

// NetProgressDays computes the elapsed business duration of a project in
// whole days, net of pause intervals.
//
// The reference end is end when set, otherwise now. Each pause is clipped to
// the [start, reference end] window; pauses entirely outside the window are
// ignored and an open pause runs until now. Overlapping pauses are merged
// before subtraction so a day spent under two simultaneous pauses is only
// discounted once.
//
// A nil start yields 0. The result is never negative and never exceeds the
// raw elapsed day count.
func NetProgressDays(start, end *time.Time, pauses []Pause, now time.Time) int {
	if start == nil {
		return 0
	}
	refEnd := now
	if end != nil {
		refEnd = *end
	}

	rawDays := int(refEnd.Sub(*start).Hours() / 24)
	if rawDays <= 0 {
		return 0
	}

	paused := pausedDays(*start, refEnd, pauses, now)
	if net := rawDays - paused; net > 0 {
		return net
	}
	return 0
}

// pausedDays sums the whole-day spans of pause intervals clipped to
// [windowStart, windowEnd], merging overlaps first.
func pausedDays(windowStart, windowEnd time.Time, pauses []Pause, now time.Time) int {
	type interval struct{ from, to time.Time }

	clipped := make([]interval, 0, len(pauses))
	for _, p := range pauses {
		if p.StartAt.After(windowEnd) {
			continue
		}
		pEnd := now
		if p.EndAt != nil {
			pEnd = *p.EndAt
		}
		if pEnd.Before(windowStart) {
			continue
		}
		from := p.StartAt
		if from.Before(windowStart) {
			from = windowStart
		}
		to := pEnd
		if to.After(windowEnd) {
			to = windowEnd
		}
		if to.After(from) {
			clipped = append(clipped, interval{from: from, to: to})
		}
	}
	if len(clipped) == 0 {
		return 0
	}

	sort.Slice(clipped, func(i, j int) bool { return clipped[i].from.Before(clipped[j].from) })

	days := 0
	cur := clipped[0]
	for _, iv := range clipped[1:] {
		if !iv.from.After(cur.to) {
			if iv.to.After(cur.to) {
				cur.to = iv.to
			}
			continue
		}
		days += int(cur.to.Sub(cur.from).Hours() / 24)
		cur = iv
	}
	days += int(cur.to.Sub(cur.from).Hours() / 24)
	return days
}
