// Package stats holds the pure interval arithmetic behind the bucketed
// reports. A session spanning several hour or weekday buckets has its
// duration split at the local bucket boundaries, so each bucket is credited
// exactly the seconds that fell inside it.
package stats

import "time"

// Interval is a half-open [Start, End) span in epoch seconds.
type Interval struct {
	Start int64
	End   int64
}

// Seconds returns the interval length, zero for empty intervals.
func (iv Interval) Seconds() int64 {
	if iv.End <= iv.Start {
		return 0
	}
	return iv.End - iv.Start
}

// Empty reports whether the interval contains no time.
func (iv Interval) Empty() bool {
	return iv.End <= iv.Start
}

// Clip intersects iv with window.
func Clip(iv, window Interval) Interval {
	out := iv
	if out.Start < window.Start {
		out.Start = window.Start
	}
	if out.End > window.End {
		out.End = window.End
	}
	if out.End < out.Start {
		out.End = out.Start
	}
	return out
}

// HourBuckets apportions iv across hour-of-day buckets in loc. The interval
// is walked from start to end, splitting at each local hour boundary, so the
// bucket sums always equal iv.Seconds() exactly.
func HourBuckets(iv Interval, loc *time.Location) [24]int64 {
	var buckets [24]int64
	cur := iv.Start
	for cur < iv.End {
		t := time.Unix(cur, 0).In(loc)
		next := time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, loc).Unix()
		if next > iv.End {
			next = iv.End
		}
		buckets[t.Hour()] += next - cur
		cur = next
	}
	return buckets
}

// WeekdayBuckets apportions iv across weekday buckets (Sunday = 0) in loc,
// splitting at local midnights.
func WeekdayBuckets(iv Interval, loc *time.Location) [7]int64 {
	var buckets [7]int64
	cur := iv.Start
	for cur < iv.End {
		t := time.Unix(cur, 0).In(loc)
		next := time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc).Unix()
		if next > iv.End {
			next = iv.End
		}
		buckets[t.Weekday()] += next - cur
		cur = next
	}
	return buckets
}

// AccumulateHours clips each interval to window and sums its hour buckets.
func AccumulateHours(ivs []Interval, window Interval, loc *time.Location) [24]int64 {
	var total [24]int64
	for _, iv := range ivs {
		clipped := Clip(iv, window)
		if clipped.Empty() {
			continue
		}
		b := HourBuckets(clipped, loc)
		for i, v := range b {
			total[i] += v
		}
	}
	return total
}

// AccumulateWeekdays clips each interval to window and sums its weekday
// buckets.
func AccumulateWeekdays(ivs []Interval, window Interval, loc *time.Location) [7]int64 {
	var total [7]int64
	for _, iv := range ivs {
		clipped := Clip(iv, window)
		if clipped.Empty() {
			continue
		}
		b := WeekdayBuckets(clipped, loc)
		for i, v := range b {
			total[i] += v
		}
	}
	return total
}
