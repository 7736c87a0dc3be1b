package availability

import (
	"fmt"
	"sort"
	"time"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

const clockLayout = "15:04"

// Default clinic day used when a veterinarian generates slots without listing them.
const (
	DefaultOpen     = "09:00"
	DefaultClose    = "17:00"
	DefaultDuration = 30 * time.Minute
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// DaySlots splits [open, close) into back-to-back windows of the given length.
// A trailing remainder shorter than duration is dropped.
func DaySlots(openAt, closeAt string, duration time.Duration) ([]model.SlotWindow, error) {
	start, err := parseClock(openAt)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", openAt, model.ErrInvalidArgument)
	}
	end, err := parseClock(closeAt)
	if err != nil {
		return nil, fmt.Errorf("close %q: %w", closeAt, model.ErrInvalidArgument)
	}
	if duration <= 0 || !end.After(start) {
		return nil, fmt.Errorf("day %s-%s by %s: %w", openAt, closeAt, duration, model.ErrInvalidArgument)
	}

	var out []model.SlotWindow
	for t := start; !t.Add(duration).After(end); t = t.Add(duration) {
		out = append(out, model.SlotWindow{
			StartTime: t.Format(clockLayout),
			EndTime:   t.Add(duration).Format(clockLayout),
		})
	}
	return out, nil
}

// FreeWindows returns the windows that do not overlap any busy window.
// Windows that fail to parse are dropped; busy windows that fail to parse are ignored.
func FreeWindows(windows, busy []model.SlotWindow) []model.SlotWindow {
	taken := make([]Interval, 0, len(busy))
	for _, b := range busy {
		if iv, ok := toInterval(b); ok {
			taken = append(taken, iv)
		}
	}

	out := make([]model.SlotWindow, 0, len(windows))
	for _, w := range windows {
		iv, ok := toInterval(w)
		if !ok || overlapsAny(iv.Start, iv.End, taken) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// ValidateWindows checks that every window is a well-formed HH:MM range with
// end after start, and that no two windows overlap. Windows are returned sorted.
func ValidateWindows(windows []model.SlotWindow) ([]model.SlotWindow, error) {
	type parsed struct {
		w  model.SlotWindow
		iv Interval
	}
	items := make([]parsed, 0, len(windows))
	for _, w := range windows {
		start, err := parseClock(w.StartTime)
		if err != nil {
			return nil, fmt.Errorf("start_time %q: %w", w.StartTime, model.ErrInvalidArgument)
		}
		end, err := parseClock(w.EndTime)
		if err != nil {
			return nil, fmt.Errorf("end_time %q: %w", w.EndTime, model.ErrInvalidArgument)
		}
		if !end.After(start) {
			return nil, fmt.Errorf("window %s-%s ends before it starts: %w", w.StartTime, w.EndTime, model.ErrInvalidArgument)
		}
		items = append(items, parsed{w: w, iv: Interval{Start: start, End: end}})
	}

	sort.Slice(items, func(i, j int) bool { return items[i].iv.Start.Before(items[j].iv.Start) })

	out := make([]model.SlotWindow, 0, len(items))
	var seen []Interval
	for _, it := range items {
		if overlapsAny(it.iv.Start, it.iv.End, seen) {
			return nil, fmt.Errorf("window %s-%s overlaps another: %w", it.w.StartTime, it.w.EndTime, model.ErrInvalidArgument)
		}
		seen = append(seen, it.iv)
		out = append(out, it.w)
	}
	return out, nil
}

// ValidDate reports whether s is a calendar date in YYYY-MM-DD form.
func ValidDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func parseClock(s string) (time.Time, error) {
	if len(s) != len(clockLayout) {
		return time.Time{}, fmt.Errorf("want HH:MM")
	}
	return time.Parse(clockLayout, s)
}

func toInterval(w model.SlotWindow) (Interval, bool) {
	start, err := parseClock(w.StartTime)
	if err != nil {
		return Interval{}, false
	}
	end, err := parseClock(w.EndTime)
	if err != nil || !end.After(start) {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}
