package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeRange selects the dashboard window. Either one of the preset labels
// or a custom "<startMs>-<endMs>" pair in milliseconds since epoch.
type TimeRange string

const (
	Range15m TimeRange = "15m"
	Range1h  TimeRange = "1h"
	Range3h  TimeRange = "3h"
	Range6h  TimeRange = "6h"
	Range12h TimeRange = "12h"
	Range24h TimeRange = "24h"
	Range7d  TimeRange = "7d"

	DefaultRange = Range1h
)

var presetDurations = map[TimeRange]time.Duration{
	Range15m: 15 * time.Minute,
	Range1h:  time.Hour,
	Range3h:  3 * time.Hour,
	Range6h:  6 * time.Hour,
	Range12h: 12 * time.Hour,
	Range24h: 24 * time.Hour,
	Range7d:  7 * 24 * time.Hour,
}

// PresetRanges returns the preset labels in ascending window order.
func PresetRanges() []TimeRange {
	return []TimeRange{Range15m, Range1h, Range3h, Range6h, Range12h, Range24h, Range7d}
}

// IsValid reports whether the range is a preset label or a parseable
// custom start-end pair.
func (r TimeRange) IsValid() bool {
	if _, ok := presetDurations[r]; ok {
		return true
	}
	_, _, err := r.customBounds()
	return err == nil
}

// IsCustom reports whether the range is a "<startMs>-<endMs>" pair.
func (r TimeRange) IsCustom() bool {
	_, ok := presetDurations[r]
	if ok {
		return false
	}
	_, _, err := r.customBounds()
	return err == nil
}

func (r TimeRange) customBounds() (startMs, endMs int64, err error) {
	startStr, endStr, ok := strings.Cut(string(r), "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time range %q", r)
	}
	startMs, err = strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time range start %q: %w", startStr, err)
	}
	endMs, err = strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time range end %q: %w", endStr, err)
	}
	if endMs <= startMs {
		return 0, 0, fmt.Errorf("time range %q ends before it starts", r)
	}
	return startMs, endMs, nil
}

// Window resolves the range to absolute bounds in milliseconds since epoch.
// Preset ranges are anchored to now; custom ranges are fixed.
func (r TimeRange) Window(now time.Time) (startMs, endMs int64, err error) {
	if d, ok := presetDurations[r]; ok {
		endMs = now.UnixMilli()
		return endMs - d.Milliseconds(), endMs, nil
	}
	return r.customBounds()
}

func (r TimeRange) String() string { return string(r) }
