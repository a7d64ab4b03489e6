package domain

import (
	"fmt"
	"time"
)

// Weekdays is a day-of-week bitmask; the zero value means every day.
type Weekdays uint8

// NewWeekdays builds a mask from time.Weekday numbers (0 = Sunday).
func NewWeekdays(days []int) (Weekdays, error) {
	var w Weekdays
	for _, d := range days {
		if d < int(time.Sunday) || d > int(time.Saturday) {
			return 0, fmt.Errorf("day_of_week %d out of range 0..6", d)
		}
		w |= 1 << uint(d)
	}
	return w, nil
}

// Includes reports whether the slot runs on day.
func (w Weekdays) Includes(day time.Weekday) bool {
	if w == 0 {
		return true
	}
	return w&(1<<uint(day)) != 0
}

// Days lists the selected days; empty means every day.
func (w Weekdays) Days() []int {
	out := make([]int, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if w&(1<<uint(d)) != 0 {
			out = append(out, int(d))
		}
	}
	return out
}
