package roster

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DisabledDay is the persisted marker for a slot without automation.
const DisabledDay = -1

// DayOfWeek is an optional weekday. The zero value is disabled.
type DayOfWeek struct {
	weekday time.Weekday
	ok      bool
}

// On returns an enabled slot for d.
func On(d time.Weekday) DayOfWeek {
	return DayOfWeek{weekday: d, ok: true}
}

// Disabled returns an empty slot.
func Disabled() DayOfWeek {
	return DayOfWeek{}
}

// DayOfWeekFromInt converts the persisted representation (-1 or 0..6).
func DayOfWeekFromInt(value int) (DayOfWeek, error) {
	if value == DisabledDay {
		return DayOfWeek{}, nil
	}
	if value < int(time.Sunday) || value > int(time.Saturday) {
		return DayOfWeek{}, fmt.Errorf("roster: invalid day of week %d", value)
	}
	return On(time.Weekday(value)), nil
}

// Get returns the weekday and whether the slot is enabled.
func (d DayOfWeek) Get() (time.Weekday, bool) {
	return d.weekday, d.ok
}

// Enabled reports whether the slot carries a weekday.
func (d DayOfWeek) Enabled() bool {
	return d.ok
}

// Matches reports whether the slot is enabled for w.
func (d DayOfWeek) Matches(w time.Weekday) bool {
	return d.ok && d.weekday == w
}

// Int returns the persisted representation.
func (d DayOfWeek) Int() int {
	if !d.ok {
		return DisabledDay
	}
	return int(d.weekday)
}

func (d DayOfWeek) String() string {
	if !d.ok {
		return "Unknown"
	}
	return d.weekday.String()[:3]
}

func (d DayOfWeek) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(d.Int())), nil
}

func (d *DayOfWeek) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = DayOfWeek{}
		return nil
	}
	var value int
	if errUnmarshal := json.Unmarshal(data, &value); errUnmarshal != nil {
		return fmt.Errorf("roster: day of week: %w", errUnmarshal)
	}
	parsed, errParse := DayOfWeekFromInt(value)
	if errParse != nil {
		return errParse
	}
	*d = parsed
	return nil
}

// DaySlots builds enabled slots from weekday numbers, mapping -1 to disabled.
func DaySlots(values ...int) ([]DayOfWeek, error) {
	out := make([]DayOfWeek, 0, len(values))
	for _, value := range values {
		slot, errSlot := DayOfWeekFromInt(value)
		if errSlot != nil {
			return nil, errSlot
		}
		out = append(out, slot)
	}
	return out, nil
}

// DayInts converts slots to their persisted representation.
func DayInts(slots []DayOfWeek) []int {
	out := make([]int, len(slots))
	for i, slot := range slots {
		out[i] = slot.Int()
	}
	return out
}
