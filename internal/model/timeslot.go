package model

import "fmt"

// Timeslots are fixed one-hour blocks. Slot 1 starts at 08:00 and
// slot 9 ends at 17:00.
const (
	FirstTimeslot  = 1
	LastTimeslot   = 9
	firstSlotHour  = 8
	timeslotLayout = "%02d:00"
)

// Timeslot is a resolved slot with its wall-clock bounds (HH:MM).
type Timeslot struct {
	ID    uint8  `json:"id"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// TimeslotByID maps a slot id to its start and end times. ok is false
// for ids outside FirstTimeslot..LastTimeslot.
func TimeslotByID(id int) (start, end string, ok bool) {
	if id < FirstTimeslot || id > LastTimeslot {
		return "", "", false
	}
	h := firstSlotHour + id - 1
	return fmt.Sprintf(timeslotLayout, h), fmt.Sprintf(timeslotLayout, h+1), true
}

// ValidTimeslot reports whether id names one of the fixed slots.
func ValidTimeslot(id int) bool {
	return id >= FirstTimeslot && id <= LastTimeslot
}

// Timeslots returns every slot in order.
func Timeslots() []Timeslot {
	out := make([]Timeslot, 0, LastTimeslot)
	for id := FirstTimeslot; id <= LastTimeslot; id++ {
		s, e, _ := TimeslotByID(id)
		out = append(out, Timeslot{ID: uint8(id), Start: s, End: e})
	}
	return out
}
