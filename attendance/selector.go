package attendance

import "github.com/warp/shift-engine/schedule"

// Candidate is a shift that resolved in effect for the day being classified.
type Candidate struct {
	Assignment Assignment
	Occurrence schedule.Occurrence
}

// ShiftSelector picks the shift that governs an employee's day when
// several assigned shifts are in effect. Candidates arrive in assignment order.
// A nil candidate with a nil error means the employee is not scheduled.
type ShiftSelector interface {
	Select(employee Employee, date schedule.Date, candidates []Candidate) (*Candidate, error)
}

// SelectorFunc adapts a function to ShiftSelector.
type SelectorFunc func(Employee, schedule.Date, []Candidate) (*Candidate, error)

func (f SelectorFunc) Select(e Employee, d schedule.Date, c []Candidate) (*Candidate, error) {
	return f(e, d, c)
}

// FirstMatch takes the first in-effect shift in assignment order and ignores
// the rest. Double bookings are not reported.
var FirstMatch ShiftSelector = SelectorFunc(func(_ Employee, _ schedule.Date, candidates []Candidate) (*Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	return &candidates[0], nil
})

// RejectAmbiguous fails with *AmbiguousShiftError when more than one shift applies.
var RejectAmbiguous ShiftSelector = SelectorFunc(func(e Employee, d schedule.Date, candidates []Candidate) (*Candidate, error) {
	switch len(candidates) {
	case 0:
		return nil, nil
	case 1:
		return &candidates[0], nil
	}
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.Assignment.Shift.ID
	}
	return nil, &AmbiguousShiftError{EmployeeID: e.ID, Date: d, ShiftIDs: ids}
})

// Candidates resolves every assigned shift on date and keeps the in-effect ones.
// Terminated shifts still count: historical attendance stays visible.
func Candidates(employee Employee, date schedule.Date) []Candidate {
	var out []Candidate
	for _, a := range employee.Assignments {
		if occ := schedule.OccursOn(a.Shift, date); occ != nil {
			out = append(out, Candidate{Assignment: a, Occurrence: *occ})
		}
	}
	return out
}
