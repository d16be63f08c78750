package schedule

// Expand resolves shift once per day of r, in order.
func Expand(shift Shift, r DateRange) []Resolution {
	days := r.Days()
	out := make([]Resolution, len(days))
	for i, d := range days {
		out[i] = Resolve(shift, d)
	}
	return out
}

// Occurrences returns only the in-effect days of shift within r.
func Occurrences(shift Shift, r DateRange) []Occurrence {
	var out []Occurrence
	for _, d := range r.Days() {
		if occ := OccursOn(shift, d); occ != nil {
			out = append(out, *occ)
		}
	}
	return out
}

// ActiveOn returns the occurrences of every non-terminated shift on date,
// in input order. This is the schedule calendar's day view.
func ActiveOn(shifts []Shift, date Date) []Occurrence {
	var out []Occurrence
	for _, s := range shifts {
		if s.Terminated {
			continue
		}
		if occ := OccursOn(s, date); occ != nil {
			out = append(out, *occ)
		}
	}
	return out
}

// Label renders a resolution as the schedule grid shows it.
func Label(r Resolution) string {
	switch r.Reason {
	case ReasonInEffect:
		return FormatTime(r.Occurrence.StartTime) + " - " + FormatTime(r.Occurrence.EndTime)
	case ReasonExcluded:
		return "Excluded"
	case ReasonOffDay:
		return "Off Day"
	default:
		return "-"
	}
}
