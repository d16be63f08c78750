package attendance

import "github.com/warp/shift-engine/schedule"

// Cell is one (employee, date) slot of an attendance grid. Err is scoped to
// the cell; neighbouring cells are unaffected.
type Cell struct {
	Date   schedule.Date
	Result *Result
	Err    error
}

// Row is one employee across the grid's days.
type Row struct {
	Employee Employee
	Cells    []Cell
}

// Grid classifies every employee on every day of r.
func (c *Classifier) Grid(employees []Employee, r schedule.DateRange) []Row {
	days := r.Days()
	rows := make([]Row, len(employees))
	for i, emp := range employees {
		cells := make([]Cell, len(days))
		for j, d := range days {
			res, err := c.Classify(emp, d)
			cells[j] = Cell{Date: d, Result: res, Err: err}
		}
		rows[i] = Row{Employee: emp, Cells: cells}
	}
	return rows
}

// Week classifies the Sunday-to-Saturday week containing date.
func (c *Classifier) Week(employees []Employee, date schedule.Date) []Row {
	return c.Grid(employees, schedule.Week(date))
}
