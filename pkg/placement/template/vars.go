package template

import (
	"time"

	"github.com/Abraxas-365/placement/pkg/placement"
)

// StudentVars returns the per-recipient variables for s.
func StudentVars(s placement.Student) Vars {
	v := Vars{
		"student_name": s.Name,
		"first_name":   s.FirstName(),
		"email":        s.Email,
		"branch":       s.Branch,
	}
	if s.CGPA != nil {
		v["cgpa"] = *s.CGPA
	}
	return v
}

// DriveVars returns the variables describing d. Unset dates are omitted so
// their tokens stay visible.
func DriveVars(d placement.Drive) Vars {
	v := Vars{
		"company_name": d.CompanyName,
		"role":         d.Role,
		"location":     d.Location,
		"ctc":          d.CTC,
	}
	if d.DriveDate != nil {
		v["drive_date"] = *d.DriveDate
	}
	if d.Deadline != nil {
		v["deadline"] = *d.Deadline
	}
	return v
}

// DateVars returns the send date variable.
func DateVars(now time.Time) Vars {
	return Vars{"date": now}
}
