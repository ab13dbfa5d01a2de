package domain

import "time"

// SortOrder selects the title ordering of course listings.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// ParseSortOrder maps the GraphQL argument to a SortOrder. Anything other
// than "ASC", including an absent value, sorts descending.
func ParseSortOrder(s *string) SortOrder {
	if s != nil && *s == string(SortAsc) {
		return SortAsc
	}
	return SortDesc
}

// Course is the main catalog entity. OwnerID is zero for courses that were
// created before ownership was recorded.
type Course struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Duration    string    `json:"duration" db:"duration"`
	Outcome     string    `json:"outcome" db:"outcome"`
	OwnerID     int64     `json:"-" db:"owner_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CourseFields holds the user editable attributes of a course.
type CourseFields struct {
	Title       string
	Description string
	Duration    string
	Outcome     string
}

// Apply overwrites every editable attribute of c with f.
func (c *Course) Apply(f CourseFields) {
	c.Title = f.Title
	c.Description = f.Description
	c.Duration = f.Duration
	c.Outcome = f.Outcome
}
