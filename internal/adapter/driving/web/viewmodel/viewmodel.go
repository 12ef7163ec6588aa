// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// DayHours is one row of the operating-hours table.
type DayHours struct {
	Day   string
	Hours string
}

// Link is a contact link as rendered on the public page and in the admin
// link editor.
type Link struct {
	ID         int64
	Name       string
	Href       string
	CategoryID int64
	Category   string
	Static     bool
}

// LinkGroup is a category heading with its links.
type LinkGroup struct {
	Category string
	Links    []Link
}

// Category is a link category option.
type Category struct {
	ID   int64
	Name string
}

// IndexPage holds the public landing page.
type IndexPage struct {
	ContentHTML  string
	LinkGroups   []LinkGroup
	HoursEnabled bool
	Open         bool
	Hours        []DayHours
	FormError    string
	CSRFToken    string
}

// LoginPage holds the login form.
type LoginPage struct {
	Next      string
	Failed    bool
	CSRFToken string
}

// Submission is a contact submission row on the admin page.
type Submission struct {
	ID          int64
	Email       string
	Phone       string
	MessageHTML string
	ReceivedAt  string
	ArchivedAt  string
}

// Upgrade is the upgrade controller panel on the admin page.
type Upgrade struct {
	Enabled    bool
	Branch     string
	State      string
	Action     string
	Trigger    string
	StartedAt  string
	FinishedAt string
	LastError  string
}

// AdminPage holds the admin dashboard.
type AdminPage struct {
	Username    string
	Active      []Submission
	Archived    []Submission
	Categories  []Category
	Links       []Link
	Upgrade     Upgrade
	PushEnabled bool
	Notice      string
	CSRFToken   string
}

// ClosedPage is shown instead of accepting a submission outside operating
// hours.
type ClosedPage struct {
	Detail string
	Hours  []DayHours
}
