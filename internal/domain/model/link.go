package model

// LinkCategory groups contact links on the public page.
type LinkCategory struct {
	ID   int64
	Name string
}

// ContactLink is a named external link shown on the public page.
// CategoryName is populated by stores that join against link_categories.
type ContactLink struct {
	ID           int64
	Name         string
	Href         string
	CategoryID   int64
	CategoryName string
}

// StaticLink is a contact link declared in the configuration file rather than
// the database. It is referenced by category name.
type StaticLink struct {
	Category string `yaml:"category"`
	Name     string `yaml:"name"`
	Href     string `yaml:"href"`
}

// LinkGroup is the set of links rendered under one category heading.
type LinkGroup struct {
	Category string
	Links    []ContactLink
}
