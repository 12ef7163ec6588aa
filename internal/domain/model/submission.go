package model

import "time"

// ContactSubmission is a message left through the public contact form.
// ArchivedAt is nil while the submission is active.
type ContactSubmission struct {
	ID         int64
	Email      string
	Message    string
	Phone      string
	ReceivedAt time.Time
	ArchivedAt *time.Time
}

// IsArchived reports whether the submission has been archived by an admin.
func (s ContactSubmission) IsArchived() bool {
	return s.ArchivedAt != nil
}
