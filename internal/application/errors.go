package application

import "errors"

// Sentinel errors returned by application services.
var (
	// ErrAuthentication is the opaque credential-level failure: unknown user,
	// password mismatch, or a token that fails to decode, verify or is expired.
	ErrAuthentication = errors.New("authentication failed")

	// ErrLoginRequired means the request carries no valid session. The HTTP
	// boundary turns it into a redirect to the login page or a 401.
	ErrLoginRequired = errors.New("login required")

	// ErrForbidden is returned when a webhook signature is missing or wrong.
	ErrForbidden = errors.New("forbidden")

	// ErrUpgradeInProgress is returned when an upgrade, restart or shutdown is
	// requested while another sequence is still running.
	ErrUpgradeInProgress = errors.New("upgrade already in progress")

	// ErrUpgradeDisabled is returned for admin triggers when self-upgrade is
	// turned off by configuration.
	ErrUpgradeDisabled = errors.New("upgrade disabled")

	// ErrSubmissionNotFound is returned when archiving an unknown submission.
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrWebsiteClosed is returned when a submission arrives outside operating hours.
	ErrWebsiteClosed = errors.New("website is closed")
)
