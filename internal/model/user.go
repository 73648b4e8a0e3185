package model

// User is one member-list row. The user listing document is a JSON array
// of these, ordered by position in the listing.
type User struct {
	// UID is the user id as it appears in profile URLs (decimal string).
	UID string `json:"uid"`

	// Date is the registration date, raw or parsed per configuration.
	Date Date `json:"date"`

	// User is the member's display name.
	User string `json:"user"`
}
