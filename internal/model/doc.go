// Package model defines the record types persisted by phpbbdump:
// forum posts, member list entries, and the breadcrumb paths that
// locate them in the forum hierarchy.
package model
