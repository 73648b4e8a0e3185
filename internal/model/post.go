package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FileRef is a reference to an attachment or media file discovered in a
// post, pending download. It marshals as a two-element array
// ["name", "url"] so the output format stays compatible with archives
// produced by earlier versions of the scraper.
type FileRef struct {
	// Name is the file name as presented by the forum (unsanitized).
	Name string

	// URL is the absolute download URL.
	URL string
}

// MarshalJSON encodes the reference as ["name", "url"].
func (f FileRef) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{f.Name, f.URL})
}

// UnmarshalJSON decodes the ["name", "url"] pair form.
func (f *FileRef) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	f.Name = pair[0]
	f.URL = pair[1]
	return nil
}

// Crumb is one (forum id, forum name) segment of a breadcrumb path.
// It marshals as a two-element array ["id", "name"], matching FileRef.
type Crumb struct {
	// ID is the forum id as it appears in URLs (decimal string).
	ID string

	// Name is the human-readable forum title.
	Name string
}

// MarshalJSON encodes the crumb as ["id", "name"].
func (c Crumb) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{c.ID, c.Name})
}

// UnmarshalJSON decodes the ["id", "name"] pair form.
func (c *Crumb) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	c.ID = pair[0]
	c.Name = pair[1]
	return nil
}

// Breadcrumbs is the ordered path of forum segments from the root to the
// directory that holds a document. The last crumb is the owning forum.
type Breadcrumbs []Crumb

// Dirs returns the id segments used to build the on-disk directory path.
func (b Breadcrumbs) Dirs() []string {
	dirs := make([]string, len(b))
	for i, c := range b {
		dirs[i] = c.ID
	}
	return dirs
}

// String joins the crumb names with " / " for log and report output.
func (b Breadcrumbs) String() string {
	s := ""
	for i, c := range b {
		if i > 0 {
			s += " / "
		}
		s += c.Name
	}
	return s
}

// Date is a post or registration date. It is kept as the raw forum string
// unless date parsing is enabled, in which case it carries epoch seconds.
// The JSON form is either a string or an integer, never both.
type Date struct {
	// Raw is the date text exactly as scraped from the page.
	Raw string

	// Epoch is the parsed Unix timestamp in seconds.
	Epoch int64

	// Parsed reports whether Epoch is valid.
	Parsed bool
}

// MarshalJSON emits the epoch integer when parsed, the raw string otherwise.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.Parsed {
		return []byte(strconv.FormatInt(d.Epoch, 10)), nil
	}
	return json.Marshal(d.Raw)
}

// UnmarshalJSON accepts either the integer or the string form.
func (d *Date) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] != '"' {
		if err := json.Unmarshal(data, &d.Epoch); err != nil {
			return fmt.Errorf("date: %w", err)
		}
		d.Parsed = true
		return nil
	}
	d.Parsed = false
	return json.Unmarshal(data, &d.Raw)
}

// Post is one normalized forum post. A topic document is a JSON array of
// these, ordered by position within the topic.
type Post struct {
	// MsgID is the forum-global message id.
	MsgID int `json:"msg_id"`

	// UID is the author's user id. Zero for anonymous/deleted authors,
	// in which case it is omitted together with User.
	UID int `json:"uid,omitempty"`

	// User is the author's display name at scrape time.
	User string `json:"user,omitempty"`

	// Date is the posting date, raw or parsed per configuration.
	Date Date `json:"date"`

	// Content is the post body converted back to BBCode-style markup.
	Content string `json:"content"`

	// Files lists attachments pending download as (name, url) pairs.
	Files []FileRef `json:"files"`

	// Subject is the topic title the post belongs to.
	Subject string `json:"subject"`

	// TopicID is the owning topic id.
	TopicID int `json:"topic_id"`

	// Forum is the (id, name) pair of the owning forum.
	Forum Crumb `json:"forum"`

	// Media lists inline images referenced by the post body. They are
	// downloaded next to attachments but are not part of the persisted
	// record, since the URLs already appear inside Content.
	Media []FileRef `json:"-"`
}
