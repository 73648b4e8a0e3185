package phpbb

import (
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/phpbbdump/internal/model"
)

// dateLayouts are the date formats phpBB's default language packs
// render, most specific first.
var dateLayouts = []string{
	"Mon Jan 02, 2006 3:04 pm",
	"Mon Jan 2, 2006 3:04 pm",
	"Jan 02, 2006 3:04 pm",
	"Jan 2, 2006 3:04 pm",
	"02 Jan 2006, 15:04",
	"2 Jan 2006, 15:04",
	"02.01.2006, 15:04",
	"02-01-2006 15:04",
	"2006-01-02 15:04",
}

// monthNames maps localized month and weekday tokens to the English
// forms the layouts expect. Russian boards are the common non-English
// case in the archives this tool grows.
var monthNames = map[string]string{
	"янв": "Jan", "фев": "Feb", "мар": "Mar", "апр": "Apr",
	"май": "May", "мая": "May", "июн": "Jun", "июл": "Jul",
	"авг": "Aug", "сен": "Sep", "окт": "Oct", "ноя": "Nov",
	"дек": "Dec",
	"пн": "Mon", "вт": "Tue", "ср": "Wed", "чт": "Thu",
	"пт": "Fri", "сб": "Sat", "вс": "Sun",
}

// parseForumDate parses a date string as the board rendered it.
func parseForumDate(raw string) (time.Time, error) {
	s := normalizeDate(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", raw)
}

// normalizeDate rewrites localized tokens to their English equivalents
// and collapses whitespace.
func normalizeDate(raw string) string {
	fields := strings.Fields(raw)
	for i, f := range fields {
		key := strings.ToLower(strings.TrimRight(f, ".,"))
		if en, ok := monthNames[key]; ok {
			suffix := ""
			if strings.HasSuffix(f, ",") {
				suffix = ","
			}
			fields[i] = en + suffix
		}
	}
	return strings.Join(fields, " ")
}

// parseDate wraps a scraped date string per configuration: raw
// verbatim, or epoch seconds when date parsing is on. A string the
// parser does not recognize stays raw rather than failing the page.
func (s *Site) parseDate(raw string) model.Date {
	d := model.Date{Raw: raw}
	if !s.cfg.ParseDate {
		return d
	}
	ts, err := parseForumDate(raw)
	if err != nil {
		s.logger.Debug("failed to parse date", "date", raw, "error", err)
		return d
	}
	return model.Date{Raw: raw, Epoch: ts.Unix(), Parsed: true}
}
