package feed

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ryosukesatoh/news-curator/internal/article"
)

// Quick date ranges offered next to the explicit from/to bounds.
const (
	RangeDay   = "1d"
	Range3Days = "3d"
	RangeWeek  = "1w"
	RangeMonth = "1m"
	RangeAll   = "all"
)

// QuickRange returns the lower bound for a named range relative to now. "all"
// and "" yield the zero time.
func QuickRange(name string, now time.Time) (time.Time, error) {
	switch name {
	case "", RangeAll:
		return time.Time{}, nil
	case RangeDay:
		return now.Add(-24 * time.Hour), nil
	case Range3Days:
		return now.Add(-3 * 24 * time.Hour), nil
	case RangeWeek:
		return now.Add(-7 * 24 * time.Hour), nil
	case RangeMonth:
		return now.AddDate(0, -1, 0), nil
	}
	return time.Time{}, fmt.Errorf("feed: unknown date range %q (supported: 1d, 3d, 1w, 1m, all)", name)
}

// FilterStateFromQuery builds a FilterState from URL parameters:
//
//	category, source (repeatable or comma separated), q, from, to, range,
//	author, tag, sort
//
// from and to accept RFC 3339 or YYYY-MM-DD; a date-only "to" covers the whole
// day. range, when set, overrides from.
func FilterStateFromQuery(q url.Values, now time.Time) (FilterState, error) {
	fs := FilterState{
		Category: article.Category(strings.TrimSpace(q.Get("category"))),
		Sources:  multi(q, "source"),
		Search:   q.Get("q"),
		Authors:  multi(q, "author"),
		Tags:     multi(q, "tag"),
		Sort:     SortKey(strings.TrimSpace(q.Get("sort"))),
	}

	var err error
	if v := q.Get("from"); v != "" {
		if fs.From, err = ParseBound(v, false); err != nil {
			return FilterState{}, err
		}
	}
	if v := q.Get("to"); v != "" {
		if fs.To, err = ParseBound(v, true); err != nil {
			return FilterState{}, err
		}
	}
	if v := q.Get("range"); v != "" && v != RangeAll {
		if fs.From, err = QuickRange(v, now); err != nil {
			return FilterState{}, err
		}
	}
	return fs, nil
}

// ParseBound parses a date bound. Date-only values used as an upper bound are
// moved to the last instant of that day.
func ParseBound(v string, upper bool) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("feed: invalid date %q (want YYYY-MM-DD or RFC 3339)", v)
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func multi(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
