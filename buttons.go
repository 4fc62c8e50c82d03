package main

import (
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Timestamp layout used in the footnote freshness sentence,
// e.g. "January 1, 2024, 10:00 AM".
const footnoteTimeLayout = "January 2, 2006, 3:04 PM"

// DetermineGroup classifies a location into its display bucket based on the
// leading character: digit -> "0-9", letter -> uppercased letter, anything
// else (including an empty location) -> "Other".
func DetermineGroup(location string) string {
	if location == "" {
		return "Other"
	}
	first := []rune(location)[0]
	switch {
	case unicode.IsDigit(first):
		return "0-9"
	case unicode.IsLetter(first):
		return strings.ToUpper(string(first))
	default:
		return "Other"
	}
}

// BuildParams builds the outbound search parameters for a location button.
// The key names are a stable contract with the search page:
// "idx-q-{mode}" carries the location and "idx-q-PropertyTypes<i>" carries
// the property type at position i.
func BuildParams(groupingMode, location string, propertyTypes []int) url.Values {
	params := url.Values{}
	params.Set("idx-q-"+groupingMode, location)
	for i, pt := range propertyTypes {
		params.Set(fmt.Sprintf("idx-q-PropertyTypes<%d>", i), strconv.Itoa(pt))
	}
	return params
}

// ButtonRenderer renders rows of the listing_counts table into a grouped
// HTML fragment of clickable location buttons. It is stateless: identical
// inputs always produce identical markup.
type ButtonRenderer struct {
	// SearchPath is the internal search endpoint the buttons link to.
	SearchPath string
	// CountFootnote is the explanation text always appended after the buttons.
	CountFootnote string
}

// NewButtonRenderer creates a renderer from the search configuration
func NewButtonRenderer(cfg SearchConfig) *ButtonRenderer {
	return &ButtonRenderer{
		SearchPath:    cfg.Path,
		CountFootnote: cfg.CountFootnote,
	}
}

// Render produces the HTML fragment for the given rows. Rows must already be
// sorted ascending by location; the query layer is responsible for ordering.
//
// In "tract" mode rows are grouped into collapsible sections by their
// first-character bucket. Every other mode emits one wrapper per row: the
// per-row wrapper is part of the markup contract with the site's CSS, so it
// is kept even though it differs from tract mode's persistent grouping.
// Rows with a zero count are skipped entirely and do not contribute to the
// footnote's freshness window.
func (r *ButtonRenderer) Render(rows []LocationCount, groupingMode string, propertyTypes []int) string {
	var b strings.Builder

	b.WriteString(`<div class="locations-with-counts ` + html.EscapeString(groupingMode) + `">`)

	var oldest, newest time.Time
	seen := false
	currentGroup := ""

	for _, row := range rows {
		if row.Count == 0 {
			continue
		}

		if !seen || row.LastUpdated.Before(oldest) {
			oldest = row.LastUpdated
		}
		if !seen || row.LastUpdated.After(newest) {
			newest = row.LastUpdated
		}
		seen = true

		if groupingMode == GroupingTract {
			group := DetermineGroup(row.Location)
			if group != currentGroup {
				if currentGroup != "" {
					b.WriteString(`</details>`)
				}
				b.WriteString(`<details class="btn-group zipcodes"><summary>` + html.EscapeString(group) + `</summary>`)
				currentGroup = group
			}
		} else {
			b.WriteString(`<div class="btn-group zipcodes">`)
		}

		// The encoded query goes into an attribute, so the pair separators
		// need entity escaping too.
		params := BuildParams(groupingMode, row.Location, propertyTypes)
		b.WriteString(`<a class="btn btn-default" href="` + r.SearchPath + `?` + html.EscapeString(params.Encode()) + `">`)
		b.WriteString(html.EscapeString(row.Location))
		b.WriteString(` (` + strconv.Itoa(row.Count) + `)</a>`)

		if groupingMode != GroupingTract {
			b.WriteString(`</div>`)
		}
	}

	if groupingMode == GroupingTract && currentGroup != "" {
		b.WriteString(`</details>`)
	}

	b.WriteString(`<p class="footnote">` + html.EscapeString(r.CountFootnote))
	if seen {
		b.WriteString(` Listing counts were last updated between ` +
			oldest.Format(footnoteTimeLayout) + ` and ` +
			newest.Format(footnoteTimeLayout) + `.`)
	}
	b.WriteString(`</p>`)

	b.WriteString(`</div>`)

	return b.String()
}
