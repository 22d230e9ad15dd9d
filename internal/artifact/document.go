// Package artifact models the requirements document that is handed off
// between the requirements-generation agent and the work-item agent. The
// document is markdown whose requirements table rows begin with an ID of the
// form PROJECT-001; Parse lifts those rows into typed Requirement values so
// downstream consumers do not depend on the text layout.
package artifact

import (
	"fmt"
	"regexp"
	"strings"
)

// Requirement is one row of the requirements table.
type Requirement struct {
	// ID is the requirement identifier, e.g. "SALES-001".
	ID string
	// Description is a brief technical description.
	Description string
	// UserStory is the "As a ..., I want ..." narrative.
	UserStory string
	// ExpectedBehavior describes the implementation expectations.
	ExpectedBehavior string
}

// Document is the parsed requirements artifact. Raw preserves the full
// markdown for agents that consume the document as prose.
type Document struct {
	// Project is the shared ID prefix of the requirements, empty when rows
	// disagree.
	Project      string
	Requirements []Requirement
	Raw          string
}

var requirementIDRe = regexp.MustCompile(`^[A-Z][A-Z0-9]*-\d+$`)

// Parse extracts the requirements table from markdown content. Rows whose
// first cell is not a requirement ID (headers, separators, stray prose) are
// skipped. A document with no requirement rows is valid; the caller decides
// whether that is acceptable.
func Parse(content string) *Document {
	doc := &Document{Raw: content}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			continue
		}

		cells := splitRow(line)
		if len(cells) == 0 || !requirementIDRe.MatchString(cells[0]) {
			continue
		}

		req := Requirement{ID: cells[0]}
		if len(cells) > 1 {
			req.Description = cells[1]
		}
		if len(cells) > 2 {
			req.UserStory = cells[2]
		}
		if len(cells) > 3 {
			req.ExpectedBehavior = cells[3]
		}
		doc.Requirements = append(doc.Requirements, req)

		prefix := req.ID[:strings.Index(req.ID, "-")]
		switch {
		case doc.Project == "":
			doc.Project = prefix
		case doc.Project != prefix:
			doc.Project = ""
		}
	}
	return doc
}

// Summary reports how many requirements the document carries.
func (d *Document) Summary() string {
	if len(d.Requirements) == 0 {
		return "requirements document contains no requirement rows"
	}
	ids := make([]string, len(d.Requirements))
	for i, r := range d.Requirements {
		ids[i] = r.ID
	}
	return fmt.Sprintf("%d requirements: %s", len(d.Requirements), strings.Join(ids, ", "))
}

// splitRow splits a markdown table row into trimmed cells, dropping the
// empty leading and trailing fields produced by the outer pipes.
func splitRow(line string) []string {
	parts := strings.Split(line, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cells = append(cells, p)
		}
	}
	return cells
}
