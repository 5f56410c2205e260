// Package record parses semi-structured project-tracker text into typed records.
//
// Input is a sequence of "Field: value" lines, one block per project:
//
//	Project Name: SF - Inconsistencies 7
//	Status: In Progress
//	Created Time: 2024-01-10T09:30:00.000Z
//	Deployment Date: 2024-03-01
//	Total Project Hours: 12.5
//	Details: first line
//	continued details
//	Comments:
//	Task: QA pass
//	waiting on client
package record

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Inferred status values. They carry a note because the source text did not state them.
const (
	StatusDeployed   = "Deployed (inferred from dates)"
	StatusInProgress = "In Progress (inferred from dates)"
	StatusNotStarted = "Not Started (inferred from dates)"
	StatusUnknown    = "Unknown"
)

const (
	dateLayout     = "2006-01-02"
	detailsDivider = "---------------------------------------------------------------------"
)

// Project is one parsed project block. Nil pointers mean the field was absent or unparseable.
type Project struct {
	Name              string   `json:"project_name"`
	Status            string   `json:"status"`
	CreatedTime       *string  `json:"created_time"`
	OriginalDueDate   *string  `json:"original_due_date"`
	DeploymentDate    *string  `json:"deployment_date"`
	TotalProjectHours *float64 `json:"total_project_hours"`
	ProjectedDevHours *float64 `json:"projected_dev_hours"`
	ProjectedQIHours  *float64 `json:"projected_qi_hours"`
	Details           *string  `json:"details"`
	Task              string   `json:"task,omitempty"`
	Comments          *string  `json:"comments"`
}

var fieldStart = regexp.MustCompile(
	`^(Project Name|Status|Created Time|Original Due Date|Deployment Date|` +
		`Total Project Hours|Projected Dev Hours|Projected QI Hours|Details):`,
)

// Parse extracts every project block from text. now is used to infer a missing status.
func Parse(text string, now time.Time) []Project {
	p := parser{now: now, lines: strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")}
	return p.run()
}

type parser struct {
	now        time.Time
	lines      []string
	projects   []Project
	cur        *Project
	comments   []string
	inComments bool
}

func (p *parser) run() []Project {
	for i := 0; i < len(p.lines); i++ {
		line := strings.TrimSpace(p.lines[i])
		name, value, isField := splitField(line)

		switch {
		case isField && name == "Project Name":
			p.flush()
			p.cur = &Project{Name: value}
		case isField && name == "Details":
			i = p.readDetails(i, value)
		case isField:
			p.setField(name, value)
		case strings.HasPrefix(line, "Task:"):
			p.project().Task = strings.TrimSpace(strings.TrimPrefix(line, "Task:"))
			if p.inComments {
				p.comments = append(p.comments, line)
			}
		case strings.Contains(line, "Comments:"):
			p.inComments = true
			if rest := strings.TrimSpace(line[strings.Index(line, "Comments:")+len("Comments:"):]); rest != "" {
				p.comments = append(p.comments, rest)
			}
		case p.inComments:
			p.comments = append(p.comments, line)
		}
	}
	p.flush()
	return p.projects
}

// project returns the block being filled, starting an anonymous one if text precedes any name.
func (p *parser) project() *Project {
	if p.cur == nil {
		p.cur = &Project{}
	}
	return p.cur
}

func (p *parser) setField(name, value string) {
	cur := p.project()
	switch name {
	case "Status":
		if value != "" {
			cur.Status = value
		}
	case "Created Time":
		cur.CreatedTime = parseDate(value)
	case "Original Due Date":
		cur.OriginalDueDate = parseDate(value)
	case "Deployment Date":
		cur.DeploymentDate = parseDate(value)
	case "Total Project Hours":
		cur.TotalProjectHours = parseNumber(value)
	case "Projected Dev Hours":
		cur.ProjectedDevHours = parseNumber(value)
	case "Projected QI Hours":
		cur.ProjectedQIHours = parseNumber(value)
	}
}

// readDetails consumes continuation lines after "Details:" and returns the index of the last one consumed.
func (p *parser) readDetails(i int, first string) int {
	lines := []string{first}
	for i+1 < len(p.lines) {
		next := strings.TrimSpace(p.lines[i+1])
		if fieldStart.MatchString(next) || strings.Contains(next, "Comments:") {
			break
		}
		lines = append(lines, next)
		i++
	}
	details := strings.TrimSpace(strings.Join(lines, "\n"))
	if details == detailsDivider {
		p.project().Details = nil
	} else {
		p.project().Details = &details
	}
	return i
}

// flush closes the current block. Blocks without a project name are dropped.
func (p *parser) flush() {
	if p.cur != nil && p.cur.Name != "" {
		p.cur.Comments = finalizeComments(p.comments)
		p.cur.Status = InferStatus(*p.cur, p.now)
		p.projects = append(p.projects, *p.cur)
	}
	p.cur = nil
	p.comments = nil
	p.inComments = false
}

// InferStatus returns the stated status, or one derived from the project's dates.
func InferStatus(pr Project, now time.Time) string {
	if pr.Status != "" {
		return pr.Status
	}
	if pr.DeploymentDate != nil {
		dep, err := time.Parse(dateLayout, *pr.DeploymentDate)
		if err != nil {
			return StatusUnknown
		}
		today := truncateToDay(now.UTC())
		if dep.Before(today) {
			return StatusDeployed
		}
		return StatusInProgress
	}
	if pr.CreatedTime != nil {
		return StatusNotStarted
	}
	return StatusUnknown
}

func splitField(line string) (name, value string, ok bool) {
	if !fieldStart.MatchString(line) {
		return "", "", false
	}
	name, value, _ = strings.Cut(line, ":")
	return name, strings.TrimSpace(value), true
}

func finalizeComments(lines []string) *string {
	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if text == "" || strings.Contains(strings.ToLower(text), "no comments available") {
		return nil
	}
	return &text
}

func parseNumber(value string) *float64 {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "n/a", "na", `n\a`, `n\/a`:
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseDate(value string) *string {
	value = strings.TrimSpace(value)
	for _, layout := range []string{dateLayout, "2006-01-02T15:04:05.000Z", time.RFC3339Nano} {
		if t, err := time.Parse(layout, value); err == nil {
			s := t.Format(dateLayout)
			return &s
		}
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
