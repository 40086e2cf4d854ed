package commands

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/enermsg/edikit/pkg/mapping"
	"github.com/enermsg/edikit/pkg/validate"
)

var severityStyles = map[validate.Severity]lipgloss.Style{
	validate.SeverityInfo:     lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	validate.SeverityWarning:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	validate.SeverityError:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	validate.SeverityCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
}

var plainStyle = lipgloss.NewStyle()

func severityStyle(s validate.Severity, noColor bool) lipgloss.Style {
	if noColor {
		return plainStyle
	}
	if style, ok := severityStyles[s]; ok {
		return style
	}
	return plainStyle
}

// renderIssues prints one validation finding per line, colored by severity.
func renderIssues(w io.Writer, issues []validate.Issue, noColor bool) {
	for _, issue := range issues {
		style := severityStyle(issue.Severity, noColor)
		loc := fmt.Sprintf("segment %d", issue.Location.SegmentNumber)
		if issue.Location.ElementIndex != nil {
			loc += fmt.Sprintf(", element %d", *issue.Location.ElementIndex)
		}
		if issue.Location.ComponentIndex != nil {
			loc += fmt.Sprintf(".%d", *issue.Location.ComponentIndex)
		}
		fmt.Fprintf(w, "%s %s (%s): %s\n",
			style.Render(issue.Severity.String()), issue.Code, loc, issue.Message)
	}
}

// renderMappingIssues prints recoverable mapping problems.
func renderMappingIssues(w io.Writer, issues []mapping.Issue, noColor bool) {
	style := severityStyle(validate.SeverityWarning, noColor)
	for _, issue := range issues {
		fmt.Fprintf(w, "%s %s.%s: %s\n",
			style.Render("warning"), issue.Entity, issue.Path, issue.Message)
	}
}

// parseSeverity maps a configuration name to a severity threshold.
func parseSeverity(name string) (validate.Severity, error) {
	switch name {
	case "info":
		return validate.SeverityInfo, nil
	case "warning":
		return validate.SeverityWarning, nil
	case "error":
		return validate.SeverityError, nil
	case "critical":
		return validate.SeverityCritical, nil
	}
	return 0, fmt.Errorf("unknown severity %q", name)
}

// parseLevel maps a configuration name to a validation level.
func parseLevel(name string) (validate.Level, error) {
	switch name {
	case "structure":
		return validate.LevelStructure, nil
	case "conditions":
		return validate.LevelConditions, nil
	case "full":
		return validate.LevelFull, nil
	}
	return 0, fmt.Errorf("unknown validation level %q", name)
}
