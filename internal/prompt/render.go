package prompt

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/anvil-platform/forge/internal/resolver"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	verbStyles  = map[resolver.ChangeType]lipgloss.Style{
		resolver.ChangeRemove:  lipgloss.NewStyle().Width(8).Foreground(lipgloss.Color("#EF4444")),
		resolver.ChangeUpdate:  lipgloss.NewStyle().Width(8).Foreground(lipgloss.Color("#F59E0B")),
		resolver.ChangeInstall: lipgloss.NewStyle().Width(8).Foreground(lipgloss.Color("#10B981")),
	}
)

// Changeset renders cs one change per line, removals first.
func Changeset(cs *resolver.Changeset) string {
	if cs.Len() == 0 {
		return subtleStyle.Render("Nothing to do.")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Planned changes"))
	b.WriteByte('\n')
	for _, c := range cs.Changes() {
		verb := verbStyles[c.Type].Render(strings.ToLower(string(c.Type)))
		fmt.Fprintf(&b, "  %s %s %s\n", verb, c.Module, subtleStyle.Render("("+c.Reason.String()+")"))
	}
	return b.String()
}

// Conflicts renders a conflict map sorted by identifier.
func Conflicts(conflicts map[string]string) string {
	if len(conflicts) == 0 {
		return subtleStyle.Render("No conflicts.")
	}
	ids := make([]string, 0, len(conflicts))
	for id := range conflicts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Conflicts"))
	b.WriteByte('\n')
	for _, id := range ids {
		fmt.Fprintf(&b, "  %s %s\n", id, conflicts[id])
	}
	return b.String()
}

// Audit renders the installable recommendations and suggestions of the installed set.
func Audit(a resolver.Audit) string {
	if len(a.Recommendations) == 0 && len(a.Suggestions) == 0 {
		return subtleStyle.Render("No recommendations.")
	}
	var b strings.Builder
	section := func(title, verb string, recs []resolver.Recommendation) {
		if len(recs) == 0 {
			return
		}
		b.WriteString(titleStyle.Render(title))
		b.WriteByte('\n')
		for _, rec := range recs {
			mark := " "
			if rec.Default {
				mark = "*"
			}
			fmt.Fprintf(&b, "  %s %s %s\n", mark, rec.Module, subtleStyle.Render(verb+" "+strings.Join(rec.By, ", ")))
		}
	}
	section("Recommendations", "recommended by", a.Recommendations)
	section("Suggestions", "suggested by", a.Suggestions)
	return b.String()
}

// Error renders a resolution failure with whatever detail the error carries.
func Error(err error) string {
	var b strings.Builder
	b.WriteString(errorStyle.Render("Error: " + err.Error()))
	b.WriteByte('\n')

	var inc *resolver.InconsistentError
	var tooMany *resolver.TooManyProvidersError
	switch {
	case errors.As(err, &inc):
		b.WriteString(inc.Pretty())
	case errors.As(err, &tooMany):
		fmt.Fprintf(&b, "Pick one with --provider %s=<module>:\n", tooMany.Requested)
		for _, c := range tooMany.Candidates {
			fmt.Fprintf(&b, "  %s\n", c)
		}
	}
	return b.String()
}
