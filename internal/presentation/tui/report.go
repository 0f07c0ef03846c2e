// Package tui renders session reports for terminal display.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/warroomhq/warroom/pkg/domain"
)

// Report builds a Markdown engagement report from a session. Findings
// are grouped by severity, most severe first.
func Report(s *domain.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", s.Name)
	fmt.Fprintf(&b, "- **Session:** `%s`\n", s.ID)
	fmt.Fprintf(&b, "- **Mode:** %s\n", s.Mode)
	fmt.Fprintf(&b, "- **Status:** %s\n", s.Status)
	fmt.Fprintf(&b, "- **Created:** %s\n", s.CreatedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "- **Last activity:** %s\n", s.UpdatedAt.Format("2006-01-02 15:04 MST"))
	if len(s.Metadata) > 0 {
		b.WriteString("\n## Metadata\n\n")
		for _, kv := range sortedMetadata(s.Metadata) {
			fmt.Fprintf(&b, "- **%s:** %s\n", kv[0], kv[1])
		}
	}

	b.WriteString("\n## Findings\n\n")
	if len(s.Findings) == 0 {
		b.WriteString("No findings recorded.\n")
	} else {
		writeFindings(&b, s.Findings)
	}

	b.WriteString("\n## Tasks\n\n")
	if len(s.TaskQueue) == 0 {
		b.WriteString("No tasks queued.\n")
	} else {
		b.WriteString("| Tool | Target | Status |\n|---|---|---|\n")
		for _, task := range s.TaskQueue {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", task.ToolName, task.Target, task.Status)
		}
	}

	if len(s.ApprovalQueue) > 0 {
		b.WriteString("\n## Approvals\n\n")
		b.WriteString("| Action | Risk | Status |\n|---|---|---|\n")
		for _, approval := range s.ApprovalQueue {
			fmt.Fprintf(&b, "| %s | %s | %s |\n",
				approval.Action.Description, approval.Action.RiskLevel, approval.Status)
		}
	}

	if len(s.Artifacts) > 0 {
		b.WriteString("\n## Artifacts\n\n")
		for _, artifact := range s.Artifacts {
			fmt.Fprintf(&b, "- %s (`%s`): %s\n", artifact.Name, artifact.ArtifactType, artifact.Path)
		}
	}

	return b.String()
}

func writeFindings(b *strings.Builder, findings []domain.Finding) {
	grouped := make(map[domain.Severity][]domain.Finding)
	for _, f := range findings {
		grouped[f.Severity] = append(grouped[f.Severity], f)
	}

	severities := make([]domain.Severity, 0, len(grouped))
	for sev := range grouped {
		severities = append(severities, sev)
	}
	sort.Slice(severities, func(i, j int) bool {
		return severities[i].Compare(severities[j]) > 0
	})

	for _, sev := range severities {
		fmt.Fprintf(b, "### %s\n\n", sev)
		for _, f := range grouped[sev] {
			fmt.Fprintf(b, "- **%s** (%s)", f.Title, f.ToolSource)
			if f.Description != "" {
				fmt.Fprintf(b, ": %s", f.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
}

func sortedMetadata(m map[string]string) [][2]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, m[k]})
	}
	return out
}
