package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warroomhq/warroom/pkg/domain"
)

func TestReport_GroupsFindingsBySeverity(t *testing.T) {
	s := domain.NewSession("acme external", domain.ModeOffensive)
	s.AddFinding("weak TLS config", domain.SeverityLow, "TLS 1.0 enabled", "sslyze", nil)
	s.AddFinding("RCE in upload handler", domain.SeverityCritical, "", "nuclei", nil)
	s.AddFinding("open admin panel", domain.SeverityHigh, "/admin without auth", "gobuster", nil)

	report := Report(s)

	criticalAt := strings.Index(report, "### CRITICAL")
	highAt := strings.Index(report, "### HIGH")
	lowAt := strings.Index(report, "### LOW")
	assert.Greater(t, criticalAt, 0)
	assert.Greater(t, highAt, criticalAt, "HIGH must come after CRITICAL")
	assert.Greater(t, lowAt, highAt, "LOW must come after HIGH")

	assert.Contains(t, report, "**RCE in upload handler** (nuclei)")
	assert.Contains(t, report, "**weak TLS config** (sslyze): TLS 1.0 enabled")
}

func TestReport_EmptySession(t *testing.T) {
	s := domain.NewSession("fresh", domain.ModeDefensive)
	report := Report(s)

	assert.Contains(t, report, "# fresh")
	assert.Contains(t, report, "No findings recorded.")
	assert.Contains(t, report, "No tasks queued.")
	assert.NotContains(t, report, "## Approvals")
	assert.NotContains(t, report, "## Artifacts")
}

func TestReport_TasksAndArtifacts(t *testing.T) {
	s := domain.NewSession("busy", domain.ModeOffensive)
	s.Metadata["scope"] = "10.0.0.0/24"
	s.QueueTask("nmap", "10.0.0.5", nil)
	s.AddArtifact(domain.ArtifactScreenshot, "login.png", "/tmp/login.png", nil)

	report := Report(s)
	assert.Contains(t, report, "| nmap | 10.0.0.5 | queued |")
	assert.Contains(t, report, "- login.png (`screenshot`): /tmp/login.png")
	assert.Contains(t, report, "**scope:** 10.0.0.0/24")
}
