package agents

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yamagen/frontdesk/pkg/models"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	names := c.Names()
	if len(names) != 2 || names[0] != "research" || names[1] != "draft" {
		t.Fatalf("Names() = %v, want [research draft]", names)
	}

	draft, ok := c.Get("draft")
	if !ok {
		t.Fatal("draft agent missing from default catalog")
	}
	reviews := draft.ReviewPhases()
	if len(reviews) != 2 || reviews[0] != "proposals" || reviews[1] != "expand" {
		t.Errorf("draft review phases = %v, want [proposals expand]", reviews)
	}

	research, _ := c.Get("research")
	if len(research.ReviewPhases()) != 0 {
		t.Errorf("research should have no review checkpoints, got %v", research.ReviewPhases())
	}
	if research.DefaultEstimate.TimeHigh != 15*time.Minute {
		t.Errorf("research default estimate = %+v", research.DefaultEstimate)
	}
}

func TestNewCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		profiles []models.AgentProfile
	}{
		{"empty name", []models.AgentProfile{{Phases: []models.PhaseSpec{{Name: "a"}}}}},
		{"no phases", []models.AgentProfile{{Name: "x"}}},
		{"duplicate name", []models.AgentProfile{
			{Name: "x", Phases: []models.PhaseSpec{{Name: "a"}}},
			{Name: "x", Phases: []models.PhaseSpec{{Name: "b"}}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCatalog(tt.profiles); err == nil {
				t.Error("NewCatalog succeeded, want error")
			}
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	const doc = `
agents:
  - name: summarize
    label: meeting summarizer
    example: summarize yesterday's standup
    phases:
      - name: transcribe
      - name: outline
        review: true
      - name: publish
    default_estimate:
      time_low: 2m
      time_high: 6m
      cost_low_jpy: 5
      cost_high_jpy: 12
`
	path := filepath.Join(t.TempDir(), "agents.yaml")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("write catalog file: %v", err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}

	p, ok := c.Get("summarize")
	if !ok {
		t.Fatal("summarize agent not loaded")
	}
	if p.Label != "meeting summarizer" {
		t.Errorf("Label = %q", p.Label)
	}
	if len(p.Phases) != 3 || !p.Phases[1].Review {
		t.Errorf("Phases = %+v, want outline marked review", p.Phases)
	}
	if p.DefaultEstimate.TimeLow != 2*time.Minute || p.DefaultEstimate.CostHighJPY != 12 {
		t.Errorf("DefaultEstimate = %+v", p.DefaultEstimate)
	}
}

func TestLoadCatalog_Errors(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadCatalog on missing file succeeded")
	}

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(empty, []byte("agents: []\n"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadCatalog(empty); err == nil {
		t.Error("LoadCatalog on empty catalog succeeded")
	}
}

func TestExecutorSet(t *testing.T) {
	s := NewExecutorSet()
	if _, err := s.Get("research"); err == nil {
		t.Error("Get on empty set succeeded, want error")
	}

	demo := NewDemoExecutor()
	s.Register("research", demo)
	got, err := s.Get("research")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != PhaseExecutor(demo) {
		t.Error("Get returned a different executor")
	}
}
