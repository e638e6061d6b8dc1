package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AryaShetye/clarify-md/internal/config"
	"github.com/AryaShetye/clarify-md/internal/logging"
)

// setupOffline wires the package globals the way PersistentPreRunE would for
// an --offline run, with audit captured in memory. Restores on cleanup.
func setupOffline(t *testing.T) *logging.MemorySink {
	t.Helper()

	sink := &logging.MemorySink{}
	cfg = config.DefaultConfig()
	cfg.Audit.Path = ""
	logger = zap.NewNop()
	auditSink = sink
	offline = true
	jsonOut = true

	t.Cleanup(func() {
		cfg = nil
		logger = nil
		auditSink = nil
		offline = false
		jsonOut = false
	})
	return sink
}

func TestReadNarrative(t *testing.T) {
	got, err := readNarrative([]string{"my", "chest", "hurts"})
	if err != nil {
		t.Fatalf("readNarrative failed: %v", err)
	}
	if got != "my chest hurts" {
		t.Errorf("joined narrative = %q", got)
	}

	// From file
	path := filepath.Join(t.TempDir(), "narrative.txt")
	if err := os.WriteFile(path, []byte("the fog will not lift"), 0644); err != nil {
		t.Fatal(err)
	}
	narrativeFile = path
	defer func() { narrativeFile = "" }()

	got, err = readNarrative(nil)
	if err != nil {
		t.Fatalf("readNarrative --file failed: %v", err)
	}
	if got != "the fog will not lift" {
		t.Errorf("file narrative = %q", got)
	}
}

func TestReadNarrativeRequiresInput(t *testing.T) {
	if _, err := readNarrative(nil); err == nil {
		t.Error("readNarrative should fail with no args and no --file")
	}
}

func TestInterpretCmd_Offline(t *testing.T) {
	sink := setupOffline(t)

	err := runInterpret(&cobra.Command{}, []string{"I feel butterflies in my stomach all day"})
	if err != nil {
		t.Fatalf("runInterpret failed: %v", err)
	}

	// The run must have flowed through the audit sink
	if len(sink.ByType(logging.EventPipelineState)) == 0 {
		t.Error("no pipeline state transitions audited")
	}
}

func TestInterpretCmd_EmptyNarrativeFails(t *testing.T) {
	setupOffline(t)

	err := runInterpret(&cobra.Command{}, []string{"   "})
	if err == nil {
		t.Error("runInterpret should reject a whitespace-only narrative")
	}
}

func TestWhatIfCmd_Offline(t *testing.T) {
	setupOffline(t)

	baselineText = "I get winded climbing the stairs"
	hypotheticalText = "I cannot breathe even sitting still"
	defer func() { baselineText, hypotheticalText = "", "" }()

	if err := runWhatIf(&cobra.Command{}, nil); err != nil {
		t.Fatalf("runWhatIf failed: %v", err)
	}
}

func TestOntologyCmd(t *testing.T) {
	setupOffline(t)

	err := runOntologyLookup(&cobra.Command{}, []string{"all", "an elephant is sitting on my chest"})
	if err != nil {
		t.Fatalf("runOntologyLookup failed: %v", err)
	}

	err = runOntologyLookup(&cobra.Command{}, []string{"no-such-category", "some text"})
	if err == nil {
		t.Error("unknown category should fail")
	}
	if err != nil && !strings.Contains(err.Error(), "unknown category") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBuildEngine_FromTableFile(t *testing.T) {
	setupOffline(t)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	body := `rules:
  - category: chest-pain
    level: HIGH
    any_of: ["chest pain"]
    flag: chest pain reported
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	cfg.Override.TablePath = path

	engine, err := buildEngine()
	if err != nil {
		t.Fatalf("buildEngine failed: %v", err)
	}
	if engine.RuleCount() != 1 {
		t.Errorf("RuleCount = %d, want 1", engine.RuleCount())
	}

	floor := engine.Evaluate("sharp chest pain since this morning")
	if len(floor.TriggeredPatterns) == 0 {
		t.Error("loaded rule did not trigger")
	}
}

func TestBuildEngine_BadTablePathFails(t *testing.T) {
	setupOffline(t)
	cfg.Override.TablePath = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := buildEngine(); err == nil {
		t.Error("buildEngine should fail when the table file is unreadable")
	}
}

func TestBuildPort_OfflineSelectsFake(t *testing.T) {
	setupOffline(t)

	port, err := buildPort(context.Background())
	if err != nil {
		t.Fatalf("buildPort failed: %v", err)
	}
	defer port.Close()

	if port.Name() != "fake" {
		t.Errorf("port name = %q, want fake", port.Name())
	}
}
