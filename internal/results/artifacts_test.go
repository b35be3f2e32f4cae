package results

import (
	"os"
	"path/filepath"
	"testing"

	"spikesim/internal/model"
)

func sampleRecords() map[string]model.Record {
	rtb := 0.9
	return map[string]model.Record{
		"(0.1, 0.2)": {ReturnToBaseline: &rtb, Voltages: []float64{-65, -60}, Trials: 2},
		"(0.1, 0.5)": {Trials: 2, Invalid: true, Error: "all trials failed"},
	}
}

func TestWriteAndReadOutputDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")

	if err := WriteOutputDocument(path, sampleRecords()); err != nil {
		t.Fatalf("write: %v", err)
	}

	records, err := ReadOutputDocument(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("unexpected record count: got=%d want=2", len(records))
	}

	record, ok := records["(0.1, 0.2)"]
	if !ok {
		t.Fatal("expected record keyed by point identity")
	}
	if record.ReturnToBaseline == nil || *record.ReturnToBaseline != 0.9 {
		t.Fatalf("unexpected record: %+v", record)
	}

	invalid := records["(0.1, 0.5)"]
	if !invalid.Invalid || invalid.Error == "" {
		t.Fatalf("invalid point should round-trip its flag: %+v", invalid)
	}
}

func TestWriteOutputDocumentOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	if err := WriteOutputDocument(path, sampleRecords()); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteOutputDocument(path, map[string]model.Record{"(1)": {Trials: 1}}); err != nil {
		t.Fatalf("second write: %v", err)
	}

	records, err := ReadOutputDocument(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("rerun should replace the document: got=%d records", len(records))
	}
}

func TestWriteOutputDocumentRequiresPath(t *testing.T) {
	if err := WriteOutputDocument("  ", sampleRecords()); err == nil {
		t.Fatal("expected missing path error")
	}
}

func TestRunArtifactsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	artifacts := RunArtifacts{
		Summary: model.RunSummary{
			RunID:        "run-1",
			Mode:         model.ModeManifold,
			Filename:     "out.json",
			Points:       2,
			Trials:       2,
			CreatedAtUTC: "2026-08-30T00:00:00Z",
		},
		Records: sampleRecords(),
	}

	runDir, err := WriteRunArtifacts(dir, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if filepath.Base(runDir) != "run-1" {
		t.Fatalf("unexpected run dir: %s", runDir)
	}

	summary, ok, err := ReadRunSummary(dir, "run-1")
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if !ok || summary.RunID != "run-1" || summary.Mode != model.ModeManifold {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	records, ok, err := ReadRunRecords(dir, "run-1")
	if err != nil {
		t.Fatalf("read records: %v", err)
	}
	if !ok || len(records) != 2 {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); err == nil {
		t.Fatal("expected run id error")
	}
}

func TestRunIndexAppendAndList(t *testing.T) {
	dir := t.TempDir()

	first := RunIndexEntry{RunID: "run-1", Mode: model.ModeDisease, CreatedAtUTC: "2026-08-29T00:00:00Z"}
	second := RunIndexEntry{RunID: "run-2", Mode: model.ModeDisease, CreatedAtUTC: "2026-08-30T00:00:00Z"}
	if err := AppendRunIndex(dir, first); err != nil {
		t.Fatalf("append first: %v", err)
	}
	if err := AppendRunIndex(dir, second); err != nil {
		t.Fatalf("append second: %v", err)
	}

	entries, err := ListRunIndex(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("unexpected entry count: got=%d want=2", len(entries))
	}
	if entries[0].RunID != "run-2" {
		t.Fatalf("entries should sort newest first: got=%s", entries[0].RunID)
	}

	// Re-appending an existing run id replaces the entry in place.
	first.Points = 9
	if err := AppendRunIndex(dir, first); err != nil {
		t.Fatalf("re-append: %v", err)
	}
	entries, err = ListRunIndex(dir)
	if err != nil {
		t.Fatalf("list after re-append: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("re-append should not duplicate: got=%d entries", len(entries))
	}
}

func TestListRunIndexMissingFile(t *testing.T) {
	entries, err := ListRunIndex(t.TempDir())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("missing index should read empty: %+v", entries)
	}
}

func TestExportRun(t *testing.T) {
	base := t.TempDir()
	out := t.TempDir()

	artifacts := RunArtifacts{
		Summary: model.RunSummary{RunID: "run-1", CreatedAtUTC: "2026-08-30T00:00:00Z"},
		Records: sampleRecords(),
	}
	if _, err := WriteRunArtifacts(base, artifacts); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	dst, err := ExportRun(base, "run-1", out)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, file := range []string{"summary.json", "config.json", "records.json"} {
		if _, err := os.Stat(filepath.Join(dst, file)); err != nil {
			t.Fatalf("exported file missing: %s: %v", file, err)
		}
	}
}

func TestExportRunUnknownID(t *testing.T) {
	if _, err := ExportRun(t.TempDir(), "missing", t.TempDir()); err == nil {
		t.Fatal("expected error for unknown run id")
	}
}
