package storage

import (
	"errors"
	"testing"

	"spikesim/internal/model"
)

func TestRunSummaryCodecRoundTrip(t *testing.T) {
	input := sampleSummary("run-1", "2026-08-30T00:00:00Z")

	data, err := EncodeRunSummary(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	output, err := DecodeRunSummary(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if output.RunID != input.RunID || output.Mode != input.Mode || output.Points != input.Points {
		t.Fatalf("round trip mismatch: got=%+v want=%+v", output, input)
	}
}

func TestDecodeRunSummaryVersionMismatch(t *testing.T) {
	input := sampleSummary("run-1", "2026-08-30T00:00:00Z")
	input.SchemaVersion = CurrentSchemaVersion + 1

	data, err := EncodeRunSummary(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRunSummary(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestRecordsCodecRoundTrip(t *testing.T) {
	rtb := 0.5
	input := map[string]model.Record{
		"(0.1, 0.2)": {ReturnToBaseline: &rtb, Voltages: []float64{-65, -60}, Trials: 3},
		"(0.1, 0.9)": {Invalid: true, Error: "all trials failed", Trials: 3},
	}

	data, err := EncodeRecords(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	output, err := DecodeRecords(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(output) != 2 {
		t.Fatalf("unexpected record count: got=%d want=2", len(output))
	}
	record := output["(0.1, 0.2)"]
	if record.ReturnToBaseline == nil || *record.ReturnToBaseline != 0.5 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if !output["(0.1, 0.9)"].Invalid {
		t.Fatal("invalid flag lost in round trip")
	}
}
