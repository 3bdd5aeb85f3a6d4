package strategy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validProfileYAML = `meta:
  name: conservative
  version: "2"
  description: Tighter oversold screen for choppy markets
thresholds:
  rsi_max: 30
  distance_from_low_max_pct: 3
  volume_min: 2000000
run:
  top_n: 100
  lookback_days: 90
  max_workers: 8
`

func TestParse(t *testing.T) {
	profile, err := Parse([]byte(validProfileYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if profile.Meta.Name != "conservative" {
		t.Errorf("expected name=conservative, got %s", profile.Meta.Name)
	}
	if profile.Thresholds.RSIMax != 30 {
		t.Errorf("expected rsi_max=30, got %v", profile.Thresholds.RSIMax)
	}
	if profile.Thresholds.VolumeMin != 2_000_000 {
		t.Errorf("expected volume_min=2000000, got %d", profile.Thresholds.VolumeMin)
	}
	if profile.Run.TopN != 100 {
		t.Errorf("expected top_n=100, got %d", profile.Run.TopN)
	}
}

func TestParseUnknownField(t *testing.T) {
	yaml := strings.Replace(validProfileYAML, "rsi_max:", "rsi_maximum:", 1)

	if _, err := Parse([]byte(yaml)); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseInvalidTopN(t *testing.T) {
	yaml := strings.Replace(validProfileYAML, "top_n: 100", "top_n: 37", 1)

	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for top_n outside presets")
	}
	if !strings.Contains(err.Error(), "top_n") {
		t.Errorf("expected top_n in error, got %v", err)
	}
}

func TestParseThresholdOutOfRange(t *testing.T) {
	yaml := strings.Replace(validProfileYAML, "rsi_max: 30", "rsi_max: 70", 1)

	if _, err := Parse([]byte(yaml)); err == nil {
		t.Fatal("expected error for rsi_max above ceiling")
	}
}

func TestParseShortLookback(t *testing.T) {
	yaml := strings.Replace(validProfileYAML, "lookback_days: 90", "lookback_days: 20", 1)

	if _, err := Parse([]byte(yaml)); err == nil {
		t.Fatal("expected error for lookback below the indicator window")
	}
}

func TestValidateMissingName(t *testing.T) {
	profile := Default()
	profile.Meta.Name = ""

	err := Validate(profile)
	if err == nil {
		t.Fatal("expected error for missing name")
	}
	if !strings.Contains(err.Error(), "meta.name") {
		t.Errorf("expected meta.name in error, got %v", err)
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default profile must validate: %v", err)
	}
}

func TestHashDeterministic(t *testing.T) {
	profile, err := Parse([]byte(validProfileYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	hash, err := Hash(profile)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("expected 64 char hash, got %d", len(hash))
	}

	hash2, _ := Hash(profile)
	if hash != hash2 {
		t.Error("hash not deterministic")
	}

	// A changed threshold must change the fingerprint
	profile.Thresholds.RSIMax = 35
	hash3, _ := Hash(profile)
	if hash == hash3 {
		t.Error("hash must change when the profile changes")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	if err := os.WriteFile(path, []byte(validProfileYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	profile, raw, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if profile.Meta.Name != "conservative" {
		t.Errorf("expected name=conservative, got %s", profile.Meta.Name)
	}
	if len(raw) == 0 {
		t.Error("expected raw bytes returned")
	}

	if _, _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
