package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadNormalizesTickerAliases(t *testing.T) {
	path := writeFile(t, `{
		"updated_at": "2026-08-27T00:00:00Z",
		"instruments": [
			{"ticker": "sber", "figi": "F1", "lot": 10},
			{"secid": "rosn"},
			{"lot": 5}
		]
	}`)

	entries := Load(path)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (nameless entry dropped)", len(entries))
	}
	if entries[0].Symbol() != "SBER" || entries[1].Symbol() != "ROSN" {
		t.Errorf("symbols = %q, %q; want SBER, ROSN", entries[0].Symbol(), entries[1].Symbol())
	}
	if entries[0].Figi != "F1" || entries[0].Lot != 10 {
		t.Errorf("entry fields lost in normalization: %+v", entries[0])
	}
}

func TestLoadMissingOrCorruptFile(t *testing.T) {
	if got := Load(filepath.Join(t.TempDir(), "нет.json")); got != nil {
		t.Errorf("missing file must load as empty, got %v", got)
	}

	path := writeFile(t, "{broken")
	if got := Load(path); got != nil {
		t.Errorf("corrupt file must load as empty, got %v", got)
	}
}

func TestTickersPreserveOrderAndDedupe(t *testing.T) {
	entries := []Entry{
		{Ticker: "SBER"},
		{SecID: "ROSN"},
		{Ticker: "sber"},
		{Ticker: "VTBR"},
	}

	got := Tickers(entries)
	want := []string{"SBER", "ROSN", "VTBR"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v (enumeration order is a contract)", got, want)
		}
	}
}

func TestTickerSet(t *testing.T) {
	set := TickerSet([]Entry{{Ticker: "SBER"}, {SecID: "rosn"}})
	if !set["SBER"] || !set["ROSN"] {
		t.Errorf("set = %v, want SBER and ROSN present", set)
	}
	if set["VTBR"] {
		t.Error("unexpected membership")
	}
}
