package main

import (
	"strings"
	"testing"
)

func TestLoadBins(t *testing.T) {
	bins, err := loadBins(strings.NewReader(`
warehouse: WH-North
bins:
  - bin_code: A001
    location: Aisle 1
  - bin_code: B001
    warehouse_name: WH-South
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(bins) != 2 {
		t.Fatalf("expected 2 bins, got %d", len(bins))
	}
	if bins[0].BinCode != "A001" || bins[0].WarehouseName != "WH-North" || bins[0].Location != "Aisle 1" {
		t.Fatalf("default warehouse not applied: %+v", bins[0])
	}
	if bins[1].WarehouseName != "WH-South" {
		t.Fatalf("explicit warehouse overridden: %+v", bins[1])
	}
}

func TestLoadBinsRejectsBadInput(t *testing.T) {
	for name, doc := range map[string]string{
		"empty":         "warehouse: X\n",
		"unknown field": "bins:\n  - bin_code: A\n    colour: red\n",
		"not yaml":      "bins: [",
	} {
		if _, err := loadBins(strings.NewReader(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
