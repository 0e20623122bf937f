package idhash

import (
	"testing"
	"time"

	"github.com/mr-tron/base58"
)

func TestComputeSaleID(t *testing.T) {
	tests := []struct {
		name     string
		groupID  int64
		feedHash string
	}{
		{name: "basic sale", groupID: 4242, feedHash: "f0e1d2c3"},
		{name: "empty feed hash", groupID: 1, feedHash: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSaleID(tt.groupID, tt.feedHash)
			if len(got) != 64 {
				t.Errorf("ComputeSaleID() length = %d, want 64", len(got))
			}

			got2 := ComputeSaleID(tt.groupID, tt.feedHash)
			if got != got2 {
				t.Errorf("ComputeSaleID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeSaleID_DifferentInputs(t *testing.T) {
	base := ComputeSaleID(100, "abc")

	if base == ComputeSaleID(101, "abc") {
		t.Error("Different group should produce different hash")
	}
	if base == ComputeSaleID(100, "abd") {
		t.Error("Different feed hash should produce different hash")
	}
}

func TestComputeSaleIDFromContent(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	base := ComputeSaleIDFromContent(1, 2, "Sword", 100, ts)

	if len(base) != 64 {
		t.Fatalf("length = %d, want 64", len(base))
	}
	if base != ComputeSaleIDFromContent(1, 2, "Sword", 100, ts) {
		t.Error("content hash not deterministic")
	}
	if base == ComputeSaleIDFromContent(1, 2, "Sword", 101, ts) {
		t.Error("Different amount should produce different hash")
	}
	if base == ComputeSaleIDFromContent(1, 2, "Sword", 100, ts.Add(time.Millisecond)) {
		t.Error("Different timestamp should produce different hash")
	}
}

func TestShortRef(t *testing.T) {
	id := ComputeSaleID(7, "tx")
	ref := ShortRef(id)

	decoded, err := base58.Decode(ref)
	if err != nil {
		t.Fatalf("ShortRef is not base58: %v", err)
	}
	if len(decoded) != 8 {
		t.Errorf("decoded length = %d, want 8", len(decoded))
	}
	if ref != ShortRef(id) {
		t.Error("ShortRef not deterministic")
	}
}

func TestShortRef_NonHex(t *testing.T) {
	ref := ShortRef("not-hex!")
	decoded, err := base58.Decode(ref)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(decoded) != "not-hex!" {
		t.Errorf("decoded = %q", decoded)
	}
}
