package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/liamroyal/etsy-software/internal/model"
)

func TestIsValidOrderNumber(t *testing.T) {
	tests := []struct {
		name   string
		number string
		valid  bool
	}{
		{
			name:   "etsy order number",
			number: "#3456789012",
			valid:  true,
		},
		{
			name:   "alphanumeric",
			number: "#A-1001",
			valid:  true,
		},
		{
			name:   "without hash",
			number: "3456789012",
			valid:  false,
		},
		{
			name:   "hash only",
			number: "#",
			valid:  false,
		},
		{
			name:   "contains space",
			number: "#1234 5678",
			valid:  false,
		},
		{
			name:   "empty string",
			number: "",
			valid:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidOrderNumber(tt.number)
			if got != tt.valid {
				t.Fatalf("IsValidOrderNumber(%q) = %v, want %v", tt.number, got, tt.valid)
			}
		})
	}
}

func TestValidateFulfillment(t *testing.T) {
	tests := []struct {
		name        string
		confirmed   bool
		fulfilledAt string
		cost        string
		ok          bool
	}{
		{name: "valid", confirmed: true, fulfilledAt: "AliExpress", cost: "12.40", ok: true},
		{name: "not confirmed", confirmed: false, fulfilledAt: "AliExpress", cost: "12.40"},
		{name: "blank place", confirmed: true, fulfilledAt: "   ", cost: "12.40"},
		{name: "zero cost", confirmed: true, fulfilledAt: "AliExpress", cost: "0"},
		{name: "negative cost", confirmed: true, fulfilledAt: "AliExpress", cost: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFulfillment(tt.confirmed, tt.fulfilledAt, decimal.RequireFromString(tt.cost))
			checkResult(t, err, tt.ok)
		})
	}
}

func TestValidateRefund(t *testing.T) {
	tests := []struct {
		name   string
		reason string
		pct    string
		ok     bool
	}{
		{name: "partial", reason: "damaged", pct: "50", ok: true},
		{name: "full", reason: "damaged", pct: "100", ok: true},
		{name: "no reason", reason: " ", pct: "50"},
		{name: "zero percent", reason: "damaged", pct: "0"},
		{name: "over hundred", reason: "damaged", pct: "100.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkResult(t, ValidateRefund(tt.reason, decimal.RequireFromString(tt.pct)), tt.ok)
		})
	}
}

func TestValidateFlagAndResolve(t *testing.T) {
	checkResult(t, ValidateFlag("parcel lost"), true)
	checkResult(t, ValidateFlag("\n"), false)

	checkResult(t, ValidateResolve(true, "reshipped"), true)
	checkResult(t, ValidateResolve(false, "reshipped"), false)
	checkResult(t, ValidateResolve(true, ""), false)
}

func TestValidateProduct(t *testing.T) {
	valid := model.Product{
		Name:              "Ceramic mug",
		Store:             "Main",
		Price:             decimal.RequireFromString("24.99"),
		Currency:          "AUD",
		FulfillmentLink:   "https://supplier.example/mug",
		ListingLink:       "https://etsy.example/listing/1",
		FulfillmentMethod: "dropship",
	}
	checkResult(t, ValidateProduct(valid), true)

	noPrice := valid
	noPrice.Price = decimal.Zero
	checkResult(t, ValidateProduct(noPrice), false)

	noListing := valid
	noListing.ListingLink = ""
	checkResult(t, ValidateProduct(noListing), false)
}

func TestValidateNote(t *testing.T) {
	checkResult(t, ValidateNote(model.Note{Title: "Restock"}), true)
	checkResult(t, ValidateNote(model.Note{Body: "call supplier"}), true)
	checkResult(t, ValidateNote(model.Note{Title: " ", Body: ""}), false)
}

func TestTrackingRowErrors(t *testing.T) {
	if errs := TrackingRowErrors("#1001", "LX123"); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	errs := TrackingRowErrors("1001", "")
	want := []string{"Order number must start with #", "Missing tracking number"}
	if len(errs) != len(want) || errs[0] != want[0] || errs[1] != want[1] {
		t.Fatalf("errors = %v, want %v", errs, want)
	}

	errs = TrackingRowErrors("", "LX123")
	if len(errs) != 1 || errs[0] != "Missing order number" {
		t.Fatalf("errors = %v", errs)
	}
}

func TestSanitizeText(t *testing.T) {
	got := SanitizeText("  <b>Parcel</b> lost<script>alert(1)</script> ")
	if got != "Parcel lost" {
		t.Fatalf("SanitizeText = %q", got)
	}
}

func checkResult(t *testing.T, err error, ok bool) {
	t.Helper()
	if ok && err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok && !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
