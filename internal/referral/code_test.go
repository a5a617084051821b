package referral

import (
	"strings"
	"testing"
)

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(42)
	if err != nil {
		t.Fatalf("GenerateCode error: %v", err)
	}

	if !strings.HasPrefix(code, Prefix) {
		t.Fatalf("code %q must start with %q", code, Prefix)
	}
	if !ValidFormat(code) {
		t.Fatalf("generated code %q must pass format validation", code)
	}

	// Хвост случайный: повторная генерация для того же реферера даёт другой код.
	other, err := GenerateCode(42)
	if err != nil {
		t.Fatalf("GenerateCode error: %v", err)
	}
	if code == other {
		t.Fatalf("two generated codes are identical: %q", code)
	}
}

func TestValidFormat(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{name: "valid", code: "FID-16-AB23", want: true},
		{name: "missing prefix", code: "16-AB23", want: false},
		{name: "empty", code: "", want: false},
		{name: "lowercase tail", code: "FID-16-ab23", want: false},
		{name: "short tail", code: "FID-16-AB", want: false},
		{name: "missing referrer part", code: "FID--AB23", want: false},
		{name: "extra separator", code: "FID-16-AB-23", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidFormat(tt.code); got != tt.want {
				t.Fatalf("ValidFormat(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}
