package validate

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
)

func TestIsHHMM(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"00:00": true,
		"09:30": true,
		"23:59": true,
		"24:00": false,
		"9:30":  false,
		"12:60": false,
		"12:30:00": false,
	}
	for in, want := range tests {
		if got := IsHHMM(in); got != want {
			t.Fatalf("IsHHMM(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsSubdomain(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"acme":      true,
		"acme-corp": true,
		"ab":        false,
		"-acme":     false,
		"Acme":      false,
		"acme_corp": false,
	}
	for in, want := range tests {
		if got := IsSubdomain(in); got != want {
			t.Fatalf("IsSubdomain(%q) = %v, want %v", in, got, want)
		}
	}
}

type registrationBody struct {
	Password string `json:"password" binding:"required,strongpassword"`
	Start    string `json:"start" binding:"required,hhmm"`
}

func TestRegisterInstallsRules(t *testing.T) {
	Register()

	if err := binding.Validator.ValidateStruct(registrationBody{Password: "Secret1!", Start: "08:00"}); err != nil {
		t.Fatalf("expected valid body, got %v", err)
	}
	if err := binding.Validator.ValidateStruct(registrationBody{Password: "weak", Start: "8:00"}); err == nil {
		t.Fatalf("expected validation errors")
	}
}
