package auth

import "testing"

func TestIsStrongPassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "valid", in: "Secret1!", want: true},
		{name: "too short", in: "Sec1!", want: false},
		{name: "no upper", in: "secret1!", want: false},
		{name: "no lower", in: "SECRET1!", want: false},
		{name: "no digit", in: "Secret!!", want: false},
		{name: "no special", in: "Secret12", want: false},
		{name: "special outside set", in: "Secret1#", want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsStrongPassword(tt.in); got != tt.want {
				t.Fatalf("IsStrongPassword(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Secret1!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "Secret1!") {
		t.Fatalf("expected password to match")
	}
	if CheckPassword(hash, "Secret2!") {
		t.Fatalf("expected mismatch")
	}
	if CheckPassword("", "Secret1!") {
		t.Fatalf("empty hash must not match")
	}
}
