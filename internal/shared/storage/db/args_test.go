package db

import "testing"

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		start, n int
		want     string
	}{
		{start: 1, n: 0, want: ""},
		{start: 1, n: 1, want: "$1"},
		{start: 2, n: 3, want: "$2, $3, $4"},
	}
	for _, tt := range tests {
		if got := Placeholders(tt.start, tt.n); got != tt.want {
			t.Fatalf("Placeholders(%d, %d) = %q, want %q", tt.start, tt.n, got, tt.want)
		}
	}
	if args := StringArgs([]string{"a", "b"}); len(args) != 2 || args[1] != "b" {
		t.Fatalf("unexpected args %v", args)
	}
}
