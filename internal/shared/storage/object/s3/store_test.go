package s3

import (
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "user/file.pdf", want: "user/file.pdf"},
		{name: "simple prefix", prefix: "root", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix trailing slash", prefix: "root/", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/user/file.pdf", want: "root/user/file.pdf"},
		{name: "nested prefix", prefix: "root/sub", key: "user/file.pdf", want: "root/sub/user/file.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestStripPrefixInvertsApplyPrefix(t *testing.T) {
	t.Parallel()

	for _, prefix := range []string{"", "root", "root/sub/"} {
		key := "company-1/processed/file.pdf"
		if got := stripPrefix(prefix, applyPrefix(prefix, key)); got != key {
			t.Fatalf("prefix %q: got %q", prefix, got)
		}
	}
}

func TestValidateKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key     string
		wantErr bool
	}{
		{key: "company-1/notprocessed/a.pdf"},
		{key: "/company-1/a.pdf"},
		{key: "", wantErr: true},
		{key: "company-1/../other/a.pdf", wantErr: true},
	}
	for _, tt := range tests {
		err := validateKey(tt.key)
		if (err != nil) != tt.wantErr {
			t.Fatalf("validateKey(%q) err=%v, wantErr=%v", tt.key, err, tt.wantErr)
		}
	}
}

func TestIsNotFoundRecognisesAPIErrors(t *testing.T) {
	t.Parallel()

	if !isNotFound(&smithy.GenericAPIError{Code: "NotFound"}) {
		t.Fatalf("expected NotFound api error to map")
	}
	if !isNotFound(&s3types.NoSuchKey{}) {
		t.Fatalf("expected NoSuchKey to map")
	}
	if isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}) {
		t.Fatalf("AccessDenied must not map to not found")
	}
}
