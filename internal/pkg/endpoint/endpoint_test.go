package endpoint

import (
	"errors"
	"net/url"
	"testing"

	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
)

func TestJoin(t *testing.T) {
	cases := []struct {
		base     string
		segments []string
		want     string
	}{
		{"https://api.example.com/API", []string{"orders", "CD-1", "cancel"}, "https://api.example.com/API/orders/CD-1/cancel"},
		{"https://api.example.com/v1/", []string{"orders", "fw 1", "fulfillment"}, "https://api.example.com/v1/orders/fw%201/fulfillment"},
		{"https://api.example.com", []string{"orders", "../admin"}, "https://api.example.com/orders/..%2Fadmin"},
		{"https://api.example.com/API", []string{"orders", "a?b#c"}, "https://api.example.com/API/orders/a%3Fb%23c"},
	}
	for _, tc := range cases {
		base, err := url.Parse(tc.base)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.base, err)
		}
		got, err := Join(base, tc.segments...)
		if err != nil || got != tc.want {
			t.Fatalf("Join(%s, %q): expected %s, got %s %v", tc.base, tc.segments, tc.want, got, err)
		}
	}
}

func TestJoinRejectsDotSegments(t *testing.T) {
	base, _ := url.Parse("https://api.example.com/API")
	for _, segment := range []string{"", ".", ".."} {
		if _, err := Join(base, "orders", segment, "cancel"); !errors.Is(err, domainErrors.ErrInvalidPayload) {
			t.Fatalf("expected %q to be rejected, got %v", segment, err)
		}
	}
}
