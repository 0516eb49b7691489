package endpoint

import (
	"fmt"
	"net/url"
	"strings"

	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
)

// Join appends escaped path segments to base and returns the resulting URL.
// Empty and dot segments are rejected so an id cannot climb out of its collection.
func Join(base *url.URL, segments ...string) (string, error) {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		if s == "" || s == "." || s == ".." {
			return "", fmt.Errorf("%w: invalid path segment %q", domainErrors.ErrInvalidPayload, s)
		}
		escaped = append(escaped, url.PathEscape(s))
	}

	target := *base
	raw := strings.TrimSuffix(base.EscapedPath(), "/") + "/" + strings.Join(escaped, "/")
	unescaped, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainErrors.ErrInvalidPayload, err)
	}
	target.Path, target.RawPath = unescaped, raw
	return target.String(), nil
}
