package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
)

// PrefixSHA256 is the scheme prefix used by GitHub and Fourthwall signature headers.
const PrefixSHA256 = "sha256="

// Verifier checks HMAC-SHA256 webhook signatures over the raw request body.
type Verifier struct {
	secret []byte
	prefix string
}

// NewVerifier builds a verifier. An empty prefix selects the bare hex scheme.
func NewVerifier(secret, prefix string) *Verifier {
	return &Verifier{secret: []byte(secret), prefix: prefix}
}

// Verify compares header against the signature of payload in constant time.
func (v *Verifier) Verify(payload []byte, header string) error {
	if header == "" {
		return domainErrors.ErrMissingSignature
	}
	if !strings.HasPrefix(header, v.prefix) {
		return domainErrors.ErrInvalidSignature
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(header, v.prefix))
	if err != nil {
		return domainErrors.ErrInvalidSignature
	}
	if !hmac.Equal(provided, v.digest(payload)) {
		return domainErrors.ErrInvalidSignature
	}
	return nil
}

func (v *Verifier) digest(payload []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}
