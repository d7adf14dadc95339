// Package token implements stateless session tokens signed with HMAC-SHA256.
//
// A token binds the requesting client's User-Agent to an expiry instant. Both
// fields are signed, so a token can be verified without any server-side state.
package token

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ExpiryLayout is the textual form of a token expiry: UTC, no zone suffix,
// microsecond precision.
const ExpiryLayout = "2006-01-02T15:04:05.000000"

// expiryParseLayout also accepts expiries written without a fractional part.
const expiryParseLayout = "2006-01-02T15:04:05.999999999"

// MinSecretLen is the minimum accepted HMAC secret length in bytes.
const MinSecretLen = 16

// ErrDecode is returned by Parse when the input is not base64-encoded JSON.
var ErrDecode = errors.New("token is not valid base64-encoded JSON")

// ErrMalformedToken is returned by Parse when the decoded object does not
// carry exactly the user_agent, expiry and signature string fields.
var ErrMalformedToken = errors.New("token is malformed")

// ErrSecretTooShort is returned by NewCodec for secrets under MinSecretLen.
var ErrSecretTooShort = errors.New("token secret is too short")

// Token is a self-certifying session token. It is a value type; the zero
// value never validates.
type Token struct {
	userAgent string
	expiry    string
	signature string
}

// UserAgent returns the client user agent the token was issued to.
func (t Token) UserAgent() string { return t.userAgent }

// Expiry returns the raw expiry text.
func (t Token) Expiry() string { return t.expiry }

// Signature returns the base64 HMAC-SHA256 signature.
func (t Token) Signature() string { return t.signature }

// ExpiresAt parses the expiry text as a UTC instant.
func (t Token) ExpiresAt() (time.Time, error) {
	return time.ParseInLocation(expiryParseLayout, t.expiry, time.UTC)
}

// signedPayload is the exact object covered by the signature. Field order is
// the serialization order.
type signedPayload struct {
	UserAgent string `json:"user_agent"`
	Expiry    string `json:"expiry"`
}

// wireToken is the serialized form handed to clients.
type wireToken struct {
	UserAgent string `json:"user_agent"`
	Expiry    string `json:"expiry"`
	Signature string `json:"signature"`
}

// Codec issues and verifies tokens with a shared HMAC secret.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec creates a Codec signing with secret.
func NewCodec(secret []byte, opts ...Option) (*Codec, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("%w: got %d bytes, need at least %d", ErrSecretTooShort, len(secret), MinSecretLen)
	}

	c := &Codec{
		secret: bytes.Clone(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewCodecFromHex decodes a hex secret and creates a Codec with it.
func NewCodecFromHex(hexSecret string, opts ...Option) (*Codec, error) {
	secret, err := hex.DecodeString(hexSecret)
	if err != nil {
		return nil, fmt.Errorf("decoding hex secret: %w", err)
	}
	return NewCodec(secret, opts...)
}

// NewSecret returns n random bytes encoded as lowercase hex.
func NewSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Issue mints a token for userAgent expiring ttl from now. A negative ttl
// yields an already expired token. The token carries the canonical form of
// userAgent (see CanonicalUserAgent).
func (c *Codec) Issue(userAgent string, ttl time.Duration) Token {
	userAgent = CanonicalUserAgent(userAgent)
	expiry := c.now().UTC().Add(ttl).Format(ExpiryLayout)
	return Token{
		userAgent: userAgent,
		expiry:    expiry,
		signature: c.sign(userAgent, expiry),
	}
}

// Validate reports whether t carries a valid signature, was issued to
// requestUserAgent, and has not expired. The signature is checked first.
func (c *Codec) Validate(t Token, requestUserAgent string) bool {
	if t.expiry == "" || t.signature == "" {
		return false
	}

	expected := c.sign(t.userAgent, t.expiry)
	if !hmac.Equal([]byte(expected), []byte(t.signature)) {
		return false
	}

	if t.userAgent != CanonicalUserAgent(requestUserAgent) {
		return false
	}

	expiresAt, err := t.ExpiresAt()
	if err != nil {
		return false
	}
	return !c.now().UTC().After(expiresAt)
}

// CanonicalUserAgent returns ua as valid UTF-8. Bytes that are not part of a
// UTF-8 sequence are read as ISO-8859-1, the historical charset of header
// values, so every distinct header value keeps a distinct signed form.
func CanonicalUserAgent(ua string) string {
	if utf8.ValidString(ua) {
		return ua
	}

	var b strings.Builder
	b.Grow(len(ua) + 8)
	for i := 0; i < len(ua); {
		r, size := utf8.DecodeRuneInString(ua[i:])
		if r == utf8.RuneError && size == 1 {
			r = rune(ua[i])
		}
		b.WriteRune(r)
		i += size
	}
	return b.String()
}

func (c *Codec) sign(userAgent, expiry string) string {
	// Marshal of a struct of two strings cannot fail.
	payload, _ := json.Marshal(signedPayload{UserAgent: userAgent, Expiry: expiry})

	mac := hmac.New(sha256.New, c.secret)
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Serialize encodes t as base64 of its JSON object form.
func Serialize(t Token) string {
	raw, _ := json.Marshal(wireToken{
		UserAgent: t.userAgent,
		Expiry:    t.expiry,
		Signature: t.signature,
	})
	return base64.StdEncoding.EncodeToString(raw)
}

// Parse decodes a token produced by Serialize. The token is not verified;
// call Codec.Validate for that.
func Parse(encoded string) (Token, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(fields) != 3 {
		return Token{}, fmt.Errorf("%w: expected 3 fields, got %d", ErrMalformedToken, len(fields))
	}

	var t Token
	for key, dst := range map[string]*string{
		"user_agent": &t.userAgent,
		"expiry":     &t.expiry,
		"signature":  &t.signature,
	} {
		value, ok := fields[key]
		if !ok {
			return Token{}, fmt.Errorf("%w: missing %q", ErrMalformedToken, key)
		}
		if err := json.Unmarshal(value, dst); err != nil {
			return Token{}, fmt.Errorf("%w: %q is not a string", ErrMalformedToken, key)
		}
	}

	return t, nil
}
