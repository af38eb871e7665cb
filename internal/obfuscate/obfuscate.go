// Package obfuscate turns numeric primary keys into opaque, URL-safe tokens
// and back again.
//
// WHAT THIS IS (AND ISN'T):
// The goal is only to keep sequential IDs like 41, 42, 43 out of URLs.
// The transform is a fixed digit shift wrapped in random padding and Base64.
// Anyone who reads this file can reverse it by hand, so it is NOT encryption
// and must never decide who may see a resource. Permission checks happen in
// the service layer no matter how the ID arrived.
//
// TOKEN LAYOUT (before Base64):
//
//	r0 r1 r2 r3 | shifted digits | r3 r2 r1 r0
//	 4 random      (d+5) mod 10     the pad reversed
//
// Example: id 5 with pad "aB3x" → "aB3x" + "0" + "x3Ba" → base64.
package obfuscate

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"
)

const (
	padLength  = 4
	digitShift = 5

	// minDecodedLength is the shortest payload that still has both pads.
	// A payload of exactly this length has an empty core and fails to parse.
	minDecodedLength = padLength * 2

	padAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Codec encodes and decodes identifiers. The zero value is not usable;
// build one with New. A Codec holds no mutable state and is safe for
// concurrent use.
type Codec struct {
	rand    io.Reader
	enc     *base64.Encoding
	lenient bool
}

// Option configures a Codec.
type Option func(*Codec)

// WithStdEncoding makes Encode emit standard, padded Base64, which is what
// the web frontend historically produced. Pads and digits are all
// alphanumeric, so the only visible difference is trailing '=' padding.
func WithStdEncoding() Option {
	return func(c *Codec) { c.enc = base64.StdEncoding }
}

// WithLenientDigits reproduces the legacy decoder: characters in the core
// are mapped with modulo arithmetic whether or not they are digits, and the
// result is parsed up to the first non-digit. Wrong-but-valid-looking IDs
// are possible in this mode. One deliberate difference: a leading digit run
// too large for int64 is rejected, where the legacy decoder produced a
// rounded float.
func WithLenientDigits() Option {
	return func(c *Codec) { c.lenient = true }
}

// WithRand replaces the padding randomness source. Tests use it to get
// deterministic tokens.
func WithRand(r io.Reader) Option {
	return func(c *Codec) { c.rand = r }
}

// New returns a Codec. By default it emits unpadded URL-safe Base64 and
// rejects tokens whose core contains anything other than digits.
func New(opts ...Option) *Codec {
	c := &Codec{
		rand: rand.Reader,
		enc:  base64.RawURLEncoding,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCodec = New()

// Encode obfuscates id with the default codec.
func Encode(id int64) (string, error) { return defaultCodec.Encode(id) }

// Decode reverses Encode with the default codec.
func Decode(token string) (int64, error) { return defaultCodec.Decode(token) }

// Lenient reports whether the codec uses the legacy modulo decoding.
func (c *Codec) Lenient() bool { return c.lenient }

// Encode turns a positive id into a token. Every call uses fresh padding,
// so encoding the same id twice gives two different tokens.
func (c *Codec) Encode(id int64) (string, error) {
	if id <= 0 {
		return "", &DecodeError{Kind: ErrNotPositive, Token: strconv.FormatInt(id, 10)}
	}

	digits := strconv.FormatInt(id, 10)
	shifted := make([]byte, len(digits))
	for i := 0; i < len(digits); i++ {
		shifted[i] = '0' + (digits[i]-'0'+digitShift)%10
	}

	pad, err := c.randomPad()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(shifted) + 2*padLength)
	b.Write(pad)
	b.Write(shifted)
	for i := padLength - 1; i >= 0; i-- {
		b.WriteByte(pad[i])
	}

	return c.enc.EncodeToString([]byte(b.String())), nil
}

// Decode turns a token back into its id. Failures are *DecodeError values
// that match ErrInvalidFormat, ErrInvalidLength, ErrNonDigitCore or
// ErrNotPositive with errors.Is.
func (c *Codec) Decode(token string) (int64, error) {
	decoded, ok := decodeBase64(token)
	if !ok {
		return 0, &DecodeError{Kind: ErrInvalidFormat, Token: token}
	}
	if c.lenient {
		return decodeLenient(decoded, token)
	}
	if len(decoded) < minDecodedLength {
		return 0, &DecodeError{Kind: ErrInvalidLength, Token: token}
	}

	core := decoded[padLength : len(decoded)-padLength]

	digits := make([]byte, len(core))
	for i := 0; i < len(core); i++ {
		ch := core[i]
		if ch < '0' || ch > '9' {
			return 0, &DecodeError{Kind: ErrNonDigitCore, Token: token}
		}
		digits[i] = '0' + (ch-'0'+10-digitShift)%10
	}

	id, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil || id <= 0 {
		return 0, &DecodeError{Kind: ErrNotPositive, Token: token}
	}
	return id, nil
}

// decodeLenient works on the payload as UTF-16 code units, the way the
// legacy decoder saw it after a UTF-8 decode: invalid bytes
// become U+FFFD and a multi-byte character counts as one or two units.
// Length and pads are measured in units, then ((c - '0' - 5 + 10) % 10) +
// '0' is applied to every core unit with a truncated remainder and the
// leading integer is parsed the way parseInt would.
func decodeLenient(decoded []byte, token string) (int64, error) {
	units := utf16.Encode([]rune(string(decoded)))
	if len(units) < minDecodedLength {
		return 0, &DecodeError{Kind: ErrInvalidLength, Token: token}
	}

	core := units[padLength : len(units)-padLength]
	mapped := make([]byte, len(core))
	for i, u := range core {
		// The remainder lies in (-10, 10), so every result is ASCII.
		mapped[i] = byte((int(u)-'0'-digitShift+10)%10 + '0')
	}

	id, ok := parseLeadingInt(string(mapped))
	if !ok || id <= 0 {
		return 0, &DecodeError{Kind: ErrNotPositive, Token: token}
	}
	return id, nil
}

// parseLeadingInt reads an optional sign and a run of digits. A run that
// overflows int64 is reported as not ok; parseInt would return an
// imprecise float there, which is no usable id either.
func parseLeadingInt(s string) (int64, bool) {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// decodeBase64 accepts every Base64 flavour a client might send: standard
// or URL alphabet, with or without '=' padding.
func decodeBase64(token string) ([]byte, bool) {
	if token == "" {
		return nil, false
	}
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	for _, enc := range encodings {
		if b, err := enc.DecodeString(token); err == nil {
			return b, true
		}
	}
	return nil, false
}

func (c *Codec) randomPad() ([]byte, error) {
	raw := make([]byte, padLength)
	if _, err := io.ReadFull(c.rand, raw); err != nil {
		return nil, fmt.Errorf("obfuscate: reading random padding: %w", err)
	}
	pad := make([]byte, padLength)
	for i, v := range raw {
		// 256 % 62 != 0, so the first few symbols are very slightly favoured.
		// Uniformity doesn't matter for padding.
		pad[i] = padAlphabet[int(v)%len(padAlphabet)]
	}
	return pad, nil
}
