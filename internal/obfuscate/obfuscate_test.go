package obfuscate

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// fixedPad returns a reader that yields bytes 0,1,2,3 → pad "abcd".
func fixedPad() *bytes.Reader {
	return bytes.NewReader([]byte{0, 1, 2, 3})
}

// =========================================================================
// ENCODE TESTS
// =========================================================================

func TestEncode_FiveShiftsToZero(t *testing.T) {
	c := New(WithRand(fixedPad()))

	token, err := c.Encode(5)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Equal(t, "abcd0dcba", string(raw))

	id, err := c.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
}

func TestEncode_LayoutWithRandomPad(t *testing.T) {
	token, err := Encode(5)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	require.Len(t, raw, 9)

	pad := string(raw[:4])
	suffix := string(raw[5:])
	assert.Equal(t, byte('0'), raw[4])
	assert.Equal(t, reverse(pad), suffix)
	for _, ch := range pad {
		assert.True(t, strings.ContainsRune(padAlphabet, ch), "pad char %q outside alphabet", ch)
	}
}

func TestEncode_MultiDigit(t *testing.T) {
	c := New(WithRand(fixedPad()))

	token, err := c.Encode(1234567890)
	require.NoError(t, err)

	raw, _ := base64.RawURLEncoding.DecodeString(token)
	assert.Equal(t, "abcd6789012345dcba", string(raw))
}

func TestEncode_URLSafeByDefault(t *testing.T) {
	for i := int64(1); i < 500; i++ {
		token, err := Encode(i * 7919)
		require.NoError(t, err)
		assert.NotContains(t, token, "=")
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "/")
	}
}

func TestEncode_StdEncodingMatchesLegacyFrontend(t *testing.T) {
	c := New(WithStdEncoding(), WithRand(bytes.NewReader([]byte{0, 1, 2, 3})))

	token, err := c.Encode(55)
	require.NoError(t, err)
	// "abcd" + "00" + "dcba" in padded standard Base64
	assert.Equal(t, "YWJjZDAwZGNiYQ==", token)
}

func TestEncode_RejectsNonPositive(t *testing.T) {
	for _, id := range []int64{0, -1, -42} {
		_, err := Encode(id)
		assert.ErrorIs(t, err, ErrNotPositive, "id %d", id)
	}
}

func TestEncode_RandomSourceFailure(t *testing.T) {
	c := New(WithRand(bytes.NewReader(nil)))

	_, err := c.Encode(7)
	assert.Error(t, err)
}

func TestEncode_NonDeterministic(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		token, err := Encode(42)
		require.NoError(t, err)
		seen[token] = true
	}
	// 200 draws from 62^4 pads; a handful of collisions would already be
	// astronomically unlikely.
	assert.Greater(t, len(seen), 195)
}

// =========================================================================
// DECODE TESTS
// =========================================================================

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		want    int64
		wantErr error
	}{
		{name: "captured legacy token", token: "MnF5TzBPeXEy", want: 5},
		{name: "url-safe raw", token: "YWJjZDBkY2Jh", want: 5},
		{name: "std padded", token: "YWJjZDAwZGNiYQ==", want: 55},
		{name: "std padding stripped", token: "YWJjZDAwZGNiYQ", want: 55},
		{name: "four digits", token: "YUIzeDY3ODl4M0Jh", want: 1234},
		{name: "not base64", token: "not-base64!!!", wantErr: ErrInvalidFormat},
		{name: "empty", token: "", wantErr: ErrInvalidFormat},
		{name: "too short", token: "YWJjZA==", wantErr: ErrInvalidLength},
		{name: "empty core", token: base64.StdEncoding.EncodeToString([]byte("abcddcba")), wantErr: ErrNotPositive},
		{name: "core decodes to zero", token: "YWJjZDVkY2Jh", wantErr: ErrNotPositive},
		{name: "core decodes to zeros", token: "YWJjZDU1ZGNiYQ==", wantErr: ErrNotPositive},
		{name: "non-digit core", token: "YWJjZDV4NWRjYmE=", wantErr: ErrNonDigitCore},
		{name: "overflow", token: base64.StdEncoding.EncodeToString([]byte("abcd" + strings.Repeat("9", 25) + "dcba")), wantErr: ErrNotPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.token)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)

				var decErr *DecodeError
				require.True(t, errors.As(err, &decErr))
				assert.Equal(t, tt.token, decErr.Token)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_ErrorMessages(t *testing.T) {
	_, err := Decode("not-base64!!!")
	assert.EqualError(t, err, "obfuscate: invalid format")

	_, err = Decode("YWJjZA==")
	assert.EqualError(t, err, "obfuscate: invalid length")

	_, err = Decode("YWJjZDVkY2Jh")
	assert.EqualError(t, err, "obfuscate: not a positive integer")
}

func TestDecode_LenientKeepsLegacyArithmetic(t *testing.T) {
	c := New(WithLenientDigits())
	require.True(t, c.Lenient())

	// The legacy decoder saw the payload as UTF-16 code units after a UTF-8
	// decode, so pads and core are counted in characters, not bytes.
	tests := []struct {
		name    string
		payload string
		want    int64
		wantErr error
	}{
		// '5'→0, 'x'→7, '5'→0 → "070"
		{"ascii non-digit core", "abcd5x5dcba", 70, nil},
		{"plain digits", "abcd0dcba", 5, nil},
		// 'é' (U+00E9 = 233) → '0'
		{"multi-byte core parses to zero", "abcdédcba", 0, ErrNotPositive},
		// '6'→1, 'é'→0; on raw bytes this would read 126
		{"multi-byte character is one unit", "abcd6édcba", 10, nil},
		// 8 bytes but only 6 characters
		{"length counted in characters", "abcdéé", 0, ErrInvalidLength},
		// 0xFF is replaced by U+FFFD (65533) → '0'
		{"invalid utf-8 becomes replacement char", "abcd\xff6dcba", 1, nil},
		// U+1F600 is the surrogate pair D83D DE00: two units → "49"
		{"astral character is two units", "abcd\U0001F600dcba", 49, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := base64.StdEncoding.EncodeToString([]byte(tt.payload))
			id, err := c.Decode(token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}

	// Tokens from the legacy frontend decode the same either way.
	id, err := c.Decode("MnF5TzBPeXEy")
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
}

func TestDecode_LenientStopsAtFirstNonDigit(t *testing.T) {
	c := New(WithLenientDigits())

	// '6' → 1, ' ' → '/' which ends the number.
	token := base64.StdEncoding.EncodeToString([]byte("abcd6 66dcba"))
	id, err := c.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	// ' ' first → nothing parseable.
	token = base64.StdEncoding.EncodeToString([]byte("abcd 6dcba"))
	_, err = c.Decode(token)
	assert.ErrorIs(t, err, ErrNotPositive)
}

func TestParseLeadingInt(t *testing.T) {
	tests := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{"123", 123, true},
		{"12a3", 12, true},
		{"+7", 7, true},
		{"-7", -7, true},
		{"  9", 9, true},
		{"", 0, false},
		{"x1", 0, false},
		{"-", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseLeadingInt(tt.in)
		assert.Equal(t, tt.wantOK, ok, "parseLeadingInt(%q)", tt.in)
		assert.Equal(t, tt.want, got, "parseLeadingInt(%q)", tt.in)
	}
}

// =========================================================================
// PROPERTY TESTS
// =========================================================================

func TestRoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.Int64Range(1, 1<<62).Draw(t, "id")

		for i := 0; i < 5; i++ {
			token, err := Encode(id)
			if err != nil {
				t.Fatalf("Encode(%d): %v", id, err)
			}
			got, err := Decode(token)
			if err != nil {
				t.Fatalf("Decode(%q): %v", token, err)
			}
			if got != id {
				t.Fatalf("round trip: got %d, want %d", got, id)
			}
		}
	})
}

func TestRoundTrip_StdAndLenientCodecs(t *testing.T) {
	codecs := map[string]*Codec{
		"std":     New(WithStdEncoding()),
		"lenient": New(WithLenientDigits()),
	}
	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			rapid.Check(t, func(rt *rapid.T) {
				id := rapid.Int64Range(1, 1<<50).Draw(rt, "id")
				token, err := c.Encode(id)
				if err != nil {
					rt.Fatalf("Encode: %v", err)
				}
				got, err := c.Decode(token)
				if err != nil || got != id {
					rt.Fatalf("Decode(%q) = %d, %v; want %d", token, got, err, id)
				}
			})
		})
	}
}

func TestDecode_NeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		token := rapid.String().Draw(t, "token")
		_, _ = Decode(token)
		_, _ = New(WithLenientDigits()).Decode(token)
	})
}

func TestConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	errs := make(chan error, 64)

	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(base int64) {
			defer wg.Done()
			for i := int64(1); i <= 100; i++ {
				id := base*1000 + i
				token, err := Encode(id)
				if err != nil {
					errs <- err
					return
				}
				if got, err := Decode(token); err != nil || got != id {
					errs <- errors.New("round trip mismatch")
					return
				}
			}
		}(int64(g))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
