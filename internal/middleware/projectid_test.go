package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gur1a/CheckList/internal/obfuscate"
)

// =========================================================================
// HELPERS
// =========================================================================

type panickingDecoder struct{}

func (panickingDecoder) Decode(string) (int64, error) { panic("boom") }

// probe records what the next handler saw.
type probe struct {
	called bool
	id     int64
	ok     bool
}

func (p *probe) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.called = true
		p.id, p.ok = ProjectIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func newBufferedLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func requestWithToken(param, token string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/api/boards?"+param+"="+url.QueryEscape(token), nil)
}

// =========================================================================
// ProjectID TESTS
// =========================================================================

func TestProjectID_ValidTokenAttachesID(t *testing.T) {
	codec := obfuscate.New()
	token, err := codec.Encode(42)
	require.NoError(t, err)

	logger, logs := newBufferedLogger()
	p := &probe{}
	h := ProjectID(codec, logger, "")(p.handler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithToken(DefaultProjectIDParam, token))

	assert.True(t, p.called)
	assert.True(t, p.ok)
	assert.Equal(t, int64(42), p.id)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, logs.String())
}

func TestProjectID_LegacyPaddedToken(t *testing.T) {
	logger, _ := newBufferedLogger()
	p := &probe{}
	h := ProjectID(obfuscate.New(), logger, "")(p.handler())

	// "MnF5TzBPeXEy" is a token minted by the old frontend for project 5.
	h.ServeHTTP(httptest.NewRecorder(), requestWithToken(DefaultProjectIDParam, "MnF5TzBPeXEy"))

	require.True(t, p.ok)
	assert.Equal(t, int64(5), p.id)
}

func TestProjectID_TrimsWhitespace(t *testing.T) {
	logger, _ := newBufferedLogger()
	p := &probe{}
	h := ProjectID(obfuscate.New(), logger, "")(p.handler())

	h.ServeHTTP(httptest.NewRecorder(), requestWithToken(DefaultProjectIDParam, "  YWJjZDBkY2Jh \n"))

	require.True(t, p.ok)
	assert.Equal(t, int64(5), p.id)
}

func TestProjectID_AbsentParamPassesThrough(t *testing.T) {
	logger, logs := newBufferedLogger()
	p := &probe{}
	h := ProjectID(obfuscate.New(), logger, "")(p.handler())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/boards", nil))

	assert.True(t, p.called)
	assert.False(t, p.ok)
	assert.Empty(t, logs.String())
}

func TestProjectID_FailOpen(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		wantKind string
	}{
		{name: "not base64", token: "not-base64!!!", wantKind: "invalid_format"},
		{name: "short payload", token: "YWJjZA==", wantKind: "invalid_length"},
		{name: "zero id", token: "YWJjZDVkY2Jh", wantKind: "not_positive"},
		{name: "non-digit core", token: "YWJjZDV4NWRjYmE=", wantKind: "non_digit_core"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := newBufferedLogger()
			p := &probe{}
			h := ProjectID(obfuscate.New(), logger, "")(p.handler())

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, requestWithToken(DefaultProjectIDParam, tt.token))

			assert.True(t, p.called, "next handler must run")
			assert.False(t, p.ok, "no project ID may be attached")
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Contains(t, logs.String(), `"level":"WARN"`)
			assert.Contains(t, logs.String(), `"kind":"`+tt.wantKind+`"`)
		})
	}
}

func TestProjectID_RecoversFromDecoderPanic(t *testing.T) {
	logger, logs := newBufferedLogger()
	p := &probe{}
	h := ProjectID(panickingDecoder{}, logger, "")(p.handler())

	require.NotPanics(t, func() {
		h.ServeHTTP(httptest.NewRecorder(), requestWithToken(DefaultProjectIDParam, "anything"))
	})

	assert.True(t, p.called)
	assert.False(t, p.ok)
	assert.Contains(t, logs.String(), "decoder panic")
}

func TestProjectID_CustomParam(t *testing.T) {
	codec := obfuscate.New()
	token, err := codec.Encode(9)
	require.NoError(t, err)

	logger, _ := newBufferedLogger()
	p := &probe{}
	h := ProjectID(codec, logger, "pid")(p.handler())

	h.ServeHTTP(httptest.NewRecorder(), requestWithToken("pid", token))
	require.True(t, p.ok)
	assert.Equal(t, int64(9), p.id)

	// The default key is ignored once a custom one is configured.
	p2 := &probe{}
	h2 := ProjectID(codec, logger, "pid")(p2.handler())
	h2.ServeHTTP(httptest.NewRecorder(), requestWithToken(DefaultProjectIDParam, token))
	assert.False(t, p2.ok)
}

func TestProjectIDFromContext_RejectsNonPositive(t *testing.T) {
	ctx := WithProjectID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), 0)
	_, ok := ProjectIDFromContext(ctx)
	assert.False(t, ok)
}
