package auth_test

import (
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webnis/webnis/internal/auth"
)

func newRequest(t *testing.T, headerName, headerValue string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)
	if headerValue != "" {
		req.Header.Set(headerName, headerValue)
	}
	return req
}

func TestExtractToken_Basic(t *testing.T) {
	creds := base64.StdEncoding.EncodeToString([]byte("mikevs:s3cret"))
	req := newRequest(t, "Authorization", "Basic "+creds)

	got, err := auth.ExtractToken(req, auth.HeaderPolicy{
		Header:   "Authorization",
		Scheme:   "Basic",
		Encoding: auth.EncodingBase64,
	})
	require.NoError(t, err)
	assert.Equal(t, "mikevs:s3cret", string(got))
}

func TestExtractToken_CustomScheme(t *testing.T) {
	req := newRequest(t, "Authorization", "X-Api-Key abc123")

	got, err := auth.ExtractToken(req, auth.HeaderPolicy{
		Header:   "Authorization",
		Scheme:   "X-Api-Key",
		Encoding: auth.EncodingRaw,
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", string(got))
}

func TestExtractToken_MissingHeader(t *testing.T) {
	req := newRequest(t, "Authorization", "")

	_, err := auth.ExtractToken(req, auth.HeaderPolicy{
		Header: "Authorization", Scheme: "Basic", Encoding: auth.EncodingBase64,
	})
	assert.ErrorIs(t, err, auth.ErrMissingHeader)
}

func TestExtractToken_SchemeMismatch(t *testing.T) {
	req := newRequest(t, "Authorization", "Bearer xyz")

	_, err := auth.ExtractToken(req, auth.HeaderPolicy{
		Header: "Authorization", Scheme: "Basic", Encoding: auth.EncodingBase64,
	})
	assert.ErrorIs(t, err, auth.ErrSchemeMismatch)
}

func TestExtractToken_MalformedBase64(t *testing.T) {
	req := newRequest(t, "Authorization", "Basic not-valid-base64!!")

	_, err := auth.ExtractToken(req, auth.HeaderPolicy{
		Header: "Authorization", Scheme: "Basic", Encoding: auth.EncodingBase64,
	})
	assert.ErrorIs(t, err, auth.ErrMalformedHeader)
}

func TestExtractToken_NoSchemeSeparator(t *testing.T) {
	req := newRequest(t, "Authorization", "justoneword")

	_, err := auth.ExtractToken(req, auth.HeaderPolicy{
		Header: "Authorization", Scheme: "Basic", Encoding: auth.EncodingBase64,
	})
	assert.ErrorIs(t, err, auth.ErrSchemeMismatch)
}
