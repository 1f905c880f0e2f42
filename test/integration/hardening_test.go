//go:build integration

package integration

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityHeadersOnResponses(t *testing.T) {
	portal := newPortal(t, newFakeUpstream(t))

	resp, err := http.Get(portal.URL + "/api/v1/hotels")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", resp.Header.Get("Referrer-Policy"))
}

func TestEveryBrowserGetsASessionCookie(t *testing.T) {
	portal := newPortal(t, newFakeUpstream(t))

	resp, err := http.Get(portal.URL + "/api/v1/refdata/states")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var sid *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "sid" {
			sid = c
		}
	}
	require.NotNil(t, sid)
	assert.True(t, sid.HttpOnly)
	assert.NotEmpty(t, sid.Value)
}

func TestDocsEndpoints(t *testing.T) {
	portal := newPortal(t, newFakeUpstream(t))

	resp, err := http.Get(portal.URL + "/openapi.yaml")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "openapi: 3.0.3")
	assert.Contains(t, string(body), "/bookings/{draft_id}/submit")

	resp, err = http.Get(portal.URL + "/swagger")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "StayPortal API Docs")
}
