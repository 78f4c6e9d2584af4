package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCookieCodecRoundTrip(t *testing.T) {
	codec := NewCookieCodec([]byte(strings.Repeat("x", 32)))
	encoded := codec.EncodeSessionID("abc")
	require.True(t, strings.HasPrefix(encoded, "abc."))

	id, ok := codec.DecodeSessionID(encoded)
	require.True(t, ok)
	require.Equal(t, "abc", id)
}

func TestCookieCodecRejectsTampering(t *testing.T) {
	codec := NewCookieCodec([]byte(strings.Repeat("x", 32)))
	other := NewCookieCodec([]byte(strings.Repeat("y", 32)))
	good := codec.EncodeSessionID("abc")

	for name, value := range map[string]string{
		"extra byte":   good + "x",
		"swapped id":   "abd" + strings.TrimPrefix(good, "abc"),
		"other secret": other.EncodeSessionID("abc"),
		"no signature": "abc",
		"empty id":     "." + strings.TrimPrefix(good, "abc."),
		"bad base64":   "abc.!!!",
	} {
		t.Run(name, func(t *testing.T) {
			_, ok := codec.DecodeSessionID(value)
			require.False(t, ok)
		})
	}
}

func TestCookieCodecUnsigned(t *testing.T) {
	codec := NewCookieCodec(nil)
	require.Equal(t, "abc", codec.EncodeSessionID("abc"))

	id, ok := codec.DecodeSessionID("abc")
	require.True(t, ok)
	require.Equal(t, "abc", id)

	_, ok = codec.DecodeSessionID("")
	require.False(t, ok)
}

func TestSessionCookieHelpers(t *testing.T) {
	rr := httptest.NewRecorder()
	SetSessionCookie(rr, "v", 10*time.Minute, true)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	require.Equal(t, SessionCookieName, c.Name)
	require.Equal(t, "v", c.Value)
	require.Equal(t, 600, c.MaxAge)
	require.True(t, c.HttpOnly)
	require.True(t, c.Secure)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)

	rr = httptest.NewRecorder()
	ClearSessionCookie(rr, false)
	cookies = rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge)
	require.Empty(t, cookies[0].Value)
}

func TestCookieCodecSessionIDFromRequest(t *testing.T) {
	codec := NewCookieCodec([]byte(strings.Repeat("k", 32)))

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	_, ok := codec.SessionIDFromRequest(req)
	require.False(t, ok)

	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: codec.EncodeSessionID("sess-1")})
	id, ok := codec.SessionIDFromRequest(req)
	require.True(t, ok)
	require.Equal(t, "sess-1", id)

	forged := httptest.NewRequest(http.MethodGet, "/profile", nil)
	forged.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-1.bogus"})
	_, ok = codec.SessionIDFromRequest(forged)
	require.False(t, ok)
}
