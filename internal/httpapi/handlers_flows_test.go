package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strconv"
	"strings"
	"testing"
	"time"

	"qonnectme/internal/flows"

	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	generateFunc func(context.Context, string) (string, error)
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return s.generateFunc(ctx, prompt)
}

const themeBody = `{"musicTaste":"Tame Impala and psych rock","mediaDescription":"Sunset photos from desert road trips"}`

func newFlowAPI(t *testing.T, gen flows.Generator) *api {
	t.Helper()
	reg, err := flows.NewRegistry(flows.SuggestProfileTheme(gen))
	require.NoError(t, err)
	return &api{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		flows:       reg,
		flowLimiter: newFlowLimiter(),
	}
}

func runFlow(a *api, name, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/genkit/"+name, strings.NewReader(body))
	req.SetPathValue("flow", name)
	rr := httptest.NewRecorder()
	a.handleFlowRun(rr, req)
	return rr
}

func TestFlowRunReturnsSuggestion(t *testing.T) {
	a := newFlowAPI(t, &stubGenerator{generateFunc: func(context.Context, string) (string, error) {
		return `{"themeSuggestion":"Desert Dusk","styleSuggestion":"Warm gradients","colorPalette":"#E07A5F,#F2CC8F"}`, nil
	}})

	rr := runFlow(a, flows.SuggestProfileThemeFlowName, themeBody)
	require.Equal(t, http.StatusOK, rr.Code)

	var got flows.ThemeSuggestion
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	require.Equal(t, "Desert Dusk", got.ThemeSuggestion)
	require.Equal(t, "#E07A5F, #F2CC8F", got.ColorPalette)
}

func TestFlowRunInvalidInput(t *testing.T) {
	a := newFlowAPI(t, &stubGenerator{generateFunc: func(context.Context, string) (string, error) {
		t.Fatalf("generator should not run")
		return "", nil
	}})

	for _, body := range []string{`{not json`, `{"musicTaste":"short"}`, ``} {
		rr := runFlow(a, flows.SuggestProfileThemeFlowName, body)
		require.Equal(t, http.StatusBadRequest, rr.Code, body)

		var resp errorEnvelope
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		require.Equal(t, "invalid_input", resp.Error.Code)
		require.Equal(t, "Invalid input", resp.Error.Message)
		require.NotNil(t, resp.Error.Details)
	}
}

func TestFlowRunUnknownFlow(t *testing.T) {
	a := newFlowAPI(t, nil)

	rr := runFlow(a, "nopeFlow", themeBody)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFlowRunGeneratorFailureIsGeneric(t *testing.T) {
	a := newFlowAPI(t, &stubGenerator{generateFunc: func(context.Context, string) (string, error) {
		return "", errors.New("upstream quota exceeded: key=abc")
	}})

	rr := runFlow(a, flows.SuggestProfileThemeFlowName, themeBody)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "quota")
	require.Contains(t, rr.Body.String(), "An unexpected error occurred.")
}

func TestFlowRunRateLimited(t *testing.T) {
	calls := 0
	a := newFlowAPI(t, &stubGenerator{generateFunc: func(context.Context, string) (string, error) {
		calls++
		return `{"themeSuggestion":"a","styleSuggestion":"b","colorPalette":"#000000"}`, nil
	}})
	a.flowLimiter = newRateLimiter(time.Minute, 2)

	require.Equal(t, http.StatusOK, runFlow(a, flows.SuggestProfileThemeFlowName, themeBody).Code)
	require.Equal(t, http.StatusOK, runFlow(a, flows.SuggestProfileThemeFlowName, themeBody).Code)
	require.Equal(t, http.StatusTooManyRequests, runFlow(a, flows.SuggestProfileThemeFlowName, themeBody).Code)
	require.Equal(t, 2, calls)
}

func runFlowFrom(a *api, remote, xff string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/genkit/"+flows.SuggestProfileThemeFlowName, strings.NewReader(themeBody))
	req.SetPathValue("flow", flows.SuggestProfileThemeFlowName)
	req.RemoteAddr = remote
	req.Header.Set("X-Forwarded-For", xff)
	rr := httptest.NewRecorder()
	a.handleFlowRun(rr, req)
	return rr
}

func TestFlowRunRateLimitIgnoresUntrustedForwardedFor(t *testing.T) {
	calls := 0
	a := newFlowAPI(t, &stubGenerator{generateFunc: func(context.Context, string) (string, error) {
		calls++
		return `{"themeSuggestion":"a","styleSuggestion":"b","colorPalette":"#000000"}`, nil
	}})
	a.flowLimiter = newRateLimiter(time.Minute, 2)

	codes := make([]int, 0, 5)
	for i := range 5 {
		codes = append(codes, runFlowFrom(a, "203.0.113.9:4000", "198.51.100."+strconv.Itoa(i+1)).Code)
	}
	require.Equal(t, []int{200, 200, 429, 429, 429}, codes)
	require.Equal(t, 2, calls)
}

func TestFlowRunRateLimitKeysOnClientBehindTrustedProxy(t *testing.T) {
	a := newFlowAPI(t, &stubGenerator{generateFunc: func(context.Context, string) (string, error) {
		return `{"themeSuggestion":"a","styleSuggestion":"b","colorPalette":"#000000"}`, nil
	}})
	a.flowLimiter = newRateLimiter(time.Minute, 1)
	a.trustedProxies = []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	require.Equal(t, http.StatusOK, runFlowFrom(a, "10.0.0.1:4000", "198.51.100.1").Code)
	require.Equal(t, http.StatusOK, runFlowFrom(a, "10.0.0.1:4000", "198.51.100.2").Code)
	require.Equal(t, http.StatusTooManyRequests, runFlowFrom(a, "10.0.0.1:4000", "198.51.100.1").Code)
}
