package apierrors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/family"
)

func TestNew_StatusDefaulting(t *testing.T) {
	t.Parallel()
	cases := map[Kind]int{
		KindInvalidRequest:  http.StatusBadRequest,
		KindUnauthorized:    http.StatusUnauthorized,
		KindNotFound:        http.StatusNotFound,
		KindRateLimited:     http.StatusTooManyRequests,
		KindUpstreamTimeout: http.StatusGatewayTimeout,
		KindUpstreamError:   http.StatusBadGateway,
		KindInternal:        http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, New(kind, "x").StatusCode, "kind %s", kind)
	}
}

func TestWrap_UnwrapsCause(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")
	err := Wrap(KindUpstreamError, "upstream failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "upstream failed")
}

func TestEncode_OpenAI(t *testing.T) {
	t.Parallel()
	e := New(KindInvalidRequest, "bad model")
	body := e.Encode(family.OpenAI)

	var env struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &env))
	assert.Equal(t, "bad model", env.Error.Message)
	assert.Equal(t, "invalid_request", env.Error.Type)
}

func TestEncode_Anthropic(t *testing.T) {
	t.Parallel()
	e := New(KindUnauthorized, "bad key")
	body := e.Encode(family.Anthropic)

	var env struct {
		Type  string `json:"type"`
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &env))
	assert.Equal(t, "error", env.Type)
	assert.Equal(t, "bad key", env.Error.Message)
	assert.Equal(t, "unauthorized", env.Error.Type)
}

func TestEncode_Gemini(t *testing.T) {
	t.Parallel()
	e := New(KindRateLimited, "slow down")
	body := e.Encode(family.Gemini)

	var env struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &env))
	assert.Equal(t, http.StatusTooManyRequests, env.Error.Code)
	assert.Equal(t, "slow down", env.Error.Message)
	assert.Equal(t, "RESOURCE_EXHAUSTED", env.Error.Status)
}

func TestWriteHTTP(t *testing.T) {
	t.Parallel()
	e := New(KindNotFound, "no such channel")
	rec := httptest.NewRecorder()
	e.WriteHTTP(rec, family.OpenAI)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "no such channel")
}
