package util

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	JsonWrite(rec, map[string]int{"n": 1})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
}

func TestJsonError(t *testing.T) {
	rec := httptest.NewRecorder()
	JsonError(rec, http.StatusServiceUnavailable, errors.New("loop stopped"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"loop stopped"}`, rec.Body.String())
}

func TestGenUUID(t *testing.T) {
	a, err := GenUUID()
	require.NoError(t, err)
	b, err := GenUUID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	u, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), u.Version())
}

func TestJsonWritePanicsOnUnencodable(t *testing.T) {
	assert.Panics(t, func() { JsonWrite(httptest.NewRecorder(), make(chan int)) })
}
