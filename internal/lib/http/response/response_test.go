package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	internalErrors "github.com/tumbleweedd/fulfillment_pipeline/internal/lib/errors"
)

func TestStatusFor(t *testing.T) {
	tCases := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid event", err: fmt.Errorf("op: %w", internalErrors.ErrInvalidEvent), want: http.StatusBadRequest},
		{name: "invalid filter", err: internalErrors.ErrInvalidFilter, want: http.StatusBadRequest},
		{name: "unknown stage", err: internalErrors.ErrUnknownStage, want: http.StatusNotFound},
		{name: "backend", err: internalErrors.ErrBackendUnavailable, want: http.StatusInternalServerError},
		{name: "anything else", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			require.Equal(t, tCase.want, StatusFor(tCase.err))
		})
	}
}

func TestEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, Fail(rec, http.StatusBadRequest, errors.New("bad input")))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, map[string]any{"success": false, "error": "bad input"}, body)

	rec = httptest.NewRecorder()
	require.NoError(t, OK(rec, http.StatusCreated, map[string]int{"n": 1}))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.JSONEq(t, `{"success":true,"data":{"n":1}}`, rec.Body.String())
}
