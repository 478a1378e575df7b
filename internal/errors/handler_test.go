package errors

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regpulse/internal/shared/testutil"
)

func handleErr(t *testing.T, err error) (*httptest.ResponseRecorder, map[string]interface{}, *testutil.CaptureHandler) {
	t.Helper()

	logger, captured := testutil.NewCaptureLogger()
	handler := NewErrorHandler(logger, false)

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	rec := httptest.NewRecorder()
	handler.HandleError(rec, req, err)

	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return rec, problem, captured
}

func TestHandleError_Taxonomy(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "empty input",
			err:        ErrEmptyInput,
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeEmptyInput,
		},
		{
			name:       "parse failure",
			err:        NewParsingError("could not read the CSV header row", nil),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeParseFailure,
		},
		{
			name:       "no matching data",
			err:        ErrNoMatchingData,
			wantStatus: http.StatusNotFound,
			wantType:   TypeNoMatchingRows,
		},
		{
			name:       "dataset not found",
			err:        NewNotFoundError(`dataset "abc"`),
			wantStatus: http.StatusNotFound,
			wantType:   TypeDatasetNotFound,
		},
		{
			name:       "validation",
			err:        NewAppValidationError("bad date"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:       "payload too large",
			err:        ErrPayloadTooLarge,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypePayloadTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, problem, _ := handleErr(t, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantType, problem["type"])
			assert.Equal(t, float64(tt.wantStatus), problem["status"])
		})
	}
}

func TestHandleError_NoMatchingDataLoggedAtInfo(t *testing.T) {
	_, _, captured := handleErr(t, ErrNoMatchingData)

	rec, ok := captured.Find("filters matched no rows")
	require.True(t, ok)
	assert.Equal(t, slog.LevelInfo, rec.Level)
	_, failed := captured.Find("request failed")
	assert.False(t, failed)
}

func TestHandleError_UnexpectedLoggedAtError(t *testing.T) {
	_, problem, captured := handleErr(t, assert.AnError)

	rec, ok := captured.Find("request failed")
	require.True(t, ok)
	assert.Equal(t, slog.LevelError, rec.Level)
	assert.Equal(t, TypeInternal, problem["type"])
}

func TestHandleError_ParsingCauseExtension(t *testing.T) {
	_, problem, _ := handleErr(t, NewParsingError("bad header", assert.AnError))

	assert.Equal(t, assert.AnError.Error(), problem["cause"])
	assert.Equal(t, string(ErrTypeParsing), problem["error_code"])
}
