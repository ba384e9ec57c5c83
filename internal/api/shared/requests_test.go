package shared

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Title  string `json:"title" validate:"required"`
	Factor int    `json:"factor" validate:"gte=1,lte=10"`
}

type selfValidating struct {
	Value string `json:"value"`
}

func (s selfValidating) Validate() error {
	if s.Value != "ok" {
		return errors.New("value must be ok")
	}
	return nil
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		wantErr     error
		errContains string
	}{
		{name: "valid json", body: `{"title": "Go", "factor": 3}`},
		{name: "empty body", body: "", wantErr: ErrEmptyBody},
		{name: "trailing comma", body: `{"title": "Go",}`, errContains: "invalid JSON body"},
		{name: "unknown field", body: `{"title": "Go", "extra": true}`, errContains: "unknown field"},
		{name: "wrong type", body: `{"factor": "three"}`, errContains: "invalid JSON body"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tc.body))
			w := httptest.NewRecorder()

			var target sampleRequest
			err := DecodeJSON(w, req, &target)

			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
			case tc.errContains != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errContains)
			default:
				require.NoError(t, err)
				assert.Equal(t, sampleRequest{Title: "Go", Factor: 3}, target)
			}
		})
	}
}

func TestDecodeJSON_BodyTooLarge(t *testing.T) {
	t.Parallel()

	body := `{"title": "` + strings.Repeat("a", MaxRequestBodySize) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))

	var target sampleRequest
	err := DecodeJSON(httptest.NewRecorder(), req, &target)

	var maxErr *http.MaxBytesError
	assert.ErrorAs(t, err, &maxErr)
	assert.ErrorIs(t, err, ErrInvalidBody)
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateRequest(sampleRequest{Title: "Go", Factor: 2}))

	err := ValidateRequest(sampleRequest{Factor: 2})
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
	assert.Equal(t, "title", validationErrs[0].Field())
	assert.Equal(t, "required", validationErrs[0].Tag())

	err = ValidateRequest(sampleRequest{Title: "Go", Factor: 11})
	require.ErrorAs(t, err, &validationErrs)
	assert.Equal(t, "lte", validationErrs[0].Tag())

	assert.NoError(t, ValidateRequest(selfValidating{Value: "ok"}))
	assert.EqualError(t, ValidateRequest(selfValidating{Value: "no"}), "value must be ok")
}
