package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ms-restaurant/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrderCode_InRange(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := GenerateOrderCode()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, code, MinOrderCode)
		assert.LessOrEqual(t, code, MaxOrderCode)
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID(" 5F0C7D9E-2B1A-4C3D-8E9F-0A1B2C3D4E5F ", "order")
	require.NoError(t, err)
	assert.Equal(t, "5f0c7d9e-2b1a-4c3d-8e9f-0a1b2c3d4e5f", id)

	_, err = ParseID("abc", "order")
	require.Error(t, err)
	assert.Equal(t, "Invalid order ID format", apperr.PublicMessage(err))
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}

func TestPaginate(t *testing.T) {
	page, limit, offset := Paginate(0, 0)
	assert.Equal(t, []int{1, 10, 0}, []int{page, limit, offset})

	page, limit, offset = Paginate(3, 500)
	assert.Equal(t, []int{3, 100, 200}, []int{page, limit, offset})

	assert.Equal(t, 3, TotalPages(21, 10))
	assert.Equal(t, 0, TotalPages(0, 10))
}

type sampleBody struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

func TestDecodeAndValidate(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"pho","quantity":2}`))
	body, err := DecodeAndValidate[sampleBody](r)
	require.NoError(t, err)
	assert.Equal(t, "pho", body.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":0}`))
	_, err = DecodeAndValidate[sampleBody](r)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
	assert.Equal(t, "name", ve.Errors[0].Field)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
	_, err = DecodeAndValidate[sampleBody](r)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, apperr.Forbidden("Cannot update order with status: served"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cannot update order with status: served")
}
