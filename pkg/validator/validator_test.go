package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStruct struct {
	IndexUID   string `validate:"required,max=64"`
	PrimaryKey string `validate:"required"`
	BatchSize  int    `validate:"gte=1,lte=10000"`
}

func TestValidate_Success(t *testing.T) {
	s := testStruct{IndexUID: "products", PrimaryKey: "id", BatchSize: 500}
	err := Validate(s)
	assert.NoError(t, err)
}

func TestValidate_MissingRequired(t *testing.T) {
	s := testStruct{PrimaryKey: "id", BatchSize: 500}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "IndexUID")
	assert.Equal(t, "is required", fields["IndexUID"])
}

func TestValidate_OutOfRange(t *testing.T) {
	s := testStruct{IndexUID: "products", PrimaryKey: "id", BatchSize: 20000}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "BatchSize")
	assert.Contains(t, fields["BatchSize"], "10000")
}

func TestValidate_MultipleErrors(t *testing.T) {
	s := testStruct{BatchSize: 1} // missing IndexUID and PrimaryKey
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "IndexUID")
	assert.Contains(t, fields, "PrimaryKey")
}

func TestValidationError_ErrorString(t *testing.T) {
	s := testStruct{BatchSize: 1}
	err := Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'IndexUID'")
	assert.Contains(t, err.Error(), "is required")
}

type minMaxStruct struct {
	Short string `validate:"min=3"`
	Long  string `validate:"max=5"`
}

func TestValidate_MinMax(t *testing.T) {
	s := minMaxStruct{Short: "ab", Long: "toolongstring"}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields["Short"], "at least 3")
	assert.Contains(t, fields["Long"], "at most 5")
}

type urlStruct struct {
	EngineURL string `validate:"url"`
}

func TestValidate_URL(t *testing.T) {
	s := urlStruct{EngineURL: "not a url"}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Equal(t, "must be a valid URL", fields["EngineURL"])
}

func TestValidate_URL_Valid(t *testing.T) {
	s := urlStruct{EngineURL: "http://localhost:7700"}
	err := Validate(s)
	assert.NoError(t, err)
}

type oneofStruct struct {
	Environment string `validate:"oneof=development staging production"`
}

func TestValidate_OneOf(t *testing.T) {
	s := oneofStruct{Environment: "sandbox"}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields["Environment"], "one of")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"IndexUID":"products","PrimaryKey":"id","BatchSize":250}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var s testStruct
	err := DecodeAndValidate(req, &s)

	require.NoError(t, err)
	assert.Equal(t, "products", s.IndexUID)
	assert.Equal(t, "id", s.PrimaryKey)
	assert.Equal(t, 250, s.BatchSize)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))

	var s testStruct
	err := DecodeAndValidate(req, &s)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	body := `{"IndexUID":"","PrimaryKey":"id","BatchSize":10}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var s testStruct
	err := DecodeAndValidate(req, &s)

	require.Error(t, err)
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
