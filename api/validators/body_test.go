package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type lineInput struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"min=1,max=99"`
}

type cartInput struct {
	Items []lineInput `json:"items" validate:"required,min=1,dive"`
	Note  string      `json:"note,omitempty" validate:"max=10"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBodyAccepts(t *testing.T) {
	var in cartInput
	err := DecodeJSONBody(post(`{"items":[{"product_id":"0b7c1f1e-4cbe-4d1b-9a5b-2f4f0f7d8e11","quantity":2}]}`), &in)
	require.NoError(t, err)
	require.Equal(t, 2, in.Items[0].Quantity)
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	tests := map[string]string{
		"empty":         ``,
		"unknown field": `{"items":[],"extra":true}`,
		"trailing":      `{"items":[{"product_id":"0b7c1f1e-4cbe-4d1b-9a5b-2f4f0f7d8e11","quantity":1}]} {}`,
		"malformed":     `{"items":`,
		"too large":     `{"note":"` + strings.Repeat("a", maxBodyBytes) + `"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			var in cartInput
			err := DecodeJSONBody(post(body), &in)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestDecodeJSONBodyReportsFieldPaths(t *testing.T) {
	var in cartInput
	err := DecodeJSONBody(post(`{"items":[{"product_id":"nope","quantity":0}],"note":"far too long"}`), &in)

	perr := pkgerrors.As(err)
	require.NotNil(t, perr)
	details, ok := perr.Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "must be a uuid", details["items[0].product_id"])
	require.Equal(t, "must be at least 1", details["items[0].quantity"])
	require.Equal(t, "must be at most 10", details["note"])
}
