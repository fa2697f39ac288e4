package handlers_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils/response"
	"github.com/stretchr/testify/require"
)

// decodeData unmarshals the Data field of a successful APIResponse into dest.
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, dest any) *response.APIResponse {
	t.Helper()

	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	if dest != nil && resp.Data != nil {
		dataBytes, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(dataBytes, dest))
	}

	return &resp
}

func testAddress() models.Address {
	return models.Address{
		FullName:   "Test Buyer",
		Street:     "123 Test Street",
		City:       "Test City",
		State:      "TS",
		PostalCode: "12345",
		Country:    "US",
	}
}
