package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"visapoint/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newMercadoPagoServer serves canned payment resources keyed by id and
// records the bearer token it saw.
func newMercadoPagoServer(t *testing.T, payments map[string]string, gotToken *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotToken = r.Header.Get("Authorization")
		id := r.URL.Path[len("/v1/payments/"):]
		body, ok := payments[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, body)
	}))
}

func TestMercadoPagoParseWebhookApproved(t *testing.T) {
	var gotToken string
	srv := newMercadoPagoServer(t, map[string]string{
		"777": `{
			"id": 777,
			"status": "approved",
			"metadata": {"kind": "booking", "booking_id_ignored": "x", "bookingId": "bk-1"}
		}`,
	}, &gotToken)
	defer srv.Close()

	g := NewMercadoPagoGateway("mp-token", srv.URL, "", "", zap.NewNop())
	event, err := g.ParseWebhook(context.Background(), []byte(`{"type":"payment","data":{"id":777}}`), "")
	require.NoError(t, err)
	require.NotNil(t, event)
	require.Equal(t, models.GatewayMercadoPago, event.Gateway)
	require.Equal(t, "777", event.PaymentID)
	require.Equal(t, "bk-1", event.Metadata.BookingID)
	require.Equal(t, "Bearer mp-token", gotToken)
}

func TestMercadoPagoParseWebhookApprovedWithoutBookingID(t *testing.T) {
	var gotToken string
	srv := newMercadoPagoServer(t, map[string]string{
		"888": `{
			"id": 888,
			"status": "approved",
			"metadata": {
				"kind": "booking",
				"contactName": "Ana Silva",
				"contactEmail": "ana@example.com",
				"start": "2025-03-10T14:00:00Z",
				"productId": "visa-consultation",
				"durationMinutes": 60
			}
		}`,
	}, &gotToken)
	defer srv.Close()

	g := NewMercadoPagoGateway("mp-token", srv.URL, "", "", zap.NewNop())
	event, err := g.ParseWebhook(context.Background(), []byte(`{"type":"payment","data":{"id":"888"}}`), "")
	require.NoError(t, err)
	require.NotNil(t, event)
	// Legacy metadata without a booking id: valid, feeds the fallback path.
	require.Empty(t, event.Metadata.BookingID)
	require.Equal(t, "Ana Silva", event.Metadata.ContactName)
	require.Equal(t, 60, event.Metadata.DurationMinutes)
}

func TestMercadoPagoParseWebhookIgnoresNonApproved(t *testing.T) {
	var gotToken string
	srv := newMercadoPagoServer(t, map[string]string{
		"555": `{"id": 555, "status": "pending", "metadata": {"kind": "booking", "bookingId": "bk-1"}}`,
	}, &gotToken)
	defer srv.Close()

	g := NewMercadoPagoGateway("mp-token", srv.URL, "", "", zap.NewNop())
	event, err := g.ParseWebhook(context.Background(), []byte(`{"type":"payment","data":{"id":555}}`), "")
	require.NoError(t, err)
	require.Nil(t, event)
}

func TestMercadoPagoParseWebhookIgnoresOtherNotificationTypes(t *testing.T) {
	g := NewMercadoPagoGateway("mp-token", "http://unreachable.invalid", "", "", zap.NewNop())

	event, err := g.ParseWebhook(context.Background(), []byte(`{"type":"merchant_order","data":{"id":1}}`), "")
	require.NoError(t, err)
	require.Nil(t, event)
}

func TestMercadoPagoParseWebhookFetchFailure(t *testing.T) {
	var gotToken string
	srv := newMercadoPagoServer(t, nil, &gotToken)
	defer srv.Close()

	g := NewMercadoPagoGateway("mp-token", srv.URL, "", "", zap.NewNop())
	_, err := g.ParseWebhook(context.Background(), []byte(`{"type":"payment","data":{"id":404}}`), "")
	require.Error(t, err)
}

func TestMercadoPagoCreateCheckoutConvertsToMajorUnits(t *testing.T) {
	var captured mpPreferenceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/checkout/preferences", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{"id": "pref-1", "init_point": "https://mp.example/checkout/pref-1"}`)
	}))
	defer srv.Close()

	g := NewMercadoPagoGateway("mp-token", srv.URL, "https://ok", "https://ko", zap.NewNop())
	booking := &models.Booking{
		ID:              "bk-1",
		ContactName:     "Ana Silva",
		ContactEmail:    "ana@example.com",
		ProductID:       "visa-consultation",
		DurationMinutes: 60,
		Amount:          15000,
		Currency:        "PEN",
	}

	session, err := g.CreateCheckout(context.Background(), booking)
	require.NoError(t, err)
	require.Equal(t, "pref-1", session.SessionID)
	require.Equal(t, "https://mp.example/checkout/pref-1", session.CheckoutURL)
	require.Equal(t, "bk-1", session.BookingID)

	require.Len(t, captured.Items, 1)
	require.InDelta(t, 150.0, captured.Items[0].UnitPrice, 0.001)
	require.Equal(t, "bk-1", captured.ExternalReference)
	require.Equal(t, "bk-1", captured.Metadata["bookingId"])
	require.Equal(t, models.MetadataKindBooking, captured.Metadata["kind"])
}
