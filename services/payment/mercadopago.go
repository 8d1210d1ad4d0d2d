package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"visapoint/models"

	"go.uber.org/zap"
)

// MercadoPagoGateway is the poll-by-id integration: the webhook carries only
// an event type and a payment id, and the full payment resource must be
// fetched synchronously before anything can be trusted.
type MercadoPagoGateway struct {
	Token      string
	APIBase    string // Overridable so tests can point at a local server
	HTTPClient *http.Client
	SuccessURL string
	CancelURL  string
	Logger     *zap.Logger
}

func NewMercadoPagoGateway(token, apiBase, successURL, cancelURL string, logger *zap.Logger) *MercadoPagoGateway {
	return &MercadoPagoGateway{
		Token:      token,
		APIBase:    apiBase,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		Logger:     logger,
	}
}

func (g *MercadoPagoGateway) Name() string {
	return models.GatewayMercadoPago
}

// mpPreferenceRequest is the checkout preference payload. Mercado Pago takes
// amounts in major currency units, so the conversion from minor units
// happens here and nowhere else.
type mpPreferenceRequest struct {
	Items             []mpItem          `json:"items"`
	Metadata          map[string]string `json:"metadata"`
	ExternalReference string            `json:"external_reference"`
	BackURLs          mpBackURLs        `json:"back_urls"`
	AutoReturn        string            `json:"auto_return"`
}

type mpItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type mpBackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
}

type mpPreferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

func (g *MercadoPagoGateway) CreateCheckout(ctx context.Context, booking *models.Booking) (*models.CheckoutSession, error) {
	meta := checkoutMetadata(booking)
	reqBody := mpPreferenceRequest{
		Items: []mpItem{
			{
				Title:      booking.ProductID,
				Quantity:   1,
				UnitPrice:  float64(booking.Amount) / 100,
				CurrencyID: booking.Currency,
			},
		},
		Metadata:          meta.ToMap(),
		ExternalReference: booking.ID,
		BackURLs: mpBackURLs{
			Success: g.SuccessURL,
			Failure: g.CancelURL,
		},
		AutoReturn: "approved",
	}

	var pref mpPreferenceResponse
	if err := g.post(ctx, "/checkout/preferences", reqBody, &pref); err != nil {
		return nil, fmt.Errorf("mercadopago preference creation failed: %w", err)
	}

	return &models.CheckoutSession{
		SessionID:   pref.ID,
		Gateway:     models.GatewayMercadoPago,
		CheckoutURL: pref.InitPoint,
		BookingID:   booking.ID,
		Amount:      booking.Amount,
		Currency:    booking.Currency,
	}, nil
}

// mpNotification is the thin webhook body: no payload to verify, just a
// pointer at the payment resource.
type mpNotification struct {
	Type string `json:"type"`
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// mpPayment is the payment resource fetched by id. Metadata values come back
// as arbitrary JSON, not strings.
type mpPayment struct {
	ID       json.Number            `json:"id"`
	Status   string                 `json:"status"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (g *MercadoPagoGateway) ParseWebhook(ctx context.Context, raw []byte, _ string) (*models.ConfirmationEvent, error) {
	var notif mpNotification
	if err := json.Unmarshal(raw, &notif); err != nil {
		return nil, fmt.Errorf("failed to decode mercadopago notification: %w", err)
	}
	if notif.Type != "payment" || notif.Data.ID == "" {
		g.Logger.Debug("ignoring mercadopago notification", zap.String("type", notif.Type))
		return nil, nil
	}

	pay, err := g.fetchPayment(ctx, notif.Data.ID.String())
	if err != nil {
		return nil, err
	}
	if pay.Status != "approved" {
		g.Logger.Debug("ignoring mercadopago payment",
			zap.String("paymentID", pay.ID.String()),
			zap.String("status", pay.Status))
		return nil, nil
	}

	meta, err := models.MetadataFromMap(stringifyMetadata(pay.Metadata))
	if err != nil {
		return nil, fmt.Errorf("invalid mercadopago payment metadata: %w", err)
	}
	if meta.Kind == "" {
		g.Logger.Debug("ignoring mercadopago payment without metadata kind",
			zap.String("paymentID", pay.ID.String()))
		return nil, nil
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mercadopago payment metadata: %w", err)
	}

	return &models.ConfirmationEvent{
		Gateway:   models.GatewayMercadoPago,
		PaymentID: pay.ID.String(),
		Metadata:  meta,
	}, nil
}

func (g *MercadoPagoGateway) fetchPayment(ctx context.Context, id string) (*mpPayment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.APIBase+"/v1/payments/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build payment fetch request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.Token)

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mercadopago payment fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("mercadopago payment fetch returned %d: %s", resp.StatusCode, body)
	}

	var pay mpPayment
	if err := json.NewDecoder(resp.Body).Decode(&pay); err != nil {
		return nil, fmt.Errorf("failed to decode mercadopago payment: %w", err)
	}
	return &pay, nil
}

func (g *MercadoPagoGateway) post(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.APIBase+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// stringifyMetadata flattens the loosely-typed metadata object into the
// string bag the closed schema expects. Numbers lose no precision because
// the only numeric field is an integer duration.
func stringifyMetadata(in map[string]interface{}) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatInt(int64(val), 10)
		case json.Number:
			out[k] = val.String()
		case bool:
			out[k] = strconv.FormatBool(val)
		}
	}
	return out
}
