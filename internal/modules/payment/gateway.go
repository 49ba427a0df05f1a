package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Gateway talks to the external payment processor: initiate returns a hosted
// checkout URL the patient is redirected to; verify polls a transaction by
// reference. The processor reports the outcome asynchronously via webhook.
type Gateway struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewGateway(baseURL, secretKey string) *Gateway {
	return &Gateway{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type initiatePayload struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Email       string  `json:"email"`
	TxRef       string  `json:"tx_ref"`
	CallbackURL string  `json:"callback_url,omitempty"`
	ReturnURL   string  `json:"return_url,omitempty"`
}

type gatewayEnvelope struct {
	Status string `json:"status"`
	Data   struct {
		CheckoutURL string `json:"checkout_url"`
		TxStatus    string `json:"status"`
	} `json:"data"`
}

func (g *Gateway) Initiate(ctx context.Context, amount float64, email, txRef, callbackURL, returnURL string) (string, error) {
	body, err := json.Marshal(initiatePayload{
		Amount:      amount,
		Currency:    "USD",
		Email:       email,
		TxRef:       txRef,
		CallbackURL: callbackURL,
		ReturnURL:   returnURL,
	})
	if err != nil {
		return "", err
	}

	var out gatewayEnvelope
	if err := g.do(ctx, http.MethodPost, g.baseURL+"/transactions/initialize", body, &out); err != nil {
		return "", err
	}
	if out.Data.CheckoutURL == "" {
		return "", fmt.Errorf("gateway returned no checkout url (status %q)", out.Status)
	}
	return out.Data.CheckoutURL, nil
}

// Verify returns the processor-side transaction status for a reference:
// "success", "failed" or "pending".
func (g *Gateway) Verify(ctx context.Context, txRef string) (string, error) {
	var out gatewayEnvelope
	if err := g.do(ctx, http.MethodGet, g.baseURL+"/transactions/verify/"+txRef, nil, &out); err != nil {
		return "", err
	}
	if out.Data.TxStatus == "" {
		return "", fmt.Errorf("gateway returned no transaction status for %s", txRef)
	}
	return out.Data.TxStatus, nil
}

func (g *Gateway) do(ctx context.Context, method, url string, body []byte, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway responded %d for %s %s", resp.StatusCode, method, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
