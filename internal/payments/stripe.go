package payments

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// StripeClient talks to the Stripe Checkout Sessions API. Requests are
// form-encoded per Stripe's convention.
type StripeClient struct {
	http *resty.Client
}

func NewStripe(baseURL, secretKey string, timeout time.Duration) *StripeClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(secretKey).
		SetHeader("Content-Type", "application/x-www-form-urlencoded")
	return &StripeClient{http: c}
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *StripeClient) CreateSession(ctx context.Context, p CreateParams) (Session, error) {
	form := map[string]string{
		"mode":           "payment",
		"customer_email": p.CustomerEmail,
		"success_url":    p.SuccessURL,
		"cancel_url":     p.CancelURL,

		"line_items[0][quantity]":                            strconv.Itoa(p.Quantity),
		"line_items[0][price_data][currency]":                "usd",
		"line_items[0][price_data][unit_amount]":             strconv.FormatInt(p.UnitAmount, 10),
		"line_items[0][price_data][product_data][name]":      p.Name,
	}
	if p.Description != "" {
		form["line_items[0][price_data][product_data][description]"] = p.Description
	}
	if p.Image != "" {
		form["line_items[0][price_data][product_data][images][0]"] = p.Image
	}
	for k, v := range p.Metadata {
		form[fmt.Sprintf("metadata[%s]", k)] = v
	}

	var out Session
	var serr stripeError
	resp, err := s.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&out).
		SetError(&serr).
		Post("/v1/checkout/sessions")
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.IsError() {
		return Session{}, fmt.Errorf("%w: %s", ErrUpstream, serr.Error.Message)
	}
	return out, nil
}

func (s *StripeClient) GetSession(ctx context.Context, id string) (Session, error) {
	var out Session
	var serr stripeError
	resp, err := s.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&serr).
		Get("/v1/checkout/sessions/" + id)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode() == http.StatusNotFound || serr.Error.Code == "resource_missing" {
		return Session{}, ErrSessionNotFound
	}
	if resp.IsError() {
		return Session{}, fmt.Errorf("%w: %s", ErrUpstream, serr.Error.Message)
	}
	return out, nil
}
