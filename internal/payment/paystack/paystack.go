// Package paystack implements payment.Gateway against the Paystack HTTP API.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/ecomstore/storefront/internal/payment"
)

// DefaultBaseURL is the production Paystack API endpoint.
const DefaultBaseURL = "https://api.paystack.co"

// Config holds the gateway client settings.
type Config struct {
	// SecretKey is the Paystack secret key used as a bearer token.
	SecretKey string
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
	// Timeout bounds each gateway call. Zero means 15 seconds.
	Timeout time.Duration
}

// Client is a payment.Gateway backed by the Paystack REST API.
type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

var _ payment.Gateway = (*Client)(nil)

// New creates a Paystack gateway client.
func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		secretKey: cfg.SecretKey,
		baseURL:   base,
		http:      &http.Client{Timeout: timeout},
	}
}

type initializeBody struct {
	Email       string             `json:"email"`
	Amount      int64              `json:"amount"`
	CallbackURL string             `json:"callback_url"`
	Metadata    initializeMetadata `json:"metadata"`
}

type initializeMetadata struct {
	OrderID string `json:"order_id"`
}

// Initialize creates a remote payment intent and returns the customer
// redirect target. Transport failures and non-2xx responses surface as
// payment.ErrGatewayUnavailable.
func (c *Client) Initialize(ctx context.Context, req payment.InitializeRequest) (*payment.InitializeResult, error) {
	body, err := json.Marshal(initializeBody{
		Email:       req.Email,
		Amount:      req.AmountMinor,
		CallbackURL: req.CallbackURL,
		Metadata:    initializeMetadata{OrderID: req.OrderID},
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal initialize request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build initialize request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	raw, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	result, err := parseInitialize(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parse initialize response")
	}
	return result, nil
}

// Verify fetches the outcome of the transaction the gateway's redirect
// callback referenced. Only the parsed result decides success; the caller
// must check VerifyResult.Succeeded.
func (c *Client) Verify(ctx context.Context, reference string) (*payment.VerifyResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build verify request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	raw, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	result, err := parseVerify(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parse verify response")
	}
	return result, nil
}

// do executes the request and returns the body for 2xx responses. Anything
// else collapses into ErrGatewayUnavailable for the caller.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(payment.ErrGatewayUnavailable, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(payment.ErrGatewayUnavailable, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(payment.ErrGatewayUnavailable, "gateway status %d", resp.StatusCode)
	}
	return raw, nil
}

func parseInitialize(raw []byte) (*payment.InitializeResult, error) {
	var result payment.InitializeResult

	d := jx.DecodeBytes(raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "data" {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "authorization_url":
				s, err := d.Str()
				result.AuthorizationURL = s
				return err
			case "reference":
				s, err := d.Str()
				result.Reference = s
				return err
			default:
				return d.Skip()
			}
		})
	}); err != nil {
		return nil, err
	}

	if result.AuthorizationURL == "" {
		return nil, errors.New("missing authorization_url")
	}
	return &result, nil
}

func parseVerify(raw []byte) (*payment.VerifyResult, error) {
	var result payment.VerifyResult

	d := jx.DecodeBytes(raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "data" {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "status":
				s, err := d.Str()
				result.Status = s
				return err
			case "amount":
				n, err := d.Int64()
				result.AmountMinor = n
				return err
			case "metadata":
				// Paystack serializes empty metadata as null or "".
				if d.Next() != jx.Object {
					return d.Skip()
				}
				return d.Obj(func(d *jx.Decoder, key string) error {
					if key != "order_id" {
						return d.Skip()
					}
					s, err := d.Str()
					result.OrderID = s
					return err
				})
			default:
				return d.Skip()
			}
		})
	}); err != nil {
		return nil, err
	}

	return &result, nil
}
