// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Backend endpoint paths.
const (
	PathEmailVerify      = "/auth/emailVerify"
	PathGenerateOTP      = "/auth/generateOtp"
	PathOTPVerify        = "/auth/otpVerify"
	PathSignIn           = "/auth/signIn"
	PathSignUp           = "/auth/signUp"
	PathGetUserFromEmail = "/auth/getUserFromEmail"
	PathResetPassword    = "/auth/resetPassword"
)

// DefaultTimeout bounds a single remote call when HTTPConfig.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// RequestIDHeader carries a per-call ULID for correlating client and backend logs.
const RequestIDHeader = "X-Request-ID"

const tracerName = "github.com/renegan/campusauth/internal/gateway"

// HTTPConfig holds configuration for the HTTP gateway.
type HTTPConfig struct {
	// BaseURL is the backend root (e.g., "https://api.example.edu/").
	BaseURL string

	// Timeout bounds each call (default: DefaultTimeout).
	Timeout time.Duration

	// UserAgent is sent with every request (default: "campusauth").
	UserAgent string

	// Transport overrides the base round tripper. It is always wrapped for tracing.
	Transport http.RoundTripper

	// Logger receives per-call logs (default: slog.Default()).
	Logger *slog.Logger
}

// HTTPClient implements Gateway over the backend's JSON endpoints.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
	tracer     trace.Tracer
}

var _ Gateway = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTP gateway.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, oops.Code("GATEWAY_CONFIG_INVALID").Errorf("base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, oops.Code("GATEWAY_CONFIG_INVALID").
			With("base_url", cfg.BaseURL).
			Wrapf(err, "invalid base URL")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, oops.Code("GATEWAY_CONFIG_INVALID").
			With("base_url", cfg.BaseURL).
			Errorf("base URL must be http or https")
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "campusauth"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &HTTPClient{
		baseURL: base,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		userAgent: cfg.UserAgent,
		logger:    cfg.Logger,
		tracer:    otel.Tracer(tracerName),
	}, nil
}

// VerifyEmailDomain resolves the institution behind an email's domain.
func (c *HTTPClient) VerifyEmailDomain(ctx context.Context, email string) (College, error) {
	res, err := c.post(ctx, OpVerifyEmailDomain, PathEmailVerify, map[string]string{"email": email})
	if err != nil {
		return College{}, err
	}

	raw := res.Get("college")
	if !raw.IsObject() {
		return College{}, invalidResponse(OpVerifyEmailDomain, "missing college")
	}
	var college College
	if err := json.Unmarshal([]byte(raw.Raw), &college); err != nil {
		return College{}, invalidResponse(OpVerifyEmailDomain, err.Error())
	}
	return college, nil
}

// SendOTP issues a one-time code to email.
func (c *HTTPClient) SendOTP(ctx context.Context, email string) error {
	_, err := c.post(ctx, OpSendOTP, PathGenerateOTP, map[string]string{"email": email})
	return err
}

// VerifyOTP checks a one-time code.
func (c *HTTPClient) VerifyOTP(ctx context.Context, code string) error {
	_, err := c.post(ctx, OpVerifyOTP, PathOTPVerify, map[string]string{"otp": code})
	return err
}

// Authenticate signs in with email and password.
func (c *HTTPClient) Authenticate(ctx context.Context, email, password string) (Session, error) {
	res, err := c.post(ctx, OpAuthenticate, PathSignIn, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return Session{}, err
	}
	return decodeSession(OpAuthenticate, res)
}

// FinalizeCredentials creates the account and signs it in.
func (c *HTTPClient) FinalizeCredentials(ctx context.Context, reg Registration) (Session, error) {
	res, err := c.post(ctx, OpFinalizeCredentials, PathSignUp, reg)
	if err != nil {
		return Session{}, err
	}
	return decodeSession(OpFinalizeCredentials, res)
}

// LookupUserByEmail resolves the account owning email.
func (c *HTTPClient) LookupUserByEmail(ctx context.Context, email string) (Identity, error) {
	res, err := c.post(ctx, OpLookupUserByEmail, PathGetUserFromEmail, map[string]string{"email": email})
	if err != nil {
		return Identity{}, err
	}

	id := Identity{
		ID:   res.Get("id").String(),
		Type: res.Get("type").String(),
	}
	if id.ID == "" {
		return Identity{}, invalidResponse(OpLookupUserByEmail, "missing id")
	}
	return id, nil
}

// ResetPassword sets a new password for the identified account.
func (c *HTTPClient) ResetPassword(ctx context.Context, id Identity, password string) error {
	_, err := c.post(ctx, OpResetPassword, PathResetPassword, map[string]string{
		"id":       id.ID,
		"type":     id.Type,
		"password": password,
	})
	return err
}

// post sends body as JSON and returns the parsed success body.
func (c *HTTPClient) post(ctx context.Context, op, path string, body any) (gjson.Result, error) {
	ctx, span := c.tracer.Start(ctx, "gateway."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	payload, err := json.Marshal(body)
	if err != nil {
		return gjson.Result{}, oops.Code("GATEWAY_ENCODE_FAILED").
			With("operation", op).
			Wrap(err)
	}

	endpoint := c.baseURL.JoinPath(path).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return gjson.Result{}, TransportError(op, err)
	}

	requestID := ulid.Make().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, requestID)
	span.SetAttributes(
		attribute.String("gateway.operation", op),
		attribute.String("gateway.request_id", requestID),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	dur := time.Since(start)
	if err != nil {
		c.logger.WarnContext(ctx, "remote call failed",
			"operation", op,
			"request_id", requestID,
			"duration", dur,
			"error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return gjson.Result{}, TransportError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return gjson.Result{}, TransportError(op, err)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := gjson.GetBytes(respBody, "message").String()
		if message == "" {
			message = fmt.Sprintf("Request failed with status code %d", resp.StatusCode)
		}
		code := strings.ToUpper(gjson.GetBytes(respBody, "code").String())
		if !isApplicationCode(code) {
			code = classify(op, resp.StatusCode)
		}
		c.logger.WarnContext(ctx, "remote call rejected",
			"operation", op,
			"request_id", requestID,
			"status", resp.StatusCode,
			"code", code,
			"duration", dur)
		span.SetStatus(codes.Error, code)
		return gjson.Result{}, ApplicationError(op, code, resp.StatusCode, message)
	}

	c.logger.DebugContext(ctx, "remote call succeeded",
		"operation", op,
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration", dur)

	if len(bytes.TrimSpace(respBody)) == 0 {
		return gjson.Result{}, nil
	}
	if !gjson.ValidBytes(respBody) {
		return gjson.Result{}, invalidResponse(op, "body is not JSON")
	}
	return gjson.ParseBytes(respBody), nil
}

// classify derives an error code from the operation and HTTP status when the
// backend did not send one.
func classify(op string, status int) string {
	switch status {
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		if op == OpAuthenticate || op == OpFinalizeCredentials {
			return CodeInvalidCredentials
		}
	case http.StatusNotFound:
		if op == OpVerifyEmailDomain {
			return CodeDomainUnrecognized
		}
		if op == OpAuthenticate || op == OpLookupUserByEmail || op == OpResetPassword {
			return CodeUserNotFound
		}
	case http.StatusGone:
		if op == OpVerifyOTP {
			return CodeOTPExpired
		}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		switch op {
		case OpVerifyOTP:
			return CodeOTPInvalid
		case OpVerifyEmailDomain:
			return CodeDomainUnrecognized
		case OpAuthenticate:
			return CodeInvalidCredentials
		}
	}
	return CodeApplication
}

func isApplicationCode(code string) bool {
	for _, c := range applicationCodes {
		if c == code && c != CodeResponseInvalid {
			return true
		}
	}
	return false
}

func decodeSession(op string, res gjson.Result) (Session, error) {
	token := res.Get("token").String()
	if token == "" {
		return Session{}, invalidResponse(op, "missing token")
	}

	raw := res.Get("user")
	var user User
	if raw.IsObject() {
		if err := json.Unmarshal([]byte(raw.Raw), &user); err != nil {
			return Session{}, invalidResponse(op, err.Error())
		}
		if user.ID == "" {
			user.ID = raw.Get("_id").String()
		}
		user.Raw = json.RawMessage(raw.Raw)
	}
	return Session{Token: token, User: user}, nil
}

func invalidResponse(op, reason string) error {
	return oops.Code(CodeResponseInvalid).
		In("gateway").
		With("operation", op).
		With("reason", reason).
		Public("Unexpected response from server.").
		Errorf("invalid %s response: %s", op, reason)
}
