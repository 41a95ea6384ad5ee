// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package gateway_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renegan/campusauth/internal/gateway"
	"github.com/renegan/campusauth/pkg/errutil"
)

type recordedRequest struct {
	Method  string
	Path    string
	Body    map[string]any
	Headers http.Header
}

// backend is a scripted test server: one response per path.
type backend struct {
	mu        sync.Mutex
	requests  []recordedRequest
	responses map[string]response
}

type response struct {
	status int
	body   string
}

func newBackend(t *testing.T, responses map[string]response) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{responses: responses}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)

		b.mu.Lock()
		b.requests = append(b.requests, recordedRequest{
			Method:  r.Method,
			Path:    r.URL.Path,
			Body:    body,
			Headers: r.Header.Clone(),
		})
		resp, ok := b.responses[r.URL.Path]
		b.mu.Unlock()

		if !ok {
			resp = response{status: http.StatusNotFound, body: `{"message":"no route"}`}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.status)
		_, _ = io.WriteString(w, resp.body)
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *backend) last(t *testing.T) recordedRequest {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.requests, "no requests recorded")
	return b.requests[len(b.requests)-1]
}

func newClient(t *testing.T, baseURL string) *gateway.HTTPClient {
	t.Helper()
	c, err := gateway.NewHTTPClient(gateway.HTTPConfig{
		BaseURL:   baseURL,
		Timeout:   2 * time.Second,
		UserAgent: "campusauth/test",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return c
}

func TestNewHTTPClient_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
	}{
		{"empty", ""},
		{"unsupported scheme", "ftp://example.edu"},
		{"unparsable", "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := gateway.NewHTTPClient(gateway.HTTPConfig{BaseURL: tt.baseURL})
			require.Error(t, err)
			assert.Nil(t, c)
			errutil.AssertErrorCode(t, err, "GATEWAY_CONFIG_INVALID")
		})
	}
}

func TestHTTPClient_VerifyEmailDomain(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the resolved college", func(t *testing.T) {
		b, srv := newBackend(t, map[string]response{
			gateway.PathEmailVerify: {http.StatusOK, `{"college":{"name":"State University","country":"US"}}`},
		})
		c := newClient(t, srv.URL)

		college, err := c.VerifyEmailDomain(ctx, "a@univ.edu")
		require.NoError(t, err)
		assert.Equal(t, gateway.College{Name: "State University", Country: "US"}, college)

		req := b.last(t)
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "a@univ.edu", req.Body["email"])
		assert.Equal(t, "application/json", req.Headers.Get("Content-Type"))
		assert.Equal(t, "campusauth/test", req.Headers.Get("User-Agent"))
		_, err = ulid.Parse(req.Headers.Get(gateway.RequestIDHeader))
		assert.NoError(t, err, "request id should be a ULID")
	})

	t.Run("unknown domain surfaces the server message", func(t *testing.T) {
		_, srv := newBackend(t, map[string]response{
			gateway.PathEmailVerify: {http.StatusNotFound, `{"message":"College not registered with us"}`},
		})
		c := newClient(t, srv.URL)

		_, err := c.VerifyEmailDomain(ctx, "a@nowhere.edu")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, gateway.CodeDomainUnrecognized)
		assert.Equal(t, "College not registered with us", gateway.Message(err))
	})

	t.Run("missing college is an invalid response", func(t *testing.T) {
		_, srv := newBackend(t, map[string]response{
			gateway.PathEmailVerify: {http.StatusOK, `{}`},
		})
		c := newClient(t, srv.URL)

		_, err := c.VerifyEmailDomain(ctx, "a@univ.edu")
		errutil.AssertErrorCode(t, err, gateway.CodeResponseInvalid)
		assert.True(t, gateway.IsApplication(err))
	})
}

func TestHTTPClient_OTP(t *testing.T) {
	ctx := context.Background()
	b, srv := newBackend(t, map[string]response{
		gateway.PathGenerateOTP: {http.StatusOK, `{}`},
		gateway.PathOTPVerify:   {http.StatusOK, ``},
	})
	c := newClient(t, srv.URL)

	require.NoError(t, c.SendOTP(ctx, "a@univ.edu"))
	assert.Equal(t, gateway.PathGenerateOTP, b.last(t).Path)
	assert.Equal(t, "a@univ.edu", b.last(t).Body["email"])

	require.NoError(t, c.VerifyOTP(ctx, "123456"))
	assert.Equal(t, gateway.PathOTPVerify, b.last(t).Path)
	assert.Equal(t, "123456", b.last(t).Body["otp"])
}

func TestHTTPClient_ErrorClassification(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		path        string
		status      int
		body        string
		call        func(*gateway.HTTPClient) error
		wantCode    string
		wantMessage string
	}{
		{
			name:   "expired otp",
			path:   gateway.PathOTPVerify,
			status: http.StatusGone,
			body:   `{"message":"OTP expired"}`,
			call: func(c *gateway.HTTPClient) error {
				return c.VerifyOTP(ctx, "123456")
			},
			wantCode:    gateway.CodeOTPExpired,
			wantMessage: "OTP expired",
		},
		{
			name:   "invalid otp",
			path:   gateway.PathOTPVerify,
			status: http.StatusBadRequest,
			body:   `{"message":"Invalid OTP"}`,
			call: func(c *gateway.HTTPClient) error {
				return c.VerifyOTP(ctx, "000000")
			},
			wantCode:    gateway.CodeOTPInvalid,
			wantMessage: "Invalid OTP",
		},
		{
			name:   "explicit code in body wins",
			path:   gateway.PathOTPVerify,
			status: http.StatusBadRequest,
			body:   `{"message":"Code has expired","code":"otp_expired"}`,
			call: func(c *gateway.HTTPClient) error {
				return c.VerifyOTP(ctx, "123456")
			},
			wantCode:    gateway.CodeOTPExpired,
			wantMessage: "Code has expired",
		},
		{
			name:   "rate limited otp dispatch",
			path:   gateway.PathGenerateOTP,
			status: http.StatusTooManyRequests,
			body:   `{"message":"Too many requests"}`,
			call: func(c *gateway.HTTPClient) error {
				return c.SendOTP(ctx, "a@univ.edu")
			},
			wantCode:    gateway.CodeRateLimited,
			wantMessage: "Too many requests",
		},
		{
			name:   "wrong password",
			path:   gateway.PathSignIn,
			status: http.StatusUnauthorized,
			body:   `{"message":"Incorrect password"}`,
			call: func(c *gateway.HTTPClient) error {
				_, err := c.Authenticate(ctx, "a@univ.edu", "Abcdef1!")
				return err
			},
			wantCode:    gateway.CodeInvalidCredentials,
			wantMessage: "Incorrect password",
		},
		{
			name:   "unknown user on lookup",
			path:   gateway.PathGetUserFromEmail,
			status: http.StatusNotFound,
			body:   `{"message":"User not found"}`,
			call: func(c *gateway.HTTPClient) error {
				_, err := c.LookupUserByEmail(ctx, "a@univ.edu")
				return err
			},
			wantCode:    gateway.CodeUserNotFound,
			wantMessage: "User not found",
		},
		{
			name:   "server error without message",
			path:   gateway.PathResetPassword,
			status: http.StatusInternalServerError,
			body:   `oops`,
			call: func(c *gateway.HTTPClient) error {
				return c.ResetPassword(ctx, gateway.Identity{ID: "u1", Type: "student"}, "Abcdef1!")
			},
			wantCode:    gateway.CodeApplication,
			wantMessage: "Request failed with status code 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newBackend(t, map[string]response{tt.path: {tt.status, tt.body}})
			c := newClient(t, srv.URL)

			err := tt.call(c)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.wantCode)
			assert.True(t, gateway.IsApplication(err))
			assert.Equal(t, tt.wantMessage, gateway.Message(err))
		})
	}
}

func TestHTTPClient_Authenticate(t *testing.T) {
	ctx := context.Background()
	b, srv := newBackend(t, map[string]response{
		gateway.PathSignIn: {http.StatusOK, `{"token":"tok-1","user":{"_id":"u1","type":"student","email":"a@univ.edu","fullName":"Ada L"}}`},
	})
	c := newClient(t, srv.URL)

	sess, err := c.Authenticate(ctx, "a@univ.edu", "Abcdef1!")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", sess.Token)
	assert.Equal(t, "u1", sess.User.ID)
	assert.Equal(t, "student", sess.User.Type)
	assert.Equal(t, "Ada L", sess.User.FullName)
	assert.JSONEq(t, `{"_id":"u1","type":"student","email":"a@univ.edu","fullName":"Ada L"}`, string(sess.User.Raw))

	req := b.last(t)
	assert.Equal(t, "a@univ.edu", req.Body["email"])
	assert.Equal(t, "Abcdef1!", req.Body["password"])
}

func TestHTTPClient_Authenticate_MissingToken(t *testing.T) {
	_, srv := newBackend(t, map[string]response{
		gateway.PathSignIn: {http.StatusOK, `{"user":{"id":"u1"}}`},
	})
	c := newClient(t, srv.URL)

	_, err := c.Authenticate(context.Background(), "a@univ.edu", "Abcdef1!")
	errutil.AssertErrorCode(t, err, gateway.CodeResponseInvalid)
}

func TestHTTPClient_FinalizeCredentials(t *testing.T) {
	b, srv := newBackend(t, map[string]response{
		gateway.PathSignUp: {http.StatusCreated, `{"token":"tok-2","user":{"id":"u2"}}`},
	})
	c := newClient(t, srv.URL)

	sess, err := c.FinalizeCredentials(context.Background(), gateway.Registration{
		Type:     "student",
		Email:    "a@univ.edu",
		Password: "Abcdef1!",
		Username: "ada",
		FullName: "Ada L",
		College:  &gateway.College{Name: "State University", Country: "US"},
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-2", sess.Token)
	assert.Equal(t, "u2", sess.User.ID)

	req := b.last(t)
	assert.Equal(t, "ada", req.Body["username"])
	assert.Equal(t, "Ada L", req.Body["fullName"])
	assert.Equal(t, map[string]any{"name": "State University", "country": "US"}, req.Body["college"])
}

func TestHTTPClient_LookupAndReset(t *testing.T) {
	ctx := context.Background()
	b, srv := newBackend(t, map[string]response{
		gateway.PathGetUserFromEmail: {http.StatusOK, `{"id":"u9","type":"society"}`},
		gateway.PathResetPassword:    {http.StatusOK, `{}`},
	})
	c := newClient(t, srv.URL)

	id, err := c.LookupUserByEmail(ctx, "lead@univ.edu")
	require.NoError(t, err)
	assert.Equal(t, gateway.Identity{ID: "u9", Type: "society"}, id)

	require.NoError(t, c.ResetPassword(ctx, id, "Abcdef1!"))
	req := b.last(t)
	assert.Equal(t, gateway.PathResetPassword, req.Path)
	assert.Equal(t, "u9", req.Body["id"])
	assert.Equal(t, "society", req.Body["type"])
	assert.Equal(t, "Abcdef1!", req.Body["password"])
}

func TestHTTPClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	c := newClient(t, baseURL)
	err := c.SendOTP(context.Background(), "a@univ.edu")
	require.Error(t, err)
	assert.True(t, gateway.IsTransport(err))
	assert.NotEmpty(t, gateway.Message(err))
	errutil.AssertErrorContext(t, err, "operation", gateway.OpSendOTP)
}

func TestHTTPClient_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := newClient(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.VerifyOTP(ctx, "123456")
	require.Error(t, err)
	assert.True(t, gateway.IsTransport(err))
}
