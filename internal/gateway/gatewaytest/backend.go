// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package gatewaytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/renegan/campusauth/internal/gateway"
)

// Defaults used by NewBackend.
const (
	DefaultOTP    = "123456"
	DefaultDomain = "uni.edu"
)

// DefaultCollege is the institution behind DefaultDomain and its subdomains.
var DefaultCollege = gateway.College{Name: "Example University", Country: "India"}

var signingKey = []byte("gatewaytest")

// Account is a user known to the Backend. Password is only read by
// AddAccount; the backend keeps a hash.
type Account struct {
	ID       string
	Type     string
	Email    string
	Password string
	Username string
	FullName string
}

type college struct {
	pattern glob.Glob
	info    gateway.College
}

type record struct {
	account Account
	hash    string
	lock    lockout
}

// Backend is an in-memory stand-in for the auth API, served over HTTP.
type Backend struct {
	mu       sync.Mutex
	colleges []college
	accounts map[string]*record
	otp      string
	otpsSent []string
	calls    map[string]int
	tokenTTL time.Duration
	now      func() time.Time

	server *httptest.Server
}

// NewBackend returns a backend that knows DefaultDomain and accepts
// DefaultOTP. Call Start to serve it.
func NewBackend() *Backend {
	b := &Backend{
		accounts: map[string]*record{},
		otp:      DefaultOTP,
		calls:    map[string]int{},
		tokenTTL: time.Hour,
		now:      time.Now,
	}
	b.AddCollege(DefaultDomain, DefaultCollege)
	b.AddCollege("*."+DefaultDomain, DefaultCollege)
	return b
}

// AddCollege makes email domains matching pattern resolve to c. Patterns
// use glob syntax with '.' as separator, so "*.uni.edu" matches
// "cs.uni.edu" but not "a.cs.uni.edu". It panics on a malformed pattern.
func (b *Backend) AddCollege(pattern string, c gateway.College) {
	g := glob.MustCompile(strings.ToLower(pattern), '.')
	b.mu.Lock()
	defer b.mu.Unlock()
	b.colleges = append(b.colleges, college{pattern: g, info: c})
}

func (b *Backend) lookupCollege(domain string) (gateway.College, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.colleges {
		if c.pattern.Match(domain) {
			return c.info, true
		}
	}
	return gateway.College{}, false
}

// Start serves the backend and returns its base URL.
func (b *Backend) Start() string {
	b.server = httptest.NewServer(b.Handler())
	return b.server.URL
}

// Close stops the server started by Start.
func (b *Backend) Close() {
	if b.server != nil {
		b.server.Close()
	}
}

// AddAccount registers an existing user. It panics if the password cannot
// be hashed.
func (b *Backend) AddAccount(a Account) Account {
	hash, err := hashPassword(a.Password)
	if err != nil {
		panic(err)
	}
	if a.ID == "" {
		a.ID = ulid.Make().String()
	}
	a.Password = ""

	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[strings.ToLower(a.Email)] = &record{account: a, hash: hash}
	return a
}

// Account returns the user registered under email.
func (b *Backend) Account(email string) (Account, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.accounts[strings.ToLower(email)]
	if !ok {
		return Account{}, false
	}
	return r.account, true
}

// OTPsSent lists the addresses codes were sent to, in order.
func (b *Backend) OTPsSent() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.otpsSent...)
}

// Calls returns how often path was requested.
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

// Handler returns the backend's HTTP handler.
func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+gateway.PathEmailVerify, b.emailVerify)
	mux.HandleFunc("POST "+gateway.PathGenerateOTP, b.generateOTP)
	mux.HandleFunc("POST "+gateway.PathOTPVerify, b.otpVerify)
	mux.HandleFunc("POST "+gateway.PathSignIn, b.signIn)
	mux.HandleFunc("POST "+gateway.PathSignUp, b.signUp)
	mux.HandleFunc("POST "+gateway.PathGetUserFromEmail, b.userFromEmail)
	mux.HandleFunc("POST "+gateway.PathResetPassword, b.resetPassword)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[r.URL.Path]++
		b.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

func (b *Backend) emailVerify(w http.ResponseWriter, r *http.Request) {
	var req struct{ Email string }
	if !decode(w, r, &req) {
		return
	}
	domain := strings.ToLower(req.Email[strings.LastIndex(req.Email, "@")+1:])

	info, ok := b.lookupCollege(domain)
	if !ok {
		fail(w, http.StatusNotFound, gateway.CodeDomainUnrecognized, "Your university is not registered with us.")
		return
	}
	reply(w, map[string]any{"college": info})
}

func (b *Backend) generateOTP(w http.ResponseWriter, r *http.Request) {
	var req struct{ Email string }
	if !decode(w, r, &req) {
		return
	}
	b.mu.Lock()
	b.otpsSent = append(b.otpsSent, req.Email)
	b.mu.Unlock()
	reply(w, map[string]any{"message": "OTP sent"})
}

func (b *Backend) otpVerify(w http.ResponseWriter, r *http.Request) {
	var req struct{ OTP string }
	if !decode(w, r, &req) {
		return
	}
	b.mu.Lock()
	ok := req.OTP == b.otp
	b.mu.Unlock()
	if !ok {
		fail(w, http.StatusBadRequest, gateway.CodeOTPInvalid, "Invalid OTP")
		return
	}
	reply(w, map[string]any{"message": "OTP verified"})
}

func (b *Backend) signIn(w http.ResponseWriter, r *http.Request) {
	var req struct{ Email, Password string }
	if !decode(w, r, &req) {
		return
	}
	b.mu.Lock()
	rec, ok := b.accounts[strings.ToLower(req.Email)]
	if !ok {
		b.mu.Unlock()
		fail(w, http.StatusNotFound, gateway.CodeUserNotFound, "User not found")
		return
	}
	now := b.now()
	if rec.lock.locked(now) {
		b.mu.Unlock()
		fail(w, http.StatusTooManyRequests, gateway.CodeRateLimited, "Too many attempts. Try again later.")
		return
	}
	match, err := checkPassword(req.Password, rec.hash)
	if err != nil {
		b.mu.Unlock()
		fail(w, http.StatusInternalServerError, gateway.CodeApplication, err.Error())
		return
	}
	if !match {
		locked := rec.lock.fail(now)
		b.mu.Unlock()
		if locked {
			fail(w, http.StatusTooManyRequests, gateway.CodeRateLimited, "Too many attempts. Try again later.")
			return
		}
		fail(w, http.StatusUnauthorized, gateway.CodeInvalidCredentials, "Invalid email or password")
		return
	}
	rec.lock = lockout{}
	a := rec.account
	b.mu.Unlock()
	b.replySession(w, a)
}

func (b *Backend) signUp(w http.ResponseWriter, r *http.Request) {
	var req gateway.Registration
	if !decode(w, r, &req) {
		return
	}
	if _, exists := b.Account(req.Email); exists {
		fail(w, http.StatusConflict, gateway.CodeApplication, "User already exists")
		return
	}
	a := b.AddAccount(Account{
		Type:     req.Type,
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		FullName: req.FullName,
	})
	b.replySession(w, a)
}

func (b *Backend) userFromEmail(w http.ResponseWriter, r *http.Request) {
	var req struct{ Email string }
	if !decode(w, r, &req) {
		return
	}
	a, ok := b.Account(req.Email)
	if !ok {
		fail(w, http.StatusNotFound, gateway.CodeUserNotFound, "User not found")
		return
	}
	reply(w, map[string]any{"id": a.ID, "type": a.Type})
}

func (b *Backend) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct{ ID, Type, Password string }
	if !decode(w, r, &req) {
		return
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		fail(w, http.StatusInternalServerError, gateway.CodeApplication, err.Error())
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range b.accounts {
		if rec.account.ID == req.ID {
			rec.hash = hash
			rec.lock = lockout{}
			reply(w, map[string]any{"message": "Password updated"})
			return
		}
	}
	fail(w, http.StatusNotFound, gateway.CodeUserNotFound, "User not found")
}

func (b *Backend) replySession(w http.ResponseWriter, a Account) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": a.ID,
		"exp": time.Now().Add(b.tokenTTL).Unix(),
	}).SignedString(signingKey)
	if err != nil {
		fail(w, http.StatusInternalServerError, gateway.CodeApplication, err.Error())
		return
	}
	reply(w, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":       a.ID,
			"type":     a.Type,
			"email":    a.Email,
			"username": a.Username,
			"fullName": a.FullName,
		},
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		fail(w, http.StatusBadRequest, gateway.CodeApplication, "malformed request")
		return false
	}
	return true
}

func reply(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func fail(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
}
