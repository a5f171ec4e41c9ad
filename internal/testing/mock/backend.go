package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signingKey signs tokens issued by the mock backend. The gateway never
// verifies signatures, so any key works.
var signingKey = []byte("lmsgate-mock-backend")

// User is an account known to the mock backend.
type User struct {
	ID       string
	Email    string
	Password string
	Role     string

	// TwoFactorCode is the code the authenticator app would show. When set
	// together with TwoFactorEnabled, login requires a second step.
	TwoFactorCode    string
	TwoFactorEnabled bool

	// BackupCodes are single-use alternates accepted by /2fa/verify.
	BackupCodes []string
}

// Resource is a canned reply for a generic passthrough path.
type Resource struct {
	Status int
	Body   string
	Header http.Header
}

// BackendConfig configures the mock backend.
type BackendConfig struct {
	// Users seeds the account table.
	Users []User

	// TokenLifetime is how long issued tokens remain valid. Defaults to 1h.
	TokenLifetime time.Duration

	// Clock drives token issuance and expiry. Defaults to RealClock.
	Clock Clock

	// ResponseDelay is added to generic resource replies, widening the window
	// for concurrent requests to overlap.
	ResponseDelay time.Duration
}

// Backend is a scriptable fake of the learning platform API. It serves the
// auth and second-factor endpoints plus canned replies for any other path
// under /api/, and counts every call.
type Backend struct {
	config BackendConfig
	clock  Clock

	mu           sync.Mutex
	users        map[string]*User
	tempTokens   map[string]string // tempToken -> email
	issued       map[string]string // token -> email
	revoked      map[string]bool
	pendingSetup map[string]string // email -> secret
	resources    map[string]Resource
	calls        map[string]int
	failRefresh  bool
	seq          int
	tempSeq      int

	httpServer *http.Server
	listener   net.Listener
	url        string
}

// NewBackend creates a mock backend.
func NewBackend(config BackendConfig) *Backend {
	if config.TokenLifetime == 0 {
		config.TokenLifetime = time.Hour
	}
	clock := config.Clock
	if clock == nil {
		clock = RealClock{}
	}

	b := &Backend{
		config:       config,
		clock:        clock,
		users:        make(map[string]*User),
		tempTokens:   make(map[string]string),
		issued:       make(map[string]string),
		revoked:      make(map[string]bool),
		pendingSetup: make(map[string]string),
		resources:    make(map[string]Resource),
		calls:        make(map[string]int),
	}
	for i := range config.Users {
		u := config.Users[i]
		b.users[strings.ToLower(u.Email)] = &u
	}
	return b
}

// Start listens on a random local port and returns the origin URL.
func (b *Backend) Start(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.httpServer != nil {
		return b.url, nil
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	b.listener = listener
	b.url = "http://" + listener.Addr().String()
	b.httpServer = &http.Server{
		Handler:  b,
		ErrorLog: log.New(io.Discard, "", 0),
	}

	go func() {
		_ = b.httpServer.Serve(listener)
	}()
	return b.url, nil
}

// URL returns the origin the backend listens on.
func (b *Backend) URL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.url
}

// Stop shuts the server down.
func (b *Backend) Stop(ctx context.Context) error {
	b.mu.Lock()
	srv := b.httpServer
	b.httpServer = nil
	b.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// SetResource scripts the reply for METHOD path (path relative to /api/).
func (b *Backend) SetResource(method, path string, res Resource) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resources[callKey(method, path)] = res
}

// SetFailRefresh makes /auth/refresh reject every token.
func (b *Backend) SetFailRefresh(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failRefresh = fail
}

// Calls returns how many times METHOD path was requested.
func (b *Backend) Calls(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[callKey(method, path)]
}

// TotalCalls returns the number of requests served.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.calls {
		total += n
	}
	return total
}

// IssueToken mints a valid token for email, as a successful login would.
func (b *Backend) IssueToken(email string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[strings.ToLower(email)]
	if !ok {
		return "", fmt.Errorf("unknown user %s", email)
	}
	return b.issueLocked(u)
}

// TwoFactorEnabled reports the user's current second-factor state.
func (b *Backend) TwoFactorEnabled(email string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[strings.ToLower(email)]
	return ok && u.TwoFactorEnabled
}

func callKey(method, path string) string {
	return strings.ToUpper(method) + " " + strings.Trim(path, "/")
}

func (b *Backend) issueLocked(u *User) (string, error) {
	b.seq++
	now := b.clock.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":    u.ID,
		"email": u.Email,
		"role":  u.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(b.config.TokenLifetime).Unix(),
		"jti":   fmt.Sprintf("mock-%d", b.seq),
	}).SignedString(signingKey)
	if err != nil {
		return "", err
	}
	b.issued[token] = u.Email
	return token, nil
}

// ServeHTTP implements http.Handler.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not found"})
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/"), "/")

	b.mu.Lock()
	b.calls[callKey(r.Method, path)]++
	b.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && path == "auth/login":
		b.handleLogin(w, r)
	case r.Method == http.MethodPost && path == "2fa/verify":
		b.handleVerify(w, r)
	case r.Method == http.MethodGet && path == "auth/me":
		b.handleMe(w, r)
	case r.Method == http.MethodPost && path == "auth/refresh":
		b.handleRefresh(w, r)
	case r.Method == http.MethodPost && path == "user2fa/setup":
		b.handleSetup(w, r)
	case r.Method == http.MethodPost && path == "user2fa/enable":
		b.handleEnable(w, r)
	case r.Method == http.MethodPost && path == "user2fa/disable":
		b.handleDisable(w, r)
	default:
		b.handleResource(w, r, path)
	}
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[strings.ToLower(req.Email)]
	if !ok || u.Password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}

	if u.TwoFactorEnabled {
		b.tempSeq++
		temp := fmt.Sprintf("T%d", b.tempSeq)
		b.tempTokens[temp] = u.Email
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"requiresTwoFactor": true,
			"tempToken":         temp,
		})
		return
	}

	token, err := b.issueLocked(u)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"token": token, "user": userJSON(u)})
}

func (b *Backend) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email         string `json:"email"`
		TempToken     string `json:"tempToken"`
		TwoFactorCode string `json:"twoFactorCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	email, ok := b.tempTokens[req.TempToken]
	if !ok || !strings.EqualFold(email, req.Email) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid or expired session"})
		return
	}
	u := b.users[strings.ToLower(email)]

	if !b.acceptCodeLocked(u, req.TwoFactorCode) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid verification code"})
		return
	}

	delete(b.tempTokens, req.TempToken)
	token, err := b.issueLocked(u)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"token": token, "user": userJSON(u)})
}

// acceptCodeLocked checks the authenticator code, then consumes a matching
// backup code.
func (b *Backend) acceptCodeLocked(u *User, code string) bool {
	if code == "" {
		return false
	}
	if code == u.TwoFactorCode {
		return true
	}
	for i, backup := range u.BackupCodes {
		if backup == code {
			u.BackupCodes = append(u.BackupCodes[:i], u.BackupCodes[i+1:]...)
			return true
		}
	}
	return false
}

// authenticateLocked resolves the bearer token to a user. It writes 401 and
// returns nil when the token is not usable.
func (b *Backend) authenticateLocked(w http.ResponseWriter, r *http.Request) *User {
	auth := r.Header.Get("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	email, ok := b.issued[token]
	if auth == "" || !ok || b.revoked[token] {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Not authorized"})
		return nil
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil ||
		claims.ExpiresAt == nil || !b.clock.Now().Before(claims.ExpiresAt.Time) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token expired"})
		return nil
	}
	return b.users[strings.ToLower(email)]
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u := b.authenticateLocked(w, r)
	if u == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": userJSON(u)})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failRefresh {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Refresh rejected"})
		return
	}
	u := b.authenticateLocked(w, r)
	if u == nil {
		return
	}

	old := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	token, err := b.issueLocked(u)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
		return
	}
	b.revoked[old] = true
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (b *Backend) handleSetup(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u := b.authenticateLocked(w, r)
	if u == nil {
		return
	}
	if u.TwoFactorEnabled {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Two-factor authentication is already enabled"})
		return
	}

	b.seq++
	secret := fmt.Sprintf("MOCKSECRET%04d", b.seq)
	b.pendingSetup[strings.ToLower(u.Email)] = secret
	otpauth := fmt.Sprintf("otpauth://totp/LMS:%s?secret=%s&issuer=LMS", u.Email, secret)
	writeJSON(w, http.StatusOK, map[string]string{
		"secret":     secret,
		"qrCode":     "data:image/png;base64,bW9jaw==",
		"otpauthUrl": otpauth,
	})
}

func (b *Backend) handleEnable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret string `json:"secret"`
		Token  string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	u := b.authenticateLocked(w, r)
	if u == nil {
		return
	}
	key := strings.ToLower(u.Email)
	if secret, ok := b.pendingSetup[key]; !ok || secret != req.Secret {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "No pending two-factor setup"})
		return
	}
	if req.Token == "" || req.Token != u.TwoFactorCode {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid verification code"})
		return
	}

	delete(b.pendingSetup, key)
	u.TwoFactorEnabled = true
	u.BackupCodes = make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		b.seq++
		u.BackupCodes = append(u.BackupCodes, fmt.Sprintf("BK%02d-%04d", i, b.seq))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"backupCodes": append([]string(nil), u.BackupCodes...),
	})
}

func (b *Backend) handleDisable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	u := b.authenticateLocked(w, r)
	if u == nil {
		return
	}
	if !u.TwoFactorEnabled {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Two-factor authentication is not enabled"})
		return
	}
	if !b.acceptCodeLocked(u, req.Token) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid verification code"})
		return
	}
	u.TwoFactorEnabled = false
	u.BackupCodes = nil
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (b *Backend) handleResource(w http.ResponseWriter, r *http.Request, path string) {
	b.mu.Lock()
	res, scripted := b.resources[callKey(r.Method, path)]
	delay := b.config.ResponseDelay
	b.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if scripted {
		for name, values := range res.Header {
			for _, v := range values {
				w.Header().Add(name, v)
			}
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		status := res.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, res.Body)
		return
	}

	body, _ := io.ReadAll(r.Body)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"path":          path,
		"query":         r.URL.RawQuery,
		"method":        r.Method,
		"body":          string(body),
		"authorization": r.Header.Get("Authorization") != "",
	})
}

func userJSON(u *User) map[string]string {
	return map[string]string{"id": u.ID, "email": u.Email, "role": u.Role}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
