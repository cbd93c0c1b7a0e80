package integration_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockBackend implements the AppKey REST contract plus the blob storage PUT
// endpoints behind the upload URLs it issues. It is stateful: a signup flow
// creates a pending account that login and verify then recognize.
type MockBackend struct {
	server *httptest.Server

	mu            sync.Mutex
	challenges    map[string]string // email -> outstanding challenge
	signupTokens  map[string]string // signup token -> email
	pendingCodes  map[string]string // email -> one-time code
	accounts      map[string]*mockAccount
	accessTokens  map[string]string // access token -> email
	blobWrites    []string
	blobPayloads  map[string][]byte
	failBlobPaths map[string]bool
	challengeSeq  int
	tokenSeq      int
}

type mockAccount struct {
	UserID    string
	FirstName string
	LastName  string
	Email     string
	Passkeys  []map[string]any
}

const mockOneTimeCode = "123456"

func NewMockBackend() *MockBackend {
	m := &MockBackend{
		challenges:    make(map[string]string),
		signupTokens:  make(map[string]string),
		pendingCodes:  make(map[string]string),
		accounts:      make(map[string]*mockAccount),
		accessTokens:  make(map[string]string),
		blobPayloads:  make(map[string][]byte),
		failBlobPaths: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/authn/register", m.handleRegister)
	mux.HandleFunc("/api/authn/registerConfirm", m.handleRegisterConfirm)
	mux.HandleFunc("/api/authn/registerComplete", m.handleRegisterComplete)
	mux.HandleFunc("/api/authn/login", m.handleChallenge)
	mux.HandleFunc("/api/authn/verify", m.handleChallenge)
	mux.HandleFunc("/api/authn/loginComplete", m.handleAssertionComplete)
	mux.HandleFunc("/api/authn/verifyComplete", m.handleAssertionComplete)
	mux.HandleFunc("/api/authn/addPasskey", m.handleAddPasskey)
	mux.HandleFunc("/api/authn/addPasskeyComplete", m.handleAddPasskeyComplete)
	mux.HandleFunc("/api/authn/updateProfile", m.handleUpdateProfile)
	mux.HandleFunc("/api/authn/updatePasskey", m.handleUpdatePasskey)
	mux.HandleFunc("/api/authn/removePasskey", m.handleRemovePasskey)
	mux.HandleFunc("/api/authn/deleteAccount", m.handleDeleteAccount)
	mux.HandleFunc("/api/appkeyid/getUploadUrl", m.handleGetUploadURL)
	mux.HandleFunc("/blob/", m.handleBlobPut)

	m.server = httptest.NewServer(mux)
	return m
}

func (m *MockBackend) URL() string { return m.server.URL }

func (m *MockBackend) Close() { m.server.Close() }

func (m *MockBackend) BlobWrites() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.blobWrites...)
}

func (m *MockBackend) BlobPayload(path string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blobPayloads[path]
}

func (m *MockBackend) FailBlobPath(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failBlobPaths[path] = true
}

func (m *MockBackend) reject(w http.ResponseWriter, code int, message string) {
	writeJSON(w, map[string]any{"status": false, "code": code, "message": message})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func (m *MockBackend) issueChallenge(email string) string {
	m.challengeSeq++
	challenge := fmt.Sprintf("challenge_%d", m.challengeSeq)
	m.challenges[email] = challenge
	return challenge
}

func (m *MockBackend) authedAccount(r *http.Request) *mockAccount {
	email, ok := m.accessTokens[r.Header.Get("access-token")]
	if !ok {
		return nil
	}
	return m.accounts[email]
}

// sessionPayload is the ceremony-completion shape: the identity snapshot
// with the token trio at the top level of the same object.
func (m *MockBackend) sessionPayload(account *mockAccount) map[string]any {
	m.tokenSeq++
	accessToken := fmt.Sprintf("access_%d", m.tokenSeq)
	m.accessTokens[accessToken] = account.Email

	return map[string]any{
		"userId":         account.UserID,
		"firstName":      account.FirstName,
		"lastName":       account.LastName,
		"email":          account.Email,
		"status":         "active",
		"authenticators": account.Passkeys,
		"access-token":   accessToken,
		"jwt":            fmt.Sprintf("jwt_%d", m.tokenSeq),
		"id-token":       fmt.Sprintf("idt_%d", m.tokenSeq),
	}
}

func (m *MockBackend) handleRegister(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.ParseForm()
	email := r.PostForm.Get("email")
	if email == "" {
		m.reject(w, 600, "email required")
		return
	}
	if _, exists := m.accounts[email]; exists {
		m.reject(w, 602, "email already exists")
		return
	}

	writeJSON(w, map[string]any{
		"challenge": m.issueChallenge(email),
		"user": map[string]string{
			"id":          "handle_" + email,
			"name":        email,
			"displayName": r.PostForm.Get("firstName") + " " + r.PostForm.Get("lastName"),
			"email":       email,
		},
	})
}

func (m *MockBackend) handleRegisterConfirm(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.ParseForm()
	email := r.PostForm.Get("email")
	challenge := m.challenges[email]
	if challenge == "" {
		m.reject(w, 603, "no outstanding challenge")
		return
	}
	if !credentialMatchesChallenge(r.PostForm.Get("response"), challenge) {
		m.reject(w, 604, "credential does not answer challenge")
		return
	}
	delete(m.challenges, email)

	m.tokenSeq++
	signupToken := fmt.Sprintf("signup_%d", m.tokenSeq)
	m.signupTokens[signupToken] = email
	m.pendingCodes[email] = mockOneTimeCode

	// The register form fields were consumed by handleRegister; confirm
	// rebuilds the account from the credential submission.
	m.accounts[email] = &mockAccount{
		UserID:    "user_" + email,
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Passkeys: []map[string]any{
			{"id": r.PostForm.Get("id"), "name": "Initial Passkey", "counter": 0},
		},
	}

	writeJSON(w, map[string]any{
		"email":        email,
		"message":      "verification code sent",
		"signup-token": signupToken,
	})
}

func (m *MockBackend) handleRegisterComplete(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email, ok := m.signupTokens[r.Header.Get("signup-token")]
	if !ok {
		m.reject(w, 605, "invalid signup token")
		return
	}

	r.ParseForm()
	if r.PostForm.Get("code") != m.pendingCodes[email] {
		m.reject(w, 606, "wrong code")
		return
	}
	delete(m.signupTokens, r.Header.Get("signup-token"))
	delete(m.pendingCodes, email)

	writeJSON(w, m.sessionPayload(m.accounts[email]))
}

func (m *MockBackend) handleChallenge(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.ParseForm()
	email := r.PostForm.Get("email")
	if _, exists := m.accounts[email]; !exists {
		m.reject(w, 607, "no such account")
		return
	}

	writeJSON(w, map[string]any{
		"rpId":             "mock.appkey.test",
		"challenge":        m.issueChallenge(email),
		"timeout":          60000,
		"userVerification": "preferred",
	})
}

func (m *MockBackend) handleAssertionComplete(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.ParseForm()
	email := r.PostForm.Get("email")
	challenge := m.challenges[email]
	if challenge == "" {
		m.reject(w, 603, "no outstanding challenge")
		return
	}
	if !credentialMatchesChallenge(r.PostForm.Get("response"), challenge) {
		m.reject(w, 604, "credential does not answer challenge")
		return
	}
	delete(m.challenges, email)

	writeJSON(w, m.sessionPayload(m.accounts[email]))
}

func (m *MockBackend) handleAddPasskey(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account := m.authedAccount(r)
	if account == nil {
		m.reject(w, 608, "not authenticated")
		return
	}

	writeJSON(w, map[string]any{
		"challenge": m.issueChallenge(account.Email),
		"user":      map[string]string{"id": "handle_" + account.Email, "email": account.Email},
	})
}

func (m *MockBackend) handleAddPasskeyComplete(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account := m.authedAccount(r)
	if account == nil {
		m.reject(w, 608, "not authenticated")
		return
	}

	r.ParseForm()
	challenge := m.challenges[account.Email]
	if challenge == "" || !credentialMatchesChallenge(r.PostForm.Get("response"), challenge) {
		m.reject(w, 604, "credential does not answer challenge")
		return
	}
	delete(m.challenges, account.Email)

	account.Passkeys = append(account.Passkeys, map[string]any{
		"id": r.PostForm.Get("id"), "name": "Additional Passkey", "counter": 0,
	})

	writeJSON(w, m.sessionPayload(account))
}

func (m *MockBackend) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account := m.authedAccount(r)
	if account == nil {
		m.reject(w, 608, "not authenticated")
		return
	}

	r.ParseForm()
	account.FirstName = r.PostForm.Get("firstName")
	account.LastName = r.PostForm.Get("lastName")

	writeJSON(w, map[string]any{"status": true, "message": "profile updated"})
}

func (m *MockBackend) handleUpdatePasskey(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account := m.authedAccount(r)
	if account == nil {
		m.reject(w, 608, "not authenticated")
		return
	}

	r.ParseForm()
	keyID := r.PostForm.Get("keyId")
	for _, passkey := range account.Passkeys {
		if passkey["id"] == keyID {
			passkey["name"] = r.PostForm.Get("keyName")
			// Identity refresh without fresh tokens.
			writeJSON(w, map[string]any{
				"userId":         account.UserID,
				"firstName":      account.FirstName,
				"lastName":       account.LastName,
				"email":          account.Email,
				"status":         "active",
				"authenticators": account.Passkeys,
			})
			return
		}
	}
	m.reject(w, 609, "passkey not found")
}

func (m *MockBackend) handleRemovePasskey(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account := m.authedAccount(r)
	if account == nil {
		m.reject(w, 608, "not authenticated")
		return
	}

	r.ParseForm()
	keyID := r.PostForm.Get("keyId")
	kept := account.Passkeys[:0]
	for _, passkey := range account.Passkeys {
		if passkey["id"] != keyID {
			kept = append(kept, passkey)
		}
	}
	account.Passkeys = kept

	writeJSON(w, map[string]any{
		"userId":         account.UserID,
		"firstName":      account.FirstName,
		"lastName":       account.LastName,
		"email":          account.Email,
		"status":         "active",
		"authenticators": account.Passkeys,
	})
}

func (m *MockBackend) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account := m.authedAccount(r)
	if account == nil {
		m.reject(w, 608, "not authenticated")
		return
	}

	delete(m.accounts, account.Email)
	for token, email := range m.accessTokens {
		if email == account.Email {
			delete(m.accessTokens, token)
		}
	}

	writeJSON(w, map[string]any{"status": true, "message": "account deleted"})
}

func (m *MockBackend) handleGetUploadURL(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.authedAccount(r) == nil {
		m.reject(w, 608, "not authenticated")
		return
	}

	r.ParseForm()
	id := r.PostForm.Get("id")
	fileName := r.PostForm.Get("fileName")
	base := fmt.Sprintf("/blob/%s/%s", id, fileName)

	payload := map[string]string{
		"id":       id,
		"writeUrl": m.server.URL + base,
		"readUrl":  m.server.URL + base,
		"path":     strings.TrimPrefix(base, "/blob/"),
	}
	if r.PostForm.Get("noCutting") == "false" {
		payload["writeUrlSmall"] = m.server.URL + base + "_small"
		payload["pathSmall"] = strings.TrimPrefix(base, "/blob/") + "_small"
		payload["writeUrlMedium"] = m.server.URL + base + "_medium"
		payload["pathMedium"] = strings.TrimPrefix(base, "/blob/") + "_medium"
		payload["writeUrlLarge"] = m.server.URL + base + "_large"
		payload["pathLarge"] = strings.TrimPrefix(base, "/blob/") + "_large"
	}
	writeJSON(w, payload)
}

func (m *MockBackend) handleBlobPut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("x-ms-blob-type") != "BlockBlob" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	body, _ := io.ReadAll(r.Body)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobWrites = append(m.blobWrites, r.URL.Path)
	m.blobPayloads[r.URL.Path] = body
	if m.failBlobPaths[r.URL.Path] {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// credentialMatchesChallenge checks that the submitted credential was minted
// for the outstanding challenge. Mock credentials embed the challenge string
// in every field, so a substring check is enough.
func credentialMatchesChallenge(response, challenge string) bool {
	return response != "" && strings.Contains(response, challenge)
}
