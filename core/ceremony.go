package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Signup requests a registration challenge for a new account.
func (c *Client) Signup(ctx context.Context, email, firstName, lastName, country string) (*SignupChallenge, error) {
	form := url.Values{}
	form.Set("firstName", firstName)
	form.Set("lastName", lastName)
	if country != "" {
		form.Set("country", country)
	}
	form.Set("email", email)

	payload, err := c.postForm(ctx, "/api/authn/register", form, nil)
	if err != nil {
		return nil, err
	}

	var challenge SignupChallenge
	if err := decode(payload, &challenge); err != nil {
		return nil, err
	}
	if challenge.Challenge == "" {
		return nil, fmt.Errorf("%w: missing challenge", ErrDecode)
	}
	return &challenge, nil
}

// SignupConfirm submits the attestation produced for a signup challenge. The
// attestation response is forwarded exactly as received; the backend is
// authoritative over its contents.
func (c *Client) SignupConfirm(ctx context.Context, email string, attestation *Attestation) (*SignupData, error) {
	response, err := json.Marshal(attestation.Response)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	form := url.Values{}
	form.Set("email", email)
	form.Set("id", attestation.ID)
	form.Set("response", string(response))

	payload, err := c.postForm(ctx, "/api/authn/registerConfirm", form, nil)
	if err != nil {
		return nil, err
	}

	var data SignupData
	if err := decode(payload, &data); err != nil {
		return nil, err
	}
	data.SignupToken = decodeEnvelope(payload).SignupToken
	return &data, nil
}

// SignupComplete redeems the one-time code and establishes the session from
// the returned identity.
func (c *Client) SignupComplete(ctx context.Context, signupToken, code string) (*User, error) {
	if signupToken == "" {
		return nil, ErrUnauthenticated
	}

	form := url.Values{}
	form.Set("code", code)

	payload, err := c.postForm(ctx, "/api/authn/registerComplete", form, map[string]string{headerSignupToken: signupToken})
	if err != nil {
		return nil, err
	}
	return c.completeSession(ctx, payload)
}

// Login requests a login challenge for the given identity handle.
func (c *Client) Login(ctx context.Context, email string) (*LoginChallenge, error) {
	return c.requestLoginChallenge(ctx, "/api/authn/login", email)
}

// LoginComplete submits the assertion produced for a login challenge and
// replaces the session with the returned identity.
func (c *Client) LoginComplete(ctx context.Context, email string, assertion *Assertion) (*User, error) {
	return c.submitAssertion(ctx, "/api/authn/loginComplete", email, assertion)
}

// Verify requests a verification challenge for an already-enrolled handle.
func (c *Client) Verify(ctx context.Context, email string) (*LoginChallenge, error) {
	return c.requestLoginChallenge(ctx, "/api/authn/verify", email)
}

// VerifyComplete submits the assertion for a verify challenge.
func (c *Client) VerifyComplete(ctx context.Context, email string, assertion *Assertion) (*User, error) {
	return c.submitAssertion(ctx, "/api/authn/verifyComplete", email, assertion)
}

func (c *Client) requestLoginChallenge(ctx context.Context, path, email string) (*LoginChallenge, error) {
	form := url.Values{}
	form.Set("email", email)

	payload, err := c.postForm(ctx, path, form, nil)
	if err != nil {
		return nil, err
	}

	var challenge LoginChallenge
	if err := decode(payload, &challenge); err != nil {
		return nil, err
	}
	if challenge.Challenge == "" {
		return nil, fmt.Errorf("%w: missing challenge", ErrDecode)
	}
	return &challenge, nil
}

func (c *Client) submitAssertion(ctx context.Context, path, email string, assertion *Assertion) (*User, error) {
	response, err := json.Marshal(assertion.Response)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	form := url.Values{}
	form.Set("email", email)
	form.Set("id", assertion.ID)
	form.Set("response", string(response))

	payload, err := c.postForm(ctx, path, form, nil)
	if err != nil {
		return nil, err
	}
	return c.completeSession(ctx, payload)
}

// AddPasskey requests a challenge for enrolling an additional passkey on the
// current account.
func (c *Client) AddPasskey(ctx context.Context) (*SignupChallenge, error) {
	payload, err := c.postFormAuthed(ctx, "/api/authn/addPasskey", url.Values{})
	if err != nil {
		return nil, err
	}

	var challenge SignupChallenge
	if err := decode(payload, &challenge); err != nil {
		return nil, err
	}
	if challenge.Challenge == "" {
		return nil, fmt.Errorf("%w: missing challenge", ErrDecode)
	}
	return &challenge, nil
}

// AddPasskeyComplete submits the attestation for an add-passkey challenge and
// refreshes the identity snapshot.
func (c *Client) AddPasskeyComplete(ctx context.Context, attestation *Attestation) (*User, error) {
	response, err := json.Marshal(attestation.Response)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	form := url.Values{}
	form.Set("id", attestation.ID)
	form.Set("response", string(response))

	payload, err := c.postFormAuthed(ctx, "/api/authn/addPasskeyComplete", form)
	if err != nil {
		return nil, err
	}
	return c.completeSession(ctx, payload)
}

// UpdateProfile changes the display fields of the current account.
func (c *Client) UpdateProfile(ctx context.Context, firstName, lastName, country string) error {
	form := url.Values{}
	form.Set("firstName", firstName)
	form.Set("lastName", lastName)
	if country != "" {
		form.Set("country", country)
	}

	_, err := c.postFormAuthed(ctx, "/api/authn/updateProfile", form)
	return err
}

// UpdatePasskey renames a passkey and returns the refreshed identity.
func (c *Client) UpdatePasskey(ctx context.Context, keyID, keyName string) (*User, error) {
	form := url.Values{}
	form.Set("keyId", keyID)
	form.Set("keyName", keyName)

	payload, err := c.postFormAuthed(ctx, "/api/authn/updatePasskey", form)
	if err != nil {
		return nil, err
	}
	return c.completeSession(ctx, payload)
}

// RemovePasskey deletes a passkey and returns the refreshed identity.
func (c *Client) RemovePasskey(ctx context.Context, keyID string) (*User, error) {
	form := url.Values{}
	form.Set("keyId", keyID)

	payload, err := c.postFormAuthed(ctx, "/api/authn/removePasskey", form)
	if err != nil {
		return nil, err
	}
	return c.completeSession(ctx, payload)
}

// DeleteAccount removes the account server-side and resets the session.
func (c *Client) DeleteAccount(ctx context.Context) error {
	if _, err := c.postFormAuthed(ctx, "/api/authn/deleteAccount", url.Values{}); err != nil {
		return err
	}
	c.clearSession(ctx)
	return nil
}

// Logout clears the session. It has no network effect and cannot fail.
func (c *Client) Logout() {
	c.clearSession(context.Background())
}

// ScanAppKey redeems a scanned AppKeyID QR URL against the backend.
func (c *Client) ScanAppKey(ctx context.Context, scanURL string) error {
	if !strings.Contains(scanURL, "/api/appkeyid/scan/") {
		return fmt.Errorf("%w: not an appkeyid scan URL", ErrInvalidData)
	}
	_, err := c.getAuthed(ctx, scanURL)
	return err
}

// RemoveAppKey unlinks an AppKeyID from the current account.
func (c *Client) RemoveAppKey(ctx context.Context, appID string) error {
	form := url.Values{}
	form.Set("appId", appID)

	_, err := c.postFormAuthed(ctx, "/api/appkeyid/remove", form)
	return err
}

// PerformSignup drives the full registration ceremony: challenge, configured
// authenticator, confirmation. The returned SignupData carries the signup
// token needed for SignupComplete.
func (c *Client) PerformSignup(ctx context.Context, email, firstName, lastName, country string) (*SignupData, error) {
	if c.authenticator == nil {
		return nil, ErrNoAuthenticator
	}
	challenge, err := c.Signup(ctx, email, firstName, lastName, country)
	if err != nil {
		return nil, err
	}
	attestation, err := c.authenticator.CreateAttestation(ctx, challenge)
	if err != nil {
		return nil, err
	}
	return c.SignupConfirm(ctx, email, attestation)
}

// PerformLogin drives the full login ceremony through the configured
// authenticator.
func (c *Client) PerformLogin(ctx context.Context, email string) (*User, error) {
	return c.performAssertion(ctx, email, c.Login, c.LoginComplete)
}

// PerformVerify drives the full verify ceremony.
func (c *Client) PerformVerify(ctx context.Context, email string) (*User, error) {
	return c.performAssertion(ctx, email, c.Verify, c.VerifyComplete)
}

func (c *Client) performAssertion(
	ctx context.Context,
	email string,
	request func(context.Context, string) (*LoginChallenge, error),
	complete func(context.Context, string, *Assertion) (*User, error),
) (*User, error) {
	if c.authenticator == nil {
		return nil, ErrNoAuthenticator
	}
	challenge, err := request(ctx, email)
	if err != nil {
		return nil, err
	}
	assertion, err := c.authenticator.CreateAssertion(ctx, challenge)
	if err != nil {
		return nil, err
	}
	return complete(ctx, email, assertion)
}

// PerformAddPasskey drives the full add-passkey ceremony on the current
// account.
func (c *Client) PerformAddPasskey(ctx context.Context) (*User, error) {
	if c.authenticator == nil {
		return nil, ErrNoAuthenticator
	}
	challenge, err := c.AddPasskey(ctx)
	if err != nil {
		return nil, err
	}
	attestation, err := c.authenticator.CreateAttestation(ctx, challenge)
	if err != nil {
		return nil, err
	}
	return c.AddPasskeyComplete(ctx, attestation)
}
