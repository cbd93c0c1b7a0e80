package authenticators

import (
	"context"

	"appkeyid/core"
)

// MockAuthenticator returns deterministic credentials for any challenge. It
// stands in for the platform passkey prompt in tests and in the demo CLI.
type MockAuthenticator struct {
	// CredentialID overrides the credential ID embedded in produced
	// credentials. Empty means "mock_credential_1".
	CredentialID string

	// Err, when set, is returned from every call.
	Err error

	// Track method calls for verification
	CreateAttestationCalls int
	CreateAssertionCalls   int
}

func NewMockAuthenticator() *MockAuthenticator {
	return &MockAuthenticator{}
}

func (m *MockAuthenticator) credentialID() string {
	if m.CredentialID != "" {
		return m.CredentialID
	}
	return "mock_credential_1"
}

func (m *MockAuthenticator) CreateAttestation(ctx context.Context, challenge *core.SignupChallenge) (*core.Attestation, error) {
	m.CreateAttestationCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	return &core.Attestation{
		ID:   m.credentialID(),
		Type: "public-key",
		Response: core.AttestationResponse{
			AttestationObject: "mock_attestation_object_" + challenge.Challenge,
			ClientDataJSON:    "mock_client_data_" + challenge.Challenge,
		},
	}, nil
}

func (m *MockAuthenticator) CreateAssertion(ctx context.Context, challenge *core.LoginChallenge) (*core.Assertion, error) {
	m.CreateAssertionCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	return &core.Assertion{
		ID:   m.credentialID(),
		Type: "public-key",
		Response: core.AssertionResponse{
			AuthenticatorData: "mock_authenticator_data_" + challenge.Challenge,
			ClientDataJSON:    "mock_client_data_" + challenge.Challenge,
			Signature:         "mock_signature_" + challenge.Challenge,
			UserHandle:        "mock_user_handle",
		},
	}, nil
}
