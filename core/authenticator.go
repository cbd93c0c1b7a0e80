package core

import "context"

// Authenticator produces credentials from server-issued challenges. The
// platform implementation (passkey prompt, hardware key) lives outside this
// module; the SDK only drives it and treats its output as opaque.
type Authenticator interface {
	// CreateAttestation answers a registration challenge.
	CreateAttestation(ctx context.Context, challenge *SignupChallenge) (*Attestation, error)

	// CreateAssertion answers a login or verify challenge.
	CreateAssertion(ctx context.Context, challenge *LoginChallenge) (*Assertion, error)
}
