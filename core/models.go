package core

import "strings"

// User is the identity snapshot returned by ceremony-completing calls. The
// SDK replaces it wholesale after every such call and never mutates one in
// place.
type User struct {
	UserID         string    `json:"userId"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	Status         string    `json:"status"`
	Authenticators []Passkey `json:"authenticators"`
	PlanID         string    `json:"planId,omitempty"`
	Company        string    `json:"company,omitempty"`
	Country        string    `json:"country,omitempty"`
	Avatar         string    `json:"avatar,omitempty"`
}

// Passkey is a server-tracked public-key credential bound to a user. Counter
// values are server-reported; the SDK surfaces them without enforcing
// monotonicity.
type Passkey struct {
	ID                 string `json:"id"`
	PublicKey          string `json:"publicKey"`
	Counter            int    `json:"counter"`
	DeviceType         string `json:"deviceType"`
	CredentialBackedUp bool   `json:"credentialBackedUp"`
	Name               string `json:"name"`
	Platform           string `json:"platform"`
	LastUsed           string `json:"lastUsed"`
	CreatedAt          string `json:"createdAt"`
	UpdatedAt          string `json:"updatedAt"`
}

type SignupUser struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// SignupChallenge is the registration challenge. Like every challenge it is
// single use: it is consumed by exactly one credential submission.
type SignupChallenge struct {
	Challenge string     `json:"challenge"`
	User      SignupUser `json:"user"`
}

// LoginChallenge is issued for login and verify ceremonies.
type LoginChallenge struct {
	RPID              string `json:"rpId"`
	Challenge         string `json:"challenge"`
	Timeout           int    `json:"timeout"`
	UserVerification  string `json:"userVerification"`
	RequireAddPasskey bool   `json:"requireAddPasskey"`
}

// SignupData is the registerConfirm result. SignupToken is not part of the
// declared payload shape; it is recovered from the raw JSON.
type SignupData struct {
	Email       string `json:"email"`
	Message     string `json:"message"`
	SignupToken string `json:"-"`
}

// AttestationResponse carries the authenticator's registration output. The
// SDK never parses these values; they pass through to the backend verbatim.
type AttestationResponse struct {
	AttestationObject string `json:"attestationObject"`
	ClientDataJSON    string `json:"clientDataJSON"`
}

type Attestation struct {
	ID                      string              `json:"id"`
	RawID                   string              `json:"rawId,omitempty"`
	AuthenticatorAttachment string              `json:"authenticatorAttachment,omitempty"`
	Type                    string              `json:"type,omitempty"`
	Response                AttestationResponse `json:"response"`
}

// AssertionResponse carries the authenticator's login output, opaque to the
// SDK.
type AssertionResponse struct {
	AuthenticatorData string `json:"authenticatorData"`
	ClientDataJSON    string `json:"clientDataJSON"`
	Signature         string `json:"signature"`
	UserHandle        string `json:"userHandle"`
}

type Assertion struct {
	ID                      string            `json:"id"`
	RawID                   string            `json:"rawId,omitempty"`
	AuthenticatorAttachment string            `json:"authenticatorAttachment,omitempty"`
	Type                    string            `json:"type,omitempty"`
	Response                AssertionResponse `json:"response"`
}

// AuthenticationInfo is the server's account of a completed assertion.
type AuthenticationInfo struct {
	NewCounter           int    `json:"newCounter"`
	CredentialID         string `json:"credentialID"`
	UserVerified         bool   `json:"userVerified"`
	CredentialDeviceType string `json:"credentialDeviceType"`
	CredentialBackedUp   bool   `json:"credentialBackedUp"`
	Origin               string `json:"origin"`
	RPID                 string `json:"rpID"`
}

// MediaType classifies an upload payload by its content type.
type MediaType string

const (
	MediaTypeImage   MediaType = "image"
	MediaTypeVideo   MediaType = "video"
	MediaTypeAudio   MediaType = "audio"
	MediaTypeUnknown MediaType = "unknown"
)

func MediaTypeFor(contentType string) MediaType {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return MediaTypeImage
	case strings.HasPrefix(contentType, "video/"):
		return MediaTypeVideo
	case strings.HasPrefix(contentType, "audio/"):
		return MediaTypeAudio
	default:
		return MediaTypeUnknown
	}
}

// UploadAsset describes one piece of user media to transfer.
type UploadAsset struct {
	ID            string
	SourceLocator string
	Payload       []byte
	ContentType   string
	SizeHint      int64
	MediaType     MediaType
}

// UploadURLSet is the short-lived set of signed storage URLs issued for one
// asset. Derivative write URLs are present only when the backend decides
// derivatives apply; expiry is the object store's policy, opaque here.
type UploadURLSet struct {
	ID             string `json:"id"`
	WriteURL       string `json:"writeUrl"`
	ReadURL        string `json:"readUrl"`
	Path           string `json:"path"`
	WriteURLSmall  string `json:"writeUrlSmall,omitempty"`
	PathSmall      string `json:"pathSmall,omitempty"`
	WriteURLMedium string `json:"writeUrlMedium,omitempty"`
	PathMedium     string `json:"pathMedium,omitempty"`
	WriteURLLarge  string `json:"writeUrlLarge,omitempty"`
	PathLarge      string `json:"pathLarge,omitempty"`
}
