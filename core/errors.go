package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrConfiguration   = errors.New("no backend address configured")
	ErrUnauthenticated = errors.New("missing access token")
	ErrDecode          = errors.New("unexpected response shape")
	ErrInvalidData     = errors.New("invalid data")
	ErrInvalidAsset    = errors.New("invalid upload asset")
	ErrUploadFailed    = errors.New("upload failed")
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidSession  = errors.New("session violates token/user invariant")
	ErrNoAuthenticator = errors.New("no authenticator configured")
)

// ServerError is an application-level rejection reported by the backend. The
// message is server-authored and suitable for direct display.
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// statusEnvelope is the permissive shape shared by success and failure
// payloads. Failure payloads do not conform to any success shape, so
// classification has to happen before a typed decode.
type statusEnvelope struct {
	Status  *bool       `json:"status"`
	Code    json.Number `json:"code"`
	Message string      `json:"message"`
}

// checkResponse classifies a transport response. It must run immediately
// after every transport call: a payload whose status field is false is a
// rejection regardless of the HTTP status code.
func checkResponse(payload []byte, statusCode int) error {
	var envelope statusEnvelope
	// A non-JSON body is classified by transport status alone.
	_ = json.Unmarshal(payload, &envelope)

	rejected := envelope.Status != nil && !*envelope.Status
	if !rejected && statusCode >= 200 && statusCode <= 299 {
		return nil
	}

	code := statusCode
	if n, err := envelope.Code.Int64(); err == nil && n != 0 {
		code = int(n)
	}
	message := envelope.Message
	if message == "" {
		message = http.StatusText(statusCode)
	}
	if message == "" {
		message = "request rejected by server"
	}
	return &ServerError{Code: code, Message: message}
}

// decode unmarshals a classified success payload into a typed shape.
func decode(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}
