package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/grantdesk/applicants/backend/model"
)

// Signing states reported by the e-signature provider
const (
	SigningStateSigned   = "signed"
	SigningStateDeclined = "declined"
)

// SigningEvent is the decoded content of an e-signature provider callback
type SigningEvent struct {
	SubjectID string `json:"subject_id"`
	Kind      string `json:"kind"`
	State     string `json:"state"`
	Reason    string `json:"reason,omitempty"`
}

// SigningChecksum computes SHA256(uid + seed + content) as lowercase hex
func SigningChecksum(uid, seed, content string) string {
	hash := sha256.Sum256([]byte(uid + seed + content))
	return hex.EncodeToString(hash[:])
}

// VerifySigningCallback checks the checksum of a callback and decodes its content
func VerifySigningCallback(seed, uid, checksum, content string) (*SigningEvent, model.DocumentKind, error) {
	expected := SigningChecksum(uid, seed, content)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(checksum)) != 1 {
		return nil, "", ErrInvalidChecksum
	}

	var event SigningEvent
	if err := json.Unmarshal([]byte(content), &event); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidCallback, err)
	}
	if event.SubjectID != uid {
		return nil, "", fmt.Errorf("%w: uid does not match subject", ErrInvalidChecksum)
	}

	kind, ok := model.ParseKind(event.Kind)
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownKind, event.Kind)
	}
	return &event, kind, nil
}
