package service

import (
	"testing"

	"github.com/grantdesk/applicants/backend/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySigningCallback(t *testing.T) {
	content := `{"subject_id":"s1","kind":"contract","state":"signed"}`
	checksum := SigningChecksum("s1", "seed", content)

	event, kind, err := VerifySigningCallback("seed", "s1", checksum, content)
	require.NoError(t, err)
	assert.Equal(t, model.KindContract, kind)
	assert.Equal(t, SigningStateSigned, event.State)
}

func TestVerifySigningCallbackRejects(t *testing.T) {
	content := `{"subject_id":"s1","kind":"contract","state":"signed"}`

	tests := []struct {
		name     string
		seed     string
		uid      string
		checksum string
		content  string
		target   error
	}{
		{"wrong checksum", "seed", "s1", "invalid-checksum", content, ErrInvalidChecksum},
		{"wrong seed", "other", "s1", SigningChecksum("s1", "seed", content), content, ErrInvalidChecksum},
		{"uid mismatch", "seed", "s2", SigningChecksum("s2", "seed", content), content, ErrInvalidChecksum},
		{"unknown kind", "seed", "s1", SigningChecksum("s1", "seed", `{"subject_id":"s1","kind":"invoice"}`), `{"subject_id":"s1","kind":"invoice"}`, ErrUnknownKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := VerifySigningCallback(tt.seed, tt.uid, tt.checksum, tt.content)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	_, _, err := VerifySigningCallback("seed", "s1", SigningChecksum("s1", "seed", "not json"), "not json")
	assert.ErrorIs(t, err, ErrInvalidCallback)
}
