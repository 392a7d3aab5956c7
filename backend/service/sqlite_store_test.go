package service

import (
	"context"
	"testing"
	"time"

	"github.com/grantdesk/applicants/backend/db"
	"github.com/grantdesk/applicants/backend/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	conn, err := db.Open(db.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewSQLiteStore(conn)
}

func TestSQLiteStoreSubjects(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	subject := &model.Subject{
		ID:         "s1",
		FirstName:  "José",
		LastName:   "Núñez",
		Email:      "jose@example.test",
		NationalID: "X123",
		Address:    "Calle Mayor 1",
		Signature:  []byte{0x89, 'P', 'N', 'G'},
	}
	require.NoError(t, store.SaveSubject(ctx, subject))

	got, err := store.GetSubject(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "José", got.FirstName)
	assert.Equal(t, "X123", got.NationalID)
	assert.Equal(t, subject.Signature, got.Signature)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = store.GetSubject(ctx, "missing")
	assert.ErrorIs(t, err, ErrSubjectNotFound)
}

func TestSQLiteStoreListSubjectsNewestFirst(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.SaveSubject(ctx, &model.Subject{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}

	subjects, err := store.ListSubjects(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 3)
	assert.Equal(t, "c", subjects[0].ID)
	assert.Equal(t, "a", subjects[2].ID)
}

func TestSQLiteStoreStateLifecycle(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveSubject(ctx, &model.Subject{ID: "s1"}))

	state, err := store.Read(ctx, "s1", model.KindContract)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentState{}, state)

	state, err = store.Write(ctx, "s1", model.KindContract, model.GeneratedAt("contracts/contract_s1.pdf"))
	require.NoError(t, err)
	assert.True(t, state.Generated)
	assert.Equal(t, model.FormatPDF, state.Format)

	_, err = store.Write(ctx, "s1", model.KindContract, model.MarkSigned())
	require.NoError(t, err)

	state, err = store.Read(ctx, "s1", model.KindContract)
	require.NoError(t, err)
	assert.True(t, state.Generated)
	assert.True(t, state.Signed)
	assert.Equal(t, "contracts/contract_s1.pdf", state.Path)
	assert.False(t, state.UpdatedAt.IsZero())

	require.NoError(t, store.Reset(ctx, "s1", model.KindContract))
	state, err = store.Read(ctx, "s1", model.KindContract)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentState{}, state)

	// Resetting twice is not an error
	assert.NoError(t, store.Reset(ctx, "s1", model.KindContract))
}

func TestSQLiteStoreStates(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveSubject(ctx, &model.Subject{ID: "s1"}))

	_, err := store.Write(ctx, "s1", model.KindAuthorityDocument, model.GeneratedAt("authority_documents/authority_s1.docx"))
	require.NoError(t, err)

	states, err := store.States(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, states, len(model.AllKinds))
	assert.True(t, states[model.KindAuthorityDocument].Generated)
	assert.Equal(t, model.FormatDOCX, states[model.KindAuthorityDocument].Format)
	assert.False(t, states[model.KindContract].Generated)
}

func TestSQLiteStoreWriteUnknownSubject(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, err := store.Write(context.Background(), "ghost", model.KindContract, model.MarkSigned())
	assert.ErrorIs(t, err, ErrPersistence)
}
