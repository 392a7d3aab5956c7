package service

import (
	"context"
	"errors"
	"testing"

	"github.com/grantdesk/applicants/backend/model"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesSubject(t *testing.T) {
	spec := KindSpec{Kind: model.KindContract, Prefix: "contract", Dir: "contracts"}

	tests := []struct {
		name     string
		expected bool
	}{
		{"contract_42.pdf", true},
		{"contract_42.docx", true},
		{"contract_old_42_v2.pdf", true},
		{"contract-42 (1).pdf", true},
		{"contract_420.pdf", false},
		{"contract_142.pdf", false},
		{"contract_42.txt", false},
		{"authority_42.pdf", false},
		{"contract_x42x.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MatchesSubject(spec, "42", tt.name))
		})
	}

	assert.False(t, MatchesSubject(spec, "", "contract_.pdf"))
}

func TestSortByFormat(t *testing.T) {
	names := []string{"b.docx", "b.pdf", "a.docx", "a.pdf"}
	sortByFormat(names)
	assert.Equal(t, []string{"a.pdf", "b.pdf", "a.docx", "b.docx"}, names)
}

// brokenFiles fails every read with an I/O error
type brokenFiles struct {
	*DiskStore
}

func (brokenFiles) Read(context.Context, string) ([]byte, error) {
	return nil, errors.New("input/output error")
}

func TestLocatorSurfacesStorageErrors(t *testing.T) {
	files := NewDiskStoreFs(afero.NewMemMapFs())
	require.NoError(t, files.Write(context.Background(), "contracts/contract_s1.pdf", []byte("pdf"), ""))

	locator := NewLocator(brokenFiles{files}, NewMemoryStore(0))
	spec := KindSpec{Kind: model.KindContract, Prefix: "contract", Dir: "contracts"}

	_, err := locator.Locate(context.Background(), spec, "s1", model.DocumentState{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLocatorRecordedHitDoesNotWrite(t *testing.T) {
	files := NewDiskStoreFs(afero.NewMemMapFs())
	require.NoError(t, files.Write(context.Background(), "elsewhere/contract.docx", []byte("docx"), ""))
	states := NewMemoryStore(0)

	locator := NewLocator(files, states)
	spec := KindSpec{Kind: model.KindContract, Prefix: "contract", Dir: "contracts"}
	recorded := model.DocumentState{Generated: true, Format: model.FormatDOCX, Path: "elsewhere/contract.docx"}

	doc, err := locator.Locate(context.Background(), spec, "s1", recorded)
	require.NoError(t, err)
	assert.Equal(t, SourceRecorded, doc.Source)

	stored, _ := states.Read(context.Background(), "s1", model.KindContract)
	assert.Equal(t, model.DocumentState{}, stored, "a recorded hit needs no healing")
}
