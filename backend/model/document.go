package model

import (
	"path"
	"strings"
	"time"
)

// DocumentKind identifies one of the legal documents produced for an applicant
type DocumentKind string

const (
	KindContract           DocumentKind = "contract"
	KindConsultingContract DocumentKind = "consulting_contract"
	KindAuthorityDocument  DocumentKind = "authority_document"
)

// AllKinds lists every document kind in display order
var AllKinds = []DocumentKind{KindContract, KindConsultingContract, KindAuthorityDocument}

// ParseKind converts a raw route or CLI value into a DocumentKind
func ParseKind(s string) (DocumentKind, bool) {
	k := DocumentKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllKinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// Label returns the human readable name used in download filenames and emails
func (k DocumentKind) Label() string {
	switch k {
	case KindContract:
		return "Contract"
	case KindConsultingContract:
		return "Consulting Contract"
	case KindAuthorityDocument:
		return "Authority Document"
	default:
		return string(k)
	}
}

// DocumentFormat is the binary format of a stored document
type DocumentFormat string

const (
	FormatNone DocumentFormat = ""
	FormatPDF  DocumentFormat = "pdf"
	FormatDOCX DocumentFormat = "docx"
)

// Formats lists the known formats, distributable first
var Formats = []DocumentFormat{FormatPDF, FormatDOCX}

const (
	MIMETypePDF  = "application/pdf"
	MIMETypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Ext returns the filename extension including the dot
func (f DocumentFormat) Ext() string {
	if f == FormatNone {
		return ""
	}
	return "." + string(f)
}

// MIMEType returns the content type served for the format
func (f DocumentFormat) MIMEType() string {
	switch f {
	case FormatPDF:
		return MIMETypePDF
	case FormatDOCX:
		return MIMETypeDOCX
	default:
		return "application/octet-stream"
	}
}

// FormatFromPath derives the format from a file extension. Unknown extensions yield FormatNone.
func FormatFromPath(p string) DocumentFormat {
	switch strings.ToLower(path.Ext(p)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	default:
		return FormatNone
	}
}

// DocumentState is the persisted lifecycle of one document kind for one subject.
// Path is storage-relative and may be stale relative to what is on disk.
type DocumentState struct {
	Generated bool           `json:"generated"`
	Signed    bool           `json:"signed"`
	Format    DocumentFormat `json:"format,omitempty"`
	Path      string         `json:"path,omitempty"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// StatePatch is a partial update of a DocumentState. Nil fields are left untouched.
type StatePatch struct {
	Generated *bool
	Signed    *bool
	Path      *string
}

// Apply returns a copy of s with the patch applied. Format always follows the
// extension of a non-empty path and is cleared together with the path.
func (s DocumentState) Apply(p StatePatch) DocumentState {
	out := s
	if p.Generated != nil {
		out.Generated = *p.Generated
	}
	if p.Signed != nil {
		out.Signed = *p.Signed
	}
	if p.Path != nil {
		out.Path = *p.Path
	}
	out.Format = FormatFromPath(out.Path)
	return out
}

// GeneratedAt marks a document as produced and authoritative at path
func GeneratedAt(path string) StatePatch {
	generated := true
	return StatePatch{Generated: &generated, Path: &path}
}

// MarkSigned sets the signed flag
func MarkSigned() StatePatch {
	signed := true
	return StatePatch{Signed: &signed}
}
