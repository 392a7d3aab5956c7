package service

import (
	"fmt"
	"path"

	"github.com/grantdesk/applicants/backend/config"
	"github.com/grantdesk/applicants/backend/model"
)

// KindSpec is the kind-specific configuration the pipeline is parameterised over
type KindSpec struct {
	Kind                  model.DocumentKind
	Prefix                string
	Dir                   string
	Endpoints             []string
	BackupTemplate        string
	SoleCandidateFallback bool
}

// Layout maps (subject, kind, format) to canonical storage-relative paths
type Layout struct {
	kinds map[model.DocumentKind]KindSpec
}

func NewLayout(cfg *config.Config) *Layout {
	kinds := make(map[model.DocumentKind]KindSpec, len(model.AllKinds))
	for _, kind := range model.AllKinds {
		kc := cfg.Kind(kind)
		spec := KindSpec{
			Kind:           kind,
			Prefix:         kc.Prefix,
			Dir:            kc.Dir,
			Endpoints:      kc.Endpoints,
			BackupTemplate: kc.BackupTemplate,
		}
		if kc.SoleCandidateFallback != nil {
			spec.SoleCandidateFallback = *kc.SoleCandidateFallback
		}
		if spec.Prefix == "" {
			spec.Prefix = string(kind)
		}
		if spec.Dir == "" {
			spec.Dir = string(kind)
		}
		kinds[kind] = spec
	}
	return &Layout{kinds: kinds}
}

// Spec returns the configuration of kind
func (l *Layout) Spec(kind model.DocumentKind) (KindSpec, error) {
	spec, ok := l.kinds[kind]
	if !ok {
		return KindSpec{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return spec, nil
}

// Filename returns "<prefix>_<subjectID><ext>"
func (s KindSpec) Filename(subjectID string, format model.DocumentFormat) string {
	return s.Prefix + "_" + subjectID + format.Ext()
}

// Path returns the canonical storage-relative path of a document
func (s KindSpec) Path(subjectID string, format model.DocumentFormat) string {
	return path.Join(s.Dir, s.Filename(subjectID, format))
}

// Variants returns the canonical path of every known format, distributable first
func (s KindSpec) Variants(subjectID string) []string {
	paths := make([]string, 0, len(model.Formats))
	for _, f := range model.Formats {
		paths = append(paths, s.Path(subjectID, f))
	}
	return paths
}
