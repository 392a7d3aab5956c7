package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode"

	"github.com/grantdesk/applicants/backend/model"
	"github.com/grantdesk/applicants/backend/pkg/fallback"
	"github.com/grantdesk/applicants/backend/pkg/logger"
)

// Lookup steps, in the order they are tried
const (
	SourceRecorded      = "recorded"
	SourceCanonical     = "canonical"
	SourceScan          = "scan"
	SourceSoleCandidate = "sole_candidate"
)

// LocatedDocument is a stored document found for a (subject, kind) pair
type LocatedDocument struct {
	Content []byte
	Format  model.DocumentFormat
	Path    string
	Source  string
}

// Locator finds the file of a document even when the recorded path is stale,
// and records the discovered location so later lookups hit it directly.
type Locator struct {
	files  FileStore
	states StateTracker
}

func NewLocator(files FileStore, states StateTracker) *Locator {
	return &Locator{files: files, states: states}
}

type lookupStep struct {
	source     string
	candidates func(ctx context.Context) ([]string, error)
}

// Locate returns the first readable document for the pair, or ErrNotFound
func (l *Locator) Locate(ctx context.Context, spec KindSpec, subjectID string, state model.DocumentState) (*LocatedDocument, error) {
	steps := []lookupStep{
		{SourceRecorded, func(context.Context) ([]string, error) {
			if state.Path == "" {
				return nil, nil
			}
			return []string{state.Path}, nil
		}},
		{SourceCanonical, func(context.Context) ([]string, error) {
			return spec.Variants(subjectID), nil
		}},
		{SourceScan, func(ctx context.Context) ([]string, error) {
			return l.scan(ctx, spec, subjectID)
		}},
	}
	if spec.SoleCandidateFallback && state.Generated {
		steps = append(steps, lookupStep{SourceSoleCandidate, func(ctx context.Context) ([]string, error) {
			return l.soleCandidate(ctx, spec)
		}})
	}

	doc, err := fallback.First(ctx, steps, func(ctx context.Context, step lookupStep) (*LocatedDocument, error) {
		return l.try(ctx, step)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if failures := storageFailures(err); len(failures) > 0 {
			return nil, errors.Join(failures...)
		}
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, spec.Kind, subjectID)
	}

	if doc.Source != SourceRecorded {
		l.heal(ctx, spec, subjectID, doc)
	}
	return doc, nil
}

func (l *Locator) try(ctx context.Context, step lookupStep) (*LocatedDocument, error) {
	paths, err := step.candidates(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		format := model.FormatFromPath(p)
		if format == model.FormatNone {
			continue
		}
		data, err := l.files.Read(ctx, p)
		if errors.Is(err, ErrFileNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &LocatedDocument{Content: data, Format: format, Path: p, Source: step.source}, nil
	}
	return nil, ErrNotFound
}

func (l *Locator) heal(ctx context.Context, spec KindSpec, subjectID string, doc *LocatedDocument) {
	if _, err := l.states.Write(ctx, subjectID, spec.Kind, model.GeneratedAt(doc.Path)); err != nil {
		logger.Warn(ctx, "failed to record discovered document path", "path", doc.Path, "error", err)
		return
	}
	logger.Info(ctx, "document path healed", "path", doc.Path, "source", doc.Source)
}

// scan lists the kind directory for files that carry the prefix and the subject id as a token
func (l *Locator) scan(ctx context.Context, spec KindSpec, subjectID string) ([]string, error) {
	names, err := l.files.List(ctx, spec.Dir)
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, name := range names {
		if MatchesSubject(spec, subjectID, name) {
			matches = append(matches, name)
		}
	}
	sortByFormat(matches)
	return joinAll(spec.Dir, matches), nil
}

// soleCandidate returns the files of the only document stem under the kind prefix
func (l *Locator) soleCandidate(ctx context.Context, spec KindSpec) ([]string, error) {
	names, err := l.files.List(ctx, spec.Dir)
	if err != nil {
		return nil, err
	}

	stems := make(map[string][]string)
	for _, name := range names {
		if !strings.HasPrefix(name, spec.Prefix) || model.FormatFromPath(name) == model.FormatNone {
			continue
		}
		stem := strings.TrimSuffix(name, path.Ext(name))
		stems[stem] = append(stems[stem], name)
	}
	if len(stems) != 1 {
		return nil, nil
	}
	for _, files := range stems {
		sortByFormat(files)
		return joinAll(spec.Dir, files), nil
	}
	return nil, nil
}

// MatchesSubject reports whether name is a document of kind spec for subjectID.
// The id must appear as a whole token so "12" does not match "contract_123.pdf".
func MatchesSubject(spec KindSpec, subjectID, name string) bool {
	if subjectID == "" || !strings.HasPrefix(name, spec.Prefix) || model.FormatFromPath(name) == model.FormatNone {
		return false
	}
	stem := strings.TrimSuffix(name, path.Ext(name))
	for offset := 0; offset < len(stem); {
		i := strings.Index(stem[offset:], subjectID)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(subjectID)
		if isBoundary(stem, start-1) && isBoundary(stem, end) {
			return true
		}
		offset = start + 1
	}
	return false
}

func isBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	r := rune(s[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// sortByFormat orders names pdf first, then by name
func sortByFormat(names []string) {
	rank := func(name string) int {
		if model.FormatFromPath(name) == model.FormatPDF {
			return 0
		}
		return 1
	}
	sort.SliceStable(names, func(i, j int) bool {
		ri, rj := rank(names[i]), rank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
}

func joinAll(dir string, names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = joinDir(dir, name)
	}
	return out
}

// storageFailures returns the step errors other than plain misses
func storageFailures(err error) []error {
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}

	var failures []error
	for _, e := range errs {
		if !errors.Is(e, ErrNotFound) {
			failures = append(failures, e)
		}
	}
	return failures
}
