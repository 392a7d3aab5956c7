package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/grantdesk/applicants/backend/model"
	"github.com/grantdesk/applicants/backend/pkg/logger"
	"golang.org/x/sync/singleflight"
)

const mailTimeout = 2 * time.Minute

// Document is the byte stream delivered for a (subject, kind) pair
type Document struct {
	Content  []byte
	Format   model.DocumentFormat
	Path     string
	Filename string
	// Source tells where the bytes came from: a generation outcome or a lookup step
	Source string
}

// Dependencies are the collaborators of a DocumentService. Converter and Mailer may be nil.
type Dependencies struct {
	Layout    *Layout
	Subjects  SubjectRepository
	States    StateTracker
	Files     FileStore
	Generator Generator
	Templates BackupLoader
	Converter Converter
	Mailer    Mailer
}

// DocumentService runs the generate, download, sign and reset pipeline for every document kind.
// All operations on one (subject, kind) pair are serialized; concurrent generate calls for the
// same pair share a single in-flight generation.
type DocumentService struct {
	layout    *Layout
	subjects  SubjectRepository
	states    StateTracker
	files     FileStore
	generator Generator
	templates BackupLoader
	converter Converter
	mailer    Mailer
	locator   *Locator

	locks   *keyLock
	flights singleflight.Group
	mail    sync.WaitGroup
}

func NewDocumentService(deps Dependencies) *DocumentService {
	return &DocumentService{
		layout:    deps.Layout,
		subjects:  deps.Subjects,
		states:    deps.States,
		files:     deps.Files,
		generator: deps.Generator,
		templates: deps.Templates,
		converter: deps.Converter,
		mailer:    deps.Mailer,
		locator:   NewLocator(deps.Files, deps.States),
		locks:     newKeyLock(),
	}
}

func pairKey(subjectID string, kind model.DocumentKind) string {
	return subjectID + "/" + string(kind)
}

// prepare resolves the kind and the subject and tags ctx for logging
func (s *DocumentService) prepare(ctx context.Context, subjectID string, kind model.DocumentKind) (context.Context, KindSpec, *model.Subject, error) {
	spec, err := s.layout.Spec(kind)
	if err != nil {
		return ctx, KindSpec{}, nil, err
	}
	subject, err := s.subjects.GetSubject(ctx, subjectID)
	if err != nil {
		return ctx, KindSpec{}, nil, err
	}
	return logger.WithDocument(ctx, subjectID, string(kind)), spec, subject, nil
}

// Generate produces the document, stores it and returns the bytes actually produced:
// PDF when conversion works, the native format otherwise. Callers that give up waiting
// do not cancel the generation; its result is still persisted.
func (s *DocumentService) Generate(ctx context.Context, subjectID string, kind model.DocumentKind) (*Document, error) {
	ctx, spec, subject, err := s.prepare(ctx, subjectID, kind)
	if err != nil {
		return nil, err
	}
	if missing := subject.MissingFields(kind); len(missing) > 0 {
		return nil, &IncompleteSubjectError{Fields: missing}
	}

	key := pairKey(subjectID, kind)
	detached := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(key, func() (any, error) {
		unlock := s.locks.Lock(key)
		defer unlock()
		return s.generate(detached, spec, subject)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logger.Debug(ctx, "joined in-flight generation")
		}
		return res.Val.(*Document), nil
	case <-ctx.Done():
		logger.Warn(ctx, "caller left before generation finished; it continues in the background")
		return nil, ctx.Err()
	}
}

func (s *DocumentService) generate(ctx context.Context, spec KindSpec, subject *model.Subject) (*Document, error) {
	start := time.Now()

	outcome := s.generator.Generate(ctx, spec, subject)
	if !outcome.HasContent() {
		logger.Warn(ctx, "external generation failed, using backup template", "reason", outcome.Reason)
		backup, err := s.templates.LoadBackup(spec)
		if err != nil {
			logger.Error(ctx, "backup template unavailable", "error", err)
			return nil, fmt.Errorf("%w: %s: %w", ErrGenerationUnavailable, outcome.Reason, err)
		}
		outcome = model.BackupTemplateUsed(backup)
	}

	nativePath := spec.Path(subject.ID, model.FormatDOCX)
	if err := s.files.Write(ctx, nativePath, outcome.Content, model.MIMETypeDOCX); err != nil {
		return nil, persistenceError("write document", err)
	}
	if err := s.record(ctx, spec, subject.ID, nativePath); err != nil {
		return nil, err
	}

	doc := &Document{
		Content: outcome.Content,
		Format:  model.FormatDOCX,
		Path:    nativePath,
		Source:  outcome.Kind.String(),
	}

	pdfPath := spec.Path(subject.ID, model.FormatPDF)
	pdf, err := s.convert(ctx, outcome.Content)
	if err == nil {
		if werr := s.files.Write(ctx, pdfPath, pdf, model.MIMETypePDF); werr != nil {
			logger.Warn(ctx, "failed to store converted document, delivering native format", "error", werr)
			err = werr
		}
	}
	if err == nil {
		if err := s.record(ctx, spec, subject.ID, pdfPath); err != nil {
			return nil, err
		}
		doc.Content, doc.Format, doc.Path = pdf, model.FormatPDF, pdfPath
	} else {
		// A pdf left by an earlier generation no longer matches the native bytes
		if derr := s.files.Delete(ctx, pdfPath); derr != nil {
			logger.Warn(ctx, "failed to remove stale pdf", "path", pdfPath, "error", derr)
		}
	}
	doc.Filename = AttachmentFilename(spec.Kind, subject, doc.Format)

	logger.Info(ctx, "document generated",
		"source", doc.Source,
		"format", doc.Format,
		"path", doc.Path,
		"endpoint", outcome.Endpoint,
		"duration", time.Since(start),
	)

	s.dispatch(ctx, spec, subject, doc)
	return doc, nil
}

// record marks the pair generated at path. A new document starts unsigned.
func (s *DocumentService) record(ctx context.Context, spec KindSpec, subjectID, path string) error {
	patch := model.GeneratedAt(path)
	unsigned := false
	patch.Signed = &unsigned
	if _, err := s.states.Write(ctx, subjectID, spec.Kind, patch); err != nil {
		if errors.Is(err, ErrPersistence) {
			return err
		}
		return persistenceError("record state", err)
	}
	return nil
}

func (s *DocumentService) convert(ctx context.Context, native []byte) ([]byte, error) {
	if s.converter == nil {
		return nil, ErrConversionUnavailable
	}
	pdf, err := s.converter.Convert(ctx, native)
	if err != nil {
		if errors.Is(err, ErrConversionUnavailable) {
			logger.Warn(ctx, "no conversion engine available, delivering native format", "error", err)
		} else {
			logger.Warn(ctx, "conversion failed, delivering native format", "error", err)
		}
		return nil, err
	}
	return pdf, nil
}

// dispatch emails the document in the background. Failures are only logged.
func (s *DocumentService) dispatch(ctx context.Context, spec KindSpec, subject *model.Subject, doc *Document) {
	if s.mailer == nil {
		return
	}
	if subject.Email == "" {
		logger.Debug(ctx, "subject has no email address, skipping delivery")
		return
	}

	msg := MailMessage{
		To:          subject.Email,
		Subject:     "Your " + spec.Kind.Label(),
		Body:        fmt.Sprintf("Dear %s,\r\n\r\nPlease find your %s attached.\r\n", subject.DisplayName(), spec.Kind.Label()),
		Filename:    doc.Filename,
		ContentType: doc.Format.MIMEType(),
		Attachment:  doc.Content,
	}

	s.mail.Add(1)
	go func() {
		defer s.mail.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
		defer cancel()

		if err := s.mailer.Send(ctx, msg); err != nil {
			logger.Warn(ctx, "document email failed", "to", msg.To, "error", err)
			return
		}
		logger.Info(ctx, "document emailed", "to", msg.To)
	}()
}

// Wait blocks until background email deliveries have finished
func (s *DocumentService) Wait() {
	s.mail.Wait()
}

// Download returns the stored document, repairing a stale recorded path on the way
func (s *DocumentService) Download(ctx context.Context, subjectID string, kind model.DocumentKind) (*Document, error) {
	ctx, spec, subject, err := s.prepare(ctx, subjectID, kind)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(pairKey(subjectID, kind))
	defer unlock()

	state, err := s.states.Read(ctx, subjectID, kind)
	if err != nil {
		return nil, err
	}

	located, err := s.locator.Locate(ctx, spec, subjectID, state)
	if errors.Is(err, ErrNotFound) {
		if !state.Generated {
			return nil, ErrNotGenerated
		}
		logger.Warn(ctx, "generated document has no file", "recorded_path", state.Path)
		return nil, ErrFileMissing
	}
	if err != nil {
		return nil, err
	}

	return &Document{
		Content:  located.Content,
		Format:   located.Format,
		Path:     located.Path,
		Filename: AttachmentFilename(kind, subject, located.Format),
		Source:   located.Source,
	}, nil
}

// Reset deletes every stored variant of the document and clears its state.
// Missing files are fine; if a file cannot be deleted the state is left untouched.
func (s *DocumentService) Reset(ctx context.Context, subjectID string, kind model.DocumentKind) error {
	ctx, spec, _, err := s.prepare(ctx, subjectID, kind)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(pairKey(subjectID, kind))
	defer unlock()

	state, err := s.states.Read(ctx, subjectID, kind)
	if err != nil {
		return err
	}

	paths := spec.Variants(subjectID)
	if state.Path != "" {
		paths = append(paths, state.Path)
	}
	legacy, err := s.locator.scan(ctx, spec, subjectID)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", spec.Dir, err)
	}
	paths = dedupe(append(paths, legacy...))

	var errs []error
	for _, p := range paths {
		if err := s.files.Delete(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to delete document files: %w", errors.Join(errs...))
	}

	if err := s.states.Reset(ctx, subjectID, kind); err != nil {
		if errors.Is(err, ErrPersistence) {
			return err
		}
		return persistenceError("reset state", err)
	}

	logger.Info(ctx, "document reset", "deleted", len(paths))
	return nil
}

// Sign marks a generated document as signed
func (s *DocumentService) Sign(ctx context.Context, subjectID string, kind model.DocumentKind) (model.DocumentState, error) {
	ctx, _, _, err := s.prepare(ctx, subjectID, kind)
	if err != nil {
		return model.DocumentState{}, err
	}

	unlock := s.locks.Lock(pairKey(subjectID, kind))
	defer unlock()

	state, err := s.states.Read(ctx, subjectID, kind)
	if err != nil {
		return model.DocumentState{}, err
	}
	if !state.Generated {
		return model.DocumentState{}, ErrNotGenerated
	}

	state, err = s.states.Write(ctx, subjectID, kind, model.MarkSigned())
	if err != nil {
		if errors.Is(err, ErrPersistence) {
			return model.DocumentState{}, err
		}
		return model.DocumentState{}, persistenceError("sign", err)
	}

	logger.Info(ctx, "document signed")
	return state, nil
}

// States returns the state of every document kind of a subject
func (s *DocumentService) States(ctx context.Context, subjectID string) (map[model.DocumentKind]model.DocumentState, error) {
	if _, err := s.subjects.GetSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	return s.states.States(ctx, subjectID)
}
