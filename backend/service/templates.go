package service

import (
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/spf13/afero"
)

// BackupLoader returns the local backup template of a document kind
type BackupLoader interface {
	LoadBackup(spec KindSpec) ([]byte, error)
}

// TemplateProvider reads backup templates shipped with the deployment
type TemplateProvider struct {
	fs afero.Fs
}

// NewTemplateProvider serves templates from dir on the local file system
func NewTemplateProvider(dir string) *TemplateProvider {
	return &TemplateProvider{fs: afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), dir))}
}

func NewTemplateProviderFs(fs afero.Fs) *TemplateProvider {
	return &TemplateProvider{fs: fs}
}

func (p *TemplateProvider) LoadBackup(spec KindSpec) ([]byte, error) {
	if spec.BackupTemplate == "" {
		return nil, fmt.Errorf("%w: no template configured for %s", ErrTemplateMissing, spec.Kind)
	}

	name := path.Clean("/" + spec.BackupTemplate)
	data, err := afero.ReadFile(p.fs, name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateMissing, spec.BackupTemplate)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", spec.BackupTemplate, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrTemplateMissing, spec.BackupTemplate)
	}
	return data, nil
}
