package service

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/grantdesk/applicants/backend/config"
	"github.com/grantdesk/applicants/backend/pkg/fallback"
	"github.com/grantdesk/applicants/backend/pkg/logger"
)

const (
	convertInputName  = "document.docx"
	convertOutputName = "document.pdf"
)

// Converter turns native document bytes into PDF bytes
type Converter interface {
	Convert(ctx context.Context, native []byte) ([]byte, error)
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// OfficeConverter runs a headless office suite over an ordered list of candidate binaries.
// Every conversion gets its own workspace, removed on every exit path.
type OfficeConverter struct {
	candidates []string
	timeout    time.Duration
	workDir    string
	exec       executor
}

func NewOfficeConverter(cfg *config.ConverterConfig) *OfficeConverter {
	return newOfficeConverter(cfg, osExecutor{})
}

func newOfficeConverter(cfg *config.ConverterConfig, ex executor) *OfficeConverter {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	listed := cfg.Candidates
	if len(listed) == 0 {
		listed = config.DefaultConverterCandidates(runtime.GOOS)
	}

	var candidates []string
	if cfg.Binary != "" {
		candidates = append(candidates, cfg.Binary)
	}
	candidates = append(candidates, listed...)
	for _, name := range []string{"soffice", "libreoffice"} {
		if p, err := ex.LookPath(name); err == nil {
			candidates = append(candidates, p)
		}
	}

	return &OfficeConverter{
		candidates: dedupe(candidates),
		timeout:    timeout,
		workDir:    cfg.WorkDir,
		exec:       ex,
	}
}

// Candidates returns the binaries tried, in order
func (c *OfficeConverter) Candidates() []string {
	return append([]string(nil), c.candidates...)
}

func (c *OfficeConverter) Convert(ctx context.Context, native []byte) ([]byte, error) {
	usable := make([]string, 0, len(c.candidates))
	for _, candidate := range c.candidates {
		if isExecutable(candidate) {
			usable = append(usable, candidate)
		}
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("%w: tried %s", ErrConversionUnavailable, strings.Join(c.candidates, ", "))
	}

	workspace, err := os.MkdirTemp(c.workDir, "docconv-*")
	if err != nil {
		return nil, fmt.Errorf("%w: creating workspace: %w", ErrConversionFailed, err)
	}
	defer os.RemoveAll(workspace)

	input := filepath.Join(workspace, convertInputName)
	if err := os.WriteFile(input, native, 0o600); err != nil {
		return nil, fmt.Errorf("%w: writing input: %w", ErrConversionFailed, err)
	}

	pdf, err := fallback.First(ctx, usable, func(ctx context.Context, bin string) ([]byte, error) {
		return c.run(ctx, bin, workspace, input)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	return pdf, nil
}

func (c *OfficeConverter) run(ctx context.Context, bin, workspace, input string) ([]byte, error) {
	output := filepath.Join(workspace, convertOutputName)
	os.Remove(output)

	// budget is per candidate, not per conversion
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{
		"-env:UserInstallation=" + fileURL(filepath.Join(workspace, "profile")),
		"--headless",
		"--norestore",
		"--convert-to", "pdf",
		"--outdir", workspace,
		input,
	}

	start := time.Now()
	out, err := c.exec.Run(ctx, bin, args...)
	if err != nil {
		logger.Warn(ctx, "converter candidate failed", "binary", bin, "error", err, "output", strings.TrimSpace(string(out)))
		return nil, fmt.Errorf("%s: %w", bin, err)
	}

	pdf, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("%s: no output produced: %w", bin, err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("%s: empty output", bin)
	}

	logger.Debug(ctx, "document converted", "binary", bin, "duration", time.Since(start))
	return pdf, nil
}

func isExecutable(p string) bool {
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

func fileURL(p string) string {
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "file://" + p
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
