package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/grantdesk/applicants/backend/config"
	"github.com/grantdesk/applicants/backend/model"
	"github.com/grantdesk/applicants/backend/pkg/fallback"
	"github.com/grantdesk/applicants/backend/pkg/logger"
)

// Generator produces native document bytes for a subject. It never fails:
// every problem is reported as an ExternalFailure outcome.
type Generator interface {
	Generate(ctx context.Context, spec KindSpec, subject *model.Subject) model.GenerationOutcome
}

// GenerationClient calls the remote generation service of each document kind
type GenerationClient struct {
	config     *config.GenerationConfig
	timeout    time.Duration
	maxBytes   int64
	httpClient *http.Client
}

// GenerationRequest is the body posted to a generation endpoint
type GenerationRequest struct {
	Kind       string `json:"kind"`
	SubjectID  string `json:"subject_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	FullName   string `json:"full_name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	NationalID string `json:"national_id,omitempty"`
	Address    string `json:"address,omitempty"`
	// Signature is the base64 encoded signature image, if any
	Signature string `json:"signature,omitempty"`
}

func NewGenerationClient(cfg *config.GenerationConfig) *GenerationClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	maxBytes := cfg.MaxDocumentBytes
	if maxBytes <= 0 {
		maxBytes = config.DefaultMaxDocumentBytes
	}
	return &GenerationClient{
		config:     cfg,
		timeout:    timeout,
		maxBytes:   maxBytes,
		httpClient: &http.Client{},
	}
}

func newGenerationRequest(kind model.DocumentKind, subject *model.Subject) GenerationRequest {
	req := GenerationRequest{
		Kind:       string(kind),
		SubjectID:  subject.ID,
		FirstName:  subject.FirstName,
		LastName:   subject.LastName,
		FullName:   subject.DisplayName(),
		Email:      subject.Email,
		Phone:      subject.Phone,
		NationalID: subject.NationalID,
		Address:    subject.Address,
	}
	if len(subject.Signature) > 0 {
		req.Signature = base64.StdEncoding.EncodeToString(subject.Signature)
	}
	return req
}

// Generate tries every endpoint of the kind in order and returns the first document produced
func (c *GenerationClient) Generate(ctx context.Context, spec KindSpec, subject *model.Subject) model.GenerationOutcome {
	if len(spec.Endpoints) == 0 {
		return model.ExternalFailure("no generation endpoint configured")
	}

	body, err := json.Marshal(newGenerationRequest(spec.Kind, subject))
	if err != nil {
		return model.ExternalFailure(fmt.Sprintf("failed to marshal request: %v", err))
	}

	type result struct {
		content  []byte
		endpoint string
	}
	res, err := fallback.First(ctx, spec.Endpoints, func(ctx context.Context, endpoint string) (result, error) {
		content, err := c.call(ctx, endpoint, body)
		if err != nil {
			logger.Warn(ctx, "generation endpoint failed", "endpoint", endpoint, "kind", spec.Kind, "error", err)
			return result{}, err
		}
		return result{content: content, endpoint: endpoint}, nil
	})
	if err != nil {
		return model.ExternalFailure(err.Error())
	}
	return model.ExternalSuccess(res.content, res.endpoint)
}

func (c *GenerationClient) call(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", model.MIMETypeDOCX+", application/octet-stream")
	if c.config.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d", ErrExternalService, resp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrExternalService, err)
	}
	if int64(len(content)) > c.maxBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", ErrExternalService, c.maxBytes)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrExternalService)
	}
	return content, nil
}
