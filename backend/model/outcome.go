package model

// OutcomeKind tags a GenerationOutcome
type OutcomeKind int

const (
	OutcomeExternalSuccess OutcomeKind = iota
	OutcomeExternalFailure
	OutcomeBackupTemplateUsed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeExternalSuccess:
		return "external"
	case OutcomeExternalFailure:
		return "external_failure"
	case OutcomeBackupTemplateUsed:
		return "backup_template"
	default:
		return "unknown"
	}
}

// GenerationOutcome is the result of producing native document bytes for one request.
// It is never persisted.
type GenerationOutcome struct {
	Kind     OutcomeKind
	Content  []byte
	Reason   string
	Endpoint string
}

func ExternalSuccess(content []byte, endpoint string) GenerationOutcome {
	return GenerationOutcome{Kind: OutcomeExternalSuccess, Content: content, Endpoint: endpoint}
}

func ExternalFailure(reason string) GenerationOutcome {
	return GenerationOutcome{Kind: OutcomeExternalFailure, Reason: reason}
}

func BackupTemplateUsed(content []byte) GenerationOutcome {
	return GenerationOutcome{Kind: OutcomeBackupTemplateUsed, Content: content}
}

// HasContent reports whether the outcome carries document bytes
func (o GenerationOutcome) HasContent() bool {
	return o.Kind != OutcomeExternalFailure && len(o.Content) > 0
}
