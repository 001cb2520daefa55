package artifact

import "fmt"

// UnsupportedMediaError reports an input whose media kind the pipeline does
// not accept. The caller may resubmit a supported kind.
type UnsupportedMediaError struct {
	ContentType string
	Filename    string
}

func (e *UnsupportedMediaError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("unsupported media type %q for %s (accepted: text, image/jpeg, image/png, application/pdf)", e.ContentType, e.Filename)
	}
	return fmt.Sprintf("unsupported media type %q (accepted: text, image/jpeg, image/png, application/pdf)", e.ContentType)
}

// ExtractionError reports that no text could be recovered from an artifact,
// e.g. an unreadable image or a corrupt PDF. Recoverable: the caller may
// resubmit a clearer artifact.
type ExtractionError struct {
	ArtifactID string
	Kind       Kind
	Reason     string
	Err        error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("text extraction failed for %s artifact %s: %s: %v", e.Kind, e.ArtifactID, e.Reason, e.Err)
	}
	return fmt.Sprintf("text extraction failed for %s artifact %s: %s", e.Kind, e.ArtifactID, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
