package skin

import "log"

// AttachmentBuilderOption is a functional option for configuring an Attachment via NewAttachment.
type AttachmentBuilderOption func(*attachment)

// WithLogger is an option builder that sets the diagnostic logger.
//
// Parameters:
//   - l: the logger load diagnostics are written to
//
// Returns:
//   - AttachmentBuilderOption: a function that applies the logger option to an attachment
func WithLogger(l *log.Logger) AttachmentBuilderOption {
	return func(a *attachment) {
		if l != nil {
			a.logger = l
		}
	}
}
