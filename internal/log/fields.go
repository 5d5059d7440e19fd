// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldBlockID   = "block_id"
	FieldUserID    = "user_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Media fields
	FieldMediaURL = "media_url"
	FieldToken    = "token"
	FieldSource   = "source"
	FieldMimeType = "mime_type"
	FieldBaseURL  = "base_url"

	// Progress fields
	FieldProgress  = "progress"
	FieldThreshold = "threshold"

	// Path fields
	FieldPath = "path"
)
