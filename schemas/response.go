// Package schemas defines the uniform response envelopes returned by
// fastcore-configured endpoints.
package schemas

import "time"

// APIVersion is stamped into every response's metadata block.
const APIVersion = "1.0"

// Metadata is the block attached to every envelope.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// NewMetadata returns metadata stamped with the current time.
func NewMetadata() Metadata {
	return Metadata{Timestamp: time.Now().UTC(), Version: APIVersion}
}

// ListMetadata extends Metadata with pagination fields.
type ListMetadata struct {
	Timestamp   time.Time `json:"timestamp"`
	Version     string    `json:"version"`
	Total       int       `json:"total"`
	Page        *int      `json:"page,omitempty"`
	PageSize    *int      `json:"page_size,omitempty"`
	HasNext     *bool     `json:"has_next,omitempty"`
	HasPrevious *bool     `json:"has_previous,omitempty"`
}

// NewListMetadata builds pagination metadata. Pass page <= 0 to omit the
// per-page fields (unpaginated listing).
func NewListMetadata(total, page, pageSize int) ListMetadata {
	m := ListMetadata{Timestamp: time.Now().UTC(), Version: APIVersion, Total: total}
	if page > 0 && pageSize > 0 {
		hasNext := page*pageSize < total
		hasPrev := page > 1
		m.Page = &page
		m.PageSize = &pageSize
		m.HasNext = &hasNext
		m.HasPrevious = &hasPrev
	}
	return m
}

// DataResponse is the envelope for single-object responses.
type DataResponse[T any] struct {
	Success  bool     `json:"success"`
	Data     T        `json:"data"`
	Metadata Metadata `json:"metadata"`
	Message  string   `json:"message,omitempty"`
}

// NewDataResponse wraps a payload in the success envelope.
func NewDataResponse[T any](data T) DataResponse[T] {
	return DataResponse[T]{Success: true, Data: data, Metadata: NewMetadata()}
}

// ListResponse is the envelope for collection responses.
type ListResponse[T any] struct {
	Success  bool         `json:"success"`
	Data     []T          `json:"data"`
	Metadata ListMetadata `json:"metadata"`
	Message  string       `json:"message,omitempty"`
}

// NewListResponse wraps items plus pagination info in the success envelope.
func NewListResponse[T any](items []T, total, page, pageSize int) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Success: true, Data: items, Metadata: NewListMetadata(total, page, pageSize)}
}

// ErrorInfo is one structured entry in an error envelope.
type ErrorInfo struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorResponse is the envelope for failed requests.
type ErrorResponse struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message"`
	Errors   []ErrorInfo `json:"errors"`
	Metadata Metadata    `json:"metadata"`
}

// NewErrorResponse builds the error envelope. When no entries are supplied a
// single entry is synthesized from code and message so the errors list is
// never empty.
func NewErrorResponse(code, message string, entries ...ErrorInfo) ErrorResponse {
	if len(entries) == 0 {
		entries = []ErrorInfo{{Code: code, Message: message}}
	}
	return ErrorResponse{
		Success:  false,
		Message:  message,
		Errors:   entries,
		Metadata: NewMetadata(),
	}
}
