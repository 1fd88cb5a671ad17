package models

type UploadResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// AskResponse lists one source per retrieved chunk, in rank order.
type AskResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

type Source struct {
	Source  string `json:"source"`
	Page    int    `json:"page,omitempty"`
	Content string `json:"content,omitempty"`
}

// ErrorResponse carries the user-facing message of a failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
