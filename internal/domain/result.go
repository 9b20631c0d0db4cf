package domain

// Result is a raw search backend response. Its body is opaque to the connector.
type Result struct {
	Handler     string `json:"handler"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}
