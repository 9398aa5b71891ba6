package resources

// Challenge represents one method of proving control of an identifier in
// order to satisfy a pending Authorization.
//
// For the challenge types (expected values "http-01", "dns-01", "tls-alpn-01")
// see https://www.rfc-editor.org/rfc/rfc8555#section-8, and for the Status
// state machine see https://www.rfc-editor.org/rfc/rfc8555#section-7.1.6.
type Challenge struct {
	// Type of the challenge.
	Type string `json:"type"`
	// URL the client POSTs to in order to trigger server-side validation,
	// and polls afterward.
	URL string `json:"url"`
	// Token used to construct the challenge's key authorization.
	Token string `json:"token"`
	// Status is one of pending, processing, valid, invalid.
	Status string `json:"status"`
	// Error is populated by the server when Status is invalid.
	Error *Problem `json:"error,omitempty"`
}

// String returns the URL of the Challenge.
func (c Challenge) String() string {
	return c.URL
}
