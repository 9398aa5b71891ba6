// Package acme provides ACME protocol constants shared by the client,
// hook, and certificate utility packages.
package acme

const (
	// Directory keys. See
	// https://www.rfc-editor.org/rfc/rfc8555#section-7.1.1
	NewNonceEndpoint   = "newNonce"
	NewAccountEndpoint = "newAccount"
	NewOrderEndpoint   = "newOrder"
	RevokeCertEndpoint = "revokeCert"

	// ReplayNonceHeader is the HTTP response header used by ACME to
	// communicate a fresh anti-replay nonce. See
	// https://www.rfc-editor.org/rfc/rfc8555#section-6.5.1
	ReplayNonceHeader = "Replay-Nonce"

	// LocationHeader carries the URL of a newly created resource (an
	// Account or an Order) in the response to its creation request.
	LocationHeader = "Location"

	// ProblemContentType is the media type of an RFC 7807 problem
	// document, used by ACME to report errors.
	ProblemContentType = "application/problem+json"

	// JOSEContentType is the Content-Type of every signed ACME request body.
	JOSEContentType = "application/jose+json"

	// BadNonceProblem is the problem "type" URN returned when a signed
	// request is rejected for carrying a stale or unknown nonce.
	BadNonceProblem = "urn:ietf:params:acme:error:badNonce"

	// AccountDoesNotExistProblem is the problem "type" URN returned for
	// a newAccount{onlyReturnExisting:true} request with no matching
	// account.
	AccountDoesNotExistProblem = "urn:ietf:params:acme:error:accountDoesNotExist"

	// ProductionDirectoryURL is the default ACME directory used when no
	// -a/-s override is given.
	ProductionDirectoryURL = "https://acme-v02.api.letsencrypt.org/directory"

	// StagingDirectoryURL is used when -s is given.
	StagingDirectoryURL = "https://acme-staging-v02.api.letsencrypt.org/directory"

	// DefaultConfDir is the default -c confdir.
	DefaultConfDir = "/etc/ssl/uacme"
)
