package apierror

// Error type URIs following the urn:lora:error:* pattern.
// These are used as the "type" field in RFC 9457 Problem Details.
const (
	// TypeValidation indicates request validation failed (400)
	TypeValidation = "urn:lora:error:validation"

	// TypeBadRequest indicates a malformed or invalid request (400)
	TypeBadRequest = "urn:lora:error:bad_request"

	// TypeUnauthorized indicates missing or invalid authentication (401)
	TypeUnauthorized = "urn:lora:error:unauthorized"

	// TypeConsentRequired indicates the user has not agreed to cloud AI processing (403)
	TypeConsentRequired = "urn:lora:error:consent_required"

	// TypeNotFound indicates the requested route or resource does not exist (404)
	TypeNotFound = "urn:lora:error:not_found"

	// TypeRateLimit indicates too many requests (429)
	TypeRateLimit = "urn:lora:error:rate_limit"

	// TypeInternal indicates an unexpected server error (500)
	TypeInternal = "urn:lora:error:internal"

	// TypeDataUnavailable indicates every requested health metric failed to load (503)
	TypeDataUnavailable = "urn:lora:error:data_unavailable"
)

// Titles for each error type - human-readable summaries
const (
	TitleValidation      = "Validation Error"
	TitleBadRequest      = "Bad Request"
	TitleUnauthorized    = "Authentication Required"
	TitleConsentRequired = "AI Consent Required"
	TitleNotFound        = "Resource Not Found"
	TitleRateLimit       = "Rate Limit Exceeded"
	TitleInternal        = "Internal Server Error"
	TitleDataUnavailable = "Health Data Unavailable"
)
