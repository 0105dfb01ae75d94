package domain

// Reason codes persisted on scraped_pages.reason and crawl_jobs.error.
// These are stable strings; callers compare against the constants, never
// against literals.
const (
	ReasonNetworkTimeout     = "network_timeout"
	ReasonDNSFailure         = "dns_failure"
	ReasonTLSError           = "tls_error"
	ReasonNetworkError       = "network_error"
	ReasonHTTP5xx            = "http_5xx"
	ReasonHTTP429            = "http_429"
	ReasonRobotsDisallowed   = "robots_disallowed"
	ReasonInvalidMime        = "invalid_mime"
	ReasonNon200Status       = "non_200_status"
	ReasonThinContent        = "thin_content"
	ReasonDuplicateContent   = "duplicate_content"
	ReasonOffDomainLink      = "off_domain_link"
	ReasonSizeExceeded       = "size_exceeded"
	ReasonTimeBudgetExceeded = "time_budget_exceeded"
	ReasonNoWebsite          = "no_website"
	ReasonShutdown           = "shutdown"
)

// TransientReason reports whether a page failure class is retryable.
// Transient classes get at most two additional attempts through the rate
// gate's backoff.
func TransientReason(reason string) bool {
	switch reason {
	case ReasonNetworkTimeout, ReasonDNSFailure, ReasonTLSError,
		ReasonNetworkError, ReasonHTTP5xx, ReasonHTTP429:
		return true
	}
	return false
}
