package fetcher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/jonesrussell/venuescout/internal/domain"
	"github.com/jonesrussell/venuescout/internal/logger"
	"github.com/jonesrussell/venuescout/internal/ratelimit"
	"github.com/jonesrussell/venuescout/internal/urlutil"
)

const (
	// Per-phase budgets. Any single phase exceeding its budget aborts the
	// fetch with network_timeout.
	connectTimeout   = 1 * time.Second
	firstByteTimeout = 1 * time.Second
	readTimeout      = 1 * time.Second

	// wallTimeout is the hard per-request ceiling across all phases.
	wallTimeout = 3 * time.Second

	// maxRetries is the number of additional attempts for transient
	// failures.
	maxRetries = 2

	maxRedirects = 5
)

// Result is the outcome of one download. Reason is empty for a page that
// passed the quality gate; otherwise it holds the classifying reason code
// and the other fields describe whatever was observed before rejection.
type Result struct {
	URL           string
	Status        int
	ContentType   string
	Body          []byte
	CleanedText   string
	ContentHash   string
	RedirectChain []string
	SizeBytes     int
	FirstByteMS   int
	TotalMS       int
	Reason        string
	NotModified   bool
	ETag          string
	LastModified  string
}

// OK reports whether the page passed the quality gate.
func (r *Result) OK() bool {
	return r.Reason == ""
}

// Conditional carries validators from a previously stored page for
// revalidation requests.
type Conditional struct {
	ETag         string
	LastModified string
}

// Downloader fetches pages through the rate gate with robots compliance
// and strict budgets.
type Downloader struct {
	transport       *http.Transport
	robots          *RobotsChecker
	gate            *ratelimit.Gate
	userAgent       string
	sizeLimit       int64
	minVisibleChars int
	logger          logger.Interface
}

// Options configures a Downloader.
type Options struct {
	UserAgent       string
	SizeLimitBytes  int64
	MinVisibleChars int
	RobotsTTL       time.Duration
}

// New creates a Downloader. The gate is shared across all downloaders in
// the process so the global cap holds regardless of caller.
func New(gate *ratelimit.Gate, opts Options, log logger.Interface) *Downloader {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: firstByteTimeout,
		MaxIdleConnsPerHost:   4,
	}

	robotsClient := &http.Client{
		Transport: transport,
		Timeout:   wallTimeout,
	}

	return &Downloader{
		transport:       transport,
		robots:          NewRobotsChecker(robotsClient, opts.UserAgent, opts.RobotsTTL),
		gate:            gate,
		userAgent:       opts.UserAgent,
		sizeLimit:       opts.SizeLimitBytes,
		minVisibleChars: opts.MinVisibleChars,
		logger:          log,
	}
}

// Fetch downloads one URL. Classified failures are returned in
// Result.Reason with a nil error; a non-nil error means the request could
// not be constructed at all.
func (d *Downloader) Fetch(ctx context.Context, rawURL string, cond *Conditional) (*Result, error) {
	host, err := urlutil.RegisteredDomain(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve fetch host: %w", err)
	}

	allowed, robotsErr := d.robots.Allowed(ctx, rawURL)
	if robotsErr != nil {
		return nil, fmt.Errorf("failed to check robots policy: %w", robotsErr)
	}
	if !allowed {
		return &Result{URL: rawURL, Reason: domain.ReasonRobotsDisallowed}, nil
	}

	var res *Result
	for attempt := 0; attempt <= maxRetries; attempt++ {
		release, acquireErr := d.gate.Acquire(ctx, host)
		if acquireErr != nil {
			return nil, fmt.Errorf("failed to acquire fetch slot: %w", acquireErr)
		}

		res = d.attempt(ctx, rawURL, cond)
		release()

		if res.OK() || res.NotModified {
			d.gate.Reset(host)
			return res, nil
		}

		if !domain.TransientReason(res.Reason) || attempt == maxRetries {
			return res, nil
		}

		d.gate.Penalize(host)
		d.logger.Debug("retrying fetch",
			"url", rawURL,
			"reason", res.Reason,
			"attempt", attempt+1,
		)
	}

	return res, nil
}

// attempt performs a single HTTP request under the wall-clock budget.
func (d *Downloader) attempt(ctx context.Context, rawURL string, cond *Conditional) *Result {
	res := &Result{URL: rawURL}

	reqCtx, cancel := context.WithTimeout(ctx, wallTimeout)
	defer cancel()

	start := time.Now()

	var firstByteAt time.Time
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() {
			firstByteAt = time.Now()
		},
	}
	reqCtx = httptrace.WithClientTrace(reqCtx, trace)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		res.Reason = domain.ReasonNetworkError
		return res
	}

	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if cond != nil {
		if cond.ETag != "" {
			req.Header.Set("If-None-Match", cond.ETag)
		}
		if cond.LastModified != "" {
			req.Header.Set("If-Modified-Since", cond.LastModified)
		}
	}

	client := &http.Client{
		Transport: d.transport,
		CheckRedirect: func(r *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			res.RedirectChain = append(res.RedirectChain, r.URL.String())
			return nil
		},
	}

	resp, doErr := client.Do(req)
	if doErr != nil {
		res.Reason = classifyNetError(doErr)
		res.TotalMS = int(time.Since(start).Milliseconds())
		return res
	}
	defer resp.Body.Close()

	if !firstByteAt.IsZero() {
		res.FirstByteMS = int(firstByteAt.Sub(start).Milliseconds())
	}

	res.Status = resp.StatusCode
	res.ContentType = resp.Header.Get("Content-Type")
	res.ETag = resp.Header.Get("ETag")
	res.LastModified = resp.Header.Get("Last-Modified")

	if resp.StatusCode == http.StatusNotModified {
		res.NotModified = true
		res.TotalMS = int(time.Since(start).Milliseconds())
		return res
	}

	// Reject non-HTML before spending the read budget on the body.
	if resp.StatusCode == http.StatusOK && !ValidMime(res.ContentType) {
		res.Reason = domain.ReasonInvalidMime
		res.TotalMS = int(time.Since(start).Milliseconds())
		return res
	}

	body, readReason := d.readBody(reqCtx, resp.Body)
	res.TotalMS = int(time.Since(start).Milliseconds())
	if readReason != "" {
		res.Reason = readReason
		return res
	}

	res.Body = body
	res.SizeBytes = len(body)
	res.ContentHash = urlutil.TextHash(body)

	cleaned, cleanErr := CleanText(body)
	if cleanErr != nil {
		res.Reason = domain.ReasonThinContent
		return res
	}
	res.CleanedText = cleaned

	res.Reason = QualityReason(res.Status, res.ContentType, cleaned, d.minVisibleChars)

	return res
}

// readBody reads the response body under the read budget and the size
// cap. Exceeding the cap rejects the page rather than truncating it into
// the pipeline.
func (d *Downloader) readBody(ctx context.Context, body io.Reader) ([]byte, string) {
	readCtx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	type readResult struct {
		data []byte
		err  error
	}

	ch := make(chan readResult, 1)
	go func() {
		data, err := io.ReadAll(io.LimitReader(body, d.sizeLimit+1))
		ch <- readResult{data: data, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, classifyNetError(r.err)
		}
		if int64(len(r.data)) > d.sizeLimit {
			return nil, domain.ReasonSizeExceeded
		}
		return r.data, ""
	case <-readCtx.Done():
		return nil, domain.ReasonNetworkTimeout
	}
}

// classifyNetError maps transport errors onto stable reason codes.
func classifyNetError(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.ReasonDNSFailure
	}

	var certErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError
	var unknownAuthErr x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &recordErr) ||
		errors.As(err, &unknownAuthErr) || errors.As(err, &hostnameErr) {
		return domain.ReasonTLSError
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ReasonNetworkTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ReasonNetworkTimeout
	}

	return domain.ReasonNetworkError
}
