package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/lucianolorenti/rul-pm/internal/domain"
	"github.com/lucianolorenti/rul-pm/internal/ports"
)

const (
	StageDownload = "download"

	// Google Drive answers large files with an HTML interstitial first.
	maxConfirmHops = 3
	maxPageBytes   = 1 << 20
)

var (
	confirmParamRe = regexp.MustCompile(`confirm=([0-9A-Za-z_\-]+)`)
	formActionRe   = regexp.MustCompile(`<form[^>]+action="([^"]+)"`)
	hiddenInputRe  = regexp.MustCompile(`<input[^>]+type="hidden"[^>]+name="([^"]+)"[^>]+value="([^"]*)"`)
)

// HTTPFetcher downloads a single file over HTTP(S), following Google Drive's
// confirmation page when one is served instead of the payload.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	jar, _ := cookiejar.New(nil)
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		userAgent: userAgent,
	}
}

// Fetch streams rawURL into dest. Data lands in dest+".part" first and is only
// renamed into place once the transfer finished with a non-empty body.
func (h *HTTPFetcher) Fetch(ctx context.Context, rawURL, dest string, progress ports.ProgressFunc) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrAcquisition, err)
	}

	resp, err := h.open(ctx, rawURL)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrAcquisition, err)
	}
	defer resp.Body.Close()

	part := dest + ".part"
	out, err := os.Create(part)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrAcquisition, err)
	}

	n, copyErr := io.Copy(out, &progressReader{r: resp.Body, total: resp.ContentLength, fn: progress})
	closeErr := out.Close()
	switch {
	case copyErr != nil:
		os.Remove(part)
		return n, fmt.Errorf("%w: transfer: %v", domain.ErrAcquisition, copyErr)
	case closeErr != nil:
		os.Remove(part)
		return n, fmt.Errorf("%w: %v", domain.ErrAcquisition, closeErr)
	case n == 0:
		os.Remove(part)
		return 0, fmt.Errorf("%w: empty response body from %s", domain.ErrAcquisition, rawURL)
	case resp.ContentLength > 0 && n != resp.ContentLength:
		os.Remove(part)
		return n, fmt.Errorf("%w: short transfer %d/%d bytes", domain.ErrAcquisition, n, resp.ContentLength)
	}

	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return n, fmt.Errorf("%w: %v", domain.ErrAcquisition, err)
	}
	return n, nil
}

func (h *HTTPFetcher) open(ctx context.Context, rawURL string) (*http.Response, error) {
	target := rawURL
	for hop := 0; hop <= maxConfirmHops; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		if h.userAgent != "" {
			req.Header.Set("User-Agent", h.userAgent)
		}
		resp, err := h.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}
		if !isHTML(resp.Header.Get("Content-Type")) {
			return resp, nil
		}

		page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		next, ok := confirmURL(target, page, resp.Cookies())
		if !ok {
			return nil, fmt.Errorf("received an HTML page instead of the archive")
		}
		target = next
	}
	return nil, fmt.Errorf("too many confirmation pages")
}

func isHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "text/html"
}

// confirmURL derives the follow-up request from a Drive interstitial page.
func confirmURL(current string, page []byte, cookies []*http.Cookie) (string, bool) {
	for _, c := range cookies {
		if strings.HasPrefix(c.Name, "download_warning") {
			return withQuery(current, map[string]string{"confirm": c.Value})
		}
	}

	if m := formActionRe.FindSubmatch(page); m != nil {
		params := make(map[string]string)
		for _, in := range hiddenInputRe.FindAllSubmatch(page, -1) {
			params[string(in[1])] = string(in[2])
		}
		action := strings.ReplaceAll(string(m[1]), "&amp;", "&")
		base, err := url.Parse(current)
		if err != nil {
			return "", false
		}
		ref, err := url.Parse(action)
		if err != nil {
			return "", false
		}
		return withQuery(base.ResolveReference(ref).String(), params)
	}

	if m := confirmParamRe.FindSubmatch(page); m != nil {
		return withQuery(current, map[string]string{"confirm": string(m[1])})
	}
	return "", false
}

func withQuery(raw string, params map[string]string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), true
}

type progressReader struct {
	r     io.Reader
	total int64
	done  int64
	fn    ports.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.fn != nil {
		p.done += int64(n)
		total := p.total
		if total < 0 {
			total = 0
		}
		p.fn(StageDownload, p.done, total)
	}
	return n, err
}

var _ ports.Fetcher = (*HTTPFetcher)(nil)
