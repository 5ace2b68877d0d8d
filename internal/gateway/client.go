package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"messagemaster/internal/models"
	"messagemaster/internal/session"
	"messagemaster/internal/version"
)

// SessionStore is the part of the session the gateway reads and clears.
type SessionStore interface {
	Credential() (string, error)
	Save(ctx context.Context, token string, id models.Identity) error
	Clear(ctx context.Context) error
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
	HTTPClient *http.Client
	// OnSessionExpired runs after a 401 cleared the session.
	OnSessionExpired func()
}

type Client struct {
	base      string
	http      *http.Client
	sess      SessionStore
	limiter   *rate.Limiter
	onExpired func()
	expired   atomic.Int64
}

func New(sess SessionStore, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	lim := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSec > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}
	return &Client{
		base:      strings.TrimRight(opts.BaseURL, "/"),
		http:      hc,
		sess:      sess,
		limiter:   lim,
		onExpired: opts.OnSessionExpired,
	}
}

// File is one binary part of a multipart body.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

type Request struct {
	Method string
	Path   string
	Query  url.Values
	// JSON is encoded as the body unless Form or Files are set.
	JSON   any
	Form   url.Values
	Files  []File
	Header http.Header
	// Public requests carry no credential. Login and password reset use them.
	Public bool
	// Out receives the decoded JSON response when non-nil.
	Out any
}

// ExpiredCount is how many times a 401 has cleared the session.
func (c *Client) ExpiredCount() int64 { return c.expired.Load() }

func (c *Client) Do(ctx context.Context, req Request) error {
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if req.Out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: "read response " + req.Path, Err: err}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, req.Out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.Path, err)
	}
	return nil
}

// Stream sends req and hands back the open 2xx response. The caller closes the body.
func (c *Client) Stream(ctx context.Context, req Request) (*http.Response, error) {
	return c.send(ctx, req)
}

func (c *Client) send(ctx context.Context, req Request) (*http.Response, error) {
	var authHeader string
	if !req.Public {
		token, err := c.sess.Credential()
		if errors.Is(err, session.ErrExpired) {
			c.expire(ctx, req.Path, "credential_expired")
			return nil, ErrSessionExpired
		}
		if err != nil {
			return nil, ErrNotAuthenticated
		}
		authHeader = "Bearer " + token
	}

	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	if authHeader != "" {
		httpReq.Header.Set("Authorization", authHeader)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &NetworkError{Op: "throttle " + req.Path, Err: err}
	}

	rid := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", rid)
	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.Printf("upstream method=%s path=%s error=%q upstream_request_id=%s", httpReq.Method, req.Path, err.Error(), rid)
		return nil, &NetworkError{Op: httpReq.Method + " " + req.Path, Err: err}
	}
	log.Printf("upstream method=%s path=%s status=%d duration_ms=%d upstream_request_id=%s",
		httpReq.Method, req.Path, resp.StatusCode, time.Since(start).Milliseconds(), rid)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	msg := errorMessage(resp)
	if resp.StatusCode == http.StatusUnauthorized && !req.Public {
		c.expire(ctx, req.Path, "backend_401")
		return nil, ErrSessionExpired
	}
	return nil, &APIError{Status: resp.StatusCode, Message: msg}
}

func (c *Client) expire(ctx context.Context, path, reason string) {
	if err := c.sess.Clear(context.WithoutCancel(ctx)); err != nil {
		log.Printf("session clear failed path=%s error=%q", path, err.Error())
	}
	c.expired.Add(1)
	log.Printf("session expired path=%s reason=%s", path, reason)
	if c.onExpired != nil {
		c.onExpired()
	}
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	u, err := c.resolve(req.Path)
	if err != nil {
		return nil, err
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				if v != "" {
					q.Add(k, v)
				}
			}
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case len(req.Files) > 0 || req.Form != nil:
		buf, ct, err := encodeMultipart(req.Form, req.Files)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case req.JSON != nil:
		b, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", req.Path, err)
		}
		body, contentType = bytes.NewReader(b), "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	return httpReq, nil
}

// resolve joins path onto the base URL; absolute URLs on the same host pass through.
func (c *Client) resolve(path string) (*url.URL, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		u, err := url.Parse(path)
		if err != nil {
			return nil, err
		}
		base, err := url.Parse(c.base)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(u.Host, base.Host) {
			return nil, fmt.Errorf("refusing request to foreign host %s", u.Host)
		}
		return u, nil
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return url.Parse(c.base + path)
}

func encodeMultipart(form url.Values, files []File) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, vs := range form {
		for _, v := range vs {
			if err := mw.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
	}
	for _, f := range files {
		if len(f.Data) == 0 {
			continue
		}
		name := f.Name
		if name == "" {
			name = f.Field
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, name))
		ct := f.ContentType
		if ct == "" {
			ct = http.DetectContentType(f.Data)
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}

func errorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Msg     string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		for _, m := range []string{payload.Message, payload.Error, payload.Msg} {
			if strings.TrimSpace(m) != "" {
				return strings.TrimSpace(m)
			}
		}
	}
	text := strings.TrimSpace(string(raw))
	if text != "" && len(text) <= 512 && !strings.HasPrefix(text, "<") {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
