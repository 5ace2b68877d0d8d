package gateway

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// Download is an open file body fetched from the backend.
type Download struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string
	Size        int64
}

// Download fetches a stored file (attachments, reports, backup archives).
// Paths on the backend host are sent with the credential; a link on another
// host is fetched anonymously.
func (c *Client) Download(ctx context.Context, target string) (Download, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return Download{}, fmt.Errorf("download target is empty")
	}
	var resp *http.Response
	if c.isForeign(target) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return Download{}, err
		}
		resp, err = c.http.Do(req)
		if err != nil {
			return Download{}, &NetworkError{Op: "download", Err: err}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			defer resp.Body.Close()
			return Download{}, &APIError{Status: resp.StatusCode, Message: errorMessage(resp)}
		}
	} else {
		var err error
		resp, err = c.Stream(ctx, Request{Path: target})
		if err != nil {
			return Download{}, err
		}
	}
	return Download{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    downloadName(resp, target),
		Size:        resp.ContentLength,
	}, nil
}

func (c *Client) isForeign(target string) bool {
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	base, err := url.Parse(c.base)
	if err != nil {
		return true
	}
	return !strings.EqualFold(u.Host, base.Host)
}

func downloadName(resp *http.Response, target string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return params["filename"]
		}
	}
	p := target
	if u, err := url.Parse(target); err == nil {
		p = u.Path
	}
	name := path.Base(p)
	if name == "." || name == "/" || name == "" {
		return "download"
	}
	return name
}
