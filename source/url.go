package source

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
)

// URL is a source fetched over HTTP. The body is fetched once, on first use,
// and never re-fetched; LastModified is taken from the Last-Modified response
// header (0 if absent or if the fetch failed).
type URL struct {
	raw    string
	client *http.Client

	once     sync.Once
	text     string
	modified int64
	err      error
}

// NewURL creates a URL source. A nil client means http.DefaultClient.
func NewURL(rawURL string, client *http.Client) (*URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q in %s", u.Scheme, rawURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &URL{raw: u.String(), client: client}, nil
}

func (u *URL) ID() string { return "url:" + u.raw }

func (u *URL) LastModified() int64 {
	u.once.Do(u.fetch)
	return u.modified
}

// ScriptName is derived from the last path element of the URL.
func (u *URL) ScriptName() string {
	parsed, err := url.Parse(u.raw)
	if err != nil || parsed.Path == "" {
		return "Script"
	}
	base := path.Base(parsed.Path)
	return ClassName(strings.TrimSuffix(base, path.Ext(base)))
}

func (u *URL) Text() (string, error) {
	u.once.Do(u.fetch)
	return u.text, u.err
}

func (u *URL) fetch() {
	resp, err := u.client.Get(u.raw)
	if err != nil {
		u.err = fmt.Errorf("fetching %s: %w", u.raw, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		u.err = fmt.Errorf("fetching %s: unexpected status %s", u.raw, resp.Status)
		return
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		u.err = fmt.Errorf("reading %s: %w", u.raw, err)
		return
	}
	u.text = string(body)
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			u.modified = t.UnixMilli()
		}
	}
}

func (u *URL) String() string { return u.ID() }
