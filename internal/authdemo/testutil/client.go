package testutil

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"testing"
)

// Client is a browser stand-in that keeps the visitor cookie and never follows redirects.
type Client struct {
	t    testing.TB
	base string
	http *http.Client
}

// Response is a fully read HTTP response.
type Response struct {
	*http.Response
	Body []byte
}

// NewClient returns a client bound to srv with its own cookie jar.
func NewClient(t testing.TB, srv *Server) *Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &Client{
		t:    t,
		base: srv.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Get issues a plain page request.
func (c *Client) Get(path string) *Response {
	return c.do(http.MethodGet, path, nil, nil)
}

// HXGet issues an htmx GET.
func (c *Client) HXGet(path string) *Response {
	return c.do(http.MethodGet, path, nil, htmxHeaders(""))
}

// Post submits a form without htmx.
func (c *Client) Post(path string, form url.Values) *Response {
	return c.do(http.MethodPost, path, form, nil)
}

// HXPost submits form the way htmx does, naming the triggering element when trigger is set.
func (c *Client) HXPost(path, trigger string, form url.Values) *Response {
	return c.do(http.MethodPost, path, form, htmxHeaders(trigger))
}

func (c *Client) do(method, path string, form url.Values, headers http.Header) *Response {
	c.t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	payload, err := io.ReadAll(res.Body)
	if err != nil {
		c.t.Fatalf("read body: %v", err)
	}
	return &Response{Response: res, Body: payload}
}

func htmxHeaders(trigger string) http.Header {
	h := http.Header{}
	h.Set("HX-Request", "true")
	if trigger != "" {
		h.Set("HX-Trigger-Name", trigger)
	}
	return h
}
