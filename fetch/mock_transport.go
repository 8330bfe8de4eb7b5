package fetch

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"sync"
)

// Canned is one scripted exchange for the MockTransport: either a
// response (status, headers, body) or a transport-level error.
type Canned struct {
	Status int
	Header http.Header
	Body   string
	Err    error
}

// Respond builds a Canned response with the given status and body.
func Respond(status int, body string) Canned {
	return Canned{Status: status, Body: body, Header: make(http.Header)}
}

// RespondWith builds a Canned response carrying extra header pairs,
// given as alternating name/value strings. Repeated names produce
// repeated header lines.
func RespondWith(status int, body string, pairs ...string) Canned {
	c := Respond(status, body)
	for i := 0; i+1 < len(pairs); i += 2 {
		c.Header.Add(pairs[i], pairs[i+1])
	}
	return c
}

// Redirect builds a Canned 3xx response pointing at location.
func Redirect(status int, location string) Canned {
	return RespondWith(status, "", "Location", location)
}

// Fail builds a Canned transport error.
func Fail(err error) Canned {
	return Canned{Err: err}
}

// MockTransport is a scriptable http.RoundTripper for tests. Each stub
// matches requests and plays a sequence of canned exchanges: successive
// matches consume the sequence, and the last entry repeats once the
// sequence is spent. Stubs are checked in order, first match wins.
type MockTransport struct {
	mu          sync.Mutex
	stubs       []*mockStub
	requests    []*http.Request
	requestHook func(*http.Request)
}

type mockStub struct {
	matcher func(*http.Request) bool
	canned  []Canned
	served  int
}

// NewMockTransport creates an empty MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// StubURL scripts the canned sequence for requests whose full URL
// matches exactly.
func (m *MockTransport) StubURL(u string, canned ...Canned) *MockTransport {
	return m.StubFunc(func(req *http.Request) bool {
		return req.URL.String() == u
	}, canned...)
}

// StubPath scripts the canned sequence for requests matching the path.
func (m *MockTransport) StubPath(path string, canned ...Canned) *MockTransport {
	return m.StubFunc(func(req *http.Request) bool {
		return req.URL.Path == path
	}, canned...)
}

// StubAny scripts the canned sequence for every request not claimed by
// an earlier stub.
func (m *MockTransport) StubAny(canned ...Canned) *MockTransport {
	return m.StubFunc(func(*http.Request) bool { return true }, canned...)
}

// StubFunc scripts the canned sequence for requests matching the
// predicate.
func (m *MockTransport) StubFunc(matcher func(*http.Request) bool, canned ...Canned) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, &mockStub{matcher: matcher, canned: canned})
	return m
}

// OnRequest sets a hook invoked for each request, useful for capturing
// request details mid-flight.
func (m *MockTransport) OnRequest(fn func(*http.Request)) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestHook = fn
	return m
}

// RoundTrip implements http.RoundTripper.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	hook := m.requestHook

	var next *Canned
	for _, s := range m.stubs {
		if !s.matcher(req) || len(s.canned) == 0 {
			continue
		}
		i := s.served
		if i >= len(s.canned) {
			i = len(s.canned) - 1
		}
		s.served++
		c := s.canned[i]
		next = &c
		break
	}
	m.mu.Unlock()

	if hook != nil {
		hook(req)
	}
	if next == nil {
		return nil, errors.New("no stub found for request: " + req.Method + " " + req.URL.String())
	}
	if next.Err != nil {
		return nil, next.Err
	}

	header := next.Header
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		Status:        http.StatusText(next.Status),
		StatusCode:    next.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header.Clone(),
		Body:          io.NopCloser(bytes.NewBufferString(next.Body)),
		ContentLength: int64(len(next.Body)),
		Request:       req,
	}, nil
}

// Requests returns a copy of every request seen, in order.
func (m *MockTransport) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request{}, m.requests...)
}

// RequestCount returns the number of requests seen.
func (m *MockTransport) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or nil if none.
func (m *MockTransport) LastRequest() *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Reset clears stubs, recorded requests and the request hook.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = nil
	m.requests = nil
	m.requestHook = nil
}
