package fetch

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T, rawURL string) *http.Request {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return &http.Request{Method: http.MethodGet, URL: u, Header: make(http.Header)}
}

func TestMockTransport_Sequence(t *testing.T) {
	mock := NewMockTransport().
		StubURL("https://example.org/x",
			Respond(500, "first"),
			Respond(200, "second"))

	resp, err := mock.RoundTrip(newRequest(t, "https://example.org/x"))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)

	resp, err = mock.RoundTrip(newRequest(t, "https://example.org/x"))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	// The last entry repeats once the sequence is spent.
	resp, err = mock.RoundTrip(newRequest(t, "https://example.org/x"))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "second", string(body))
}

func TestMockTransport_FirstMatchWins(t *testing.T) {
	mock := NewMockTransport().
		StubPath("/special", Respond(201, "special")).
		StubAny(Respond(200, "anything"))

	resp, err := mock.RoundTrip(newRequest(t, "https://example.org/special"))
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	resp, err = mock.RoundTrip(newRequest(t, "https://example.org/other"))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestMockTransport_CannedError(t *testing.T) {
	cause := errors.New("connection reset")
	mock := NewMockTransport().StubAny(Fail(cause))

	_, err := mock.RoundTrip(newRequest(t, "https://example.org/x"))
	assert.ErrorIs(t, err, cause)
}

func TestMockTransport_NoStub(t *testing.T) {
	mock := NewMockTransport()

	_, err := mock.RoundTrip(newRequest(t, "https://example.org/x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stub found")
}

func TestMockTransport_RecordsRequests(t *testing.T) {
	var hooked []string
	mock := NewMockTransport().
		StubAny(Respond(200, "")).
		OnRequest(func(r *http.Request) { hooked = append(hooked, r.URL.Path) })

	_, err := mock.RoundTrip(newRequest(t, "https://example.org/a"))
	require.NoError(t, err)
	_, err = mock.RoundTrip(newRequest(t, "https://example.org/b"))
	require.NoError(t, err)

	assert.Equal(t, 2, mock.RequestCount())
	assert.Equal(t, []string{"/a", "/b"}, hooked)
	assert.Equal(t, "/b", mock.LastRequest().URL.Path)
	assert.Len(t, mock.Requests(), 2)
}

func TestMockTransport_Reset(t *testing.T) {
	mock := NewMockTransport().StubAny(Respond(200, ""))

	_, err := mock.RoundTrip(newRequest(t, "https://example.org/a"))
	require.NoError(t, err)

	mock.Reset()

	assert.Equal(t, 0, mock.RequestCount())
	assert.Nil(t, mock.LastRequest())
	_, err = mock.RoundTrip(newRequest(t, "https://example.org/a"))
	assert.Error(t, err)
}

func TestRedirectHelper(t *testing.T) {
	c := Redirect(302, "https://example.org/next")

	assert.Equal(t, 302, c.Status)
	assert.Equal(t, "https://example.org/next", c.Header.Get("Location"))
}
