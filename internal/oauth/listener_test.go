package oauth

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/internal/events"
)

func newTestListener(t *testing.T, timeout time.Duration) (*Listener, <-chan events.Event) {
	t.Helper()
	bus := events.NewBus(8)
	ch, cancel := bus.Subscribe()
	t.Cleanup(cancel)
	return NewListener(WithAddr("127.0.0.1:0"), WithTimeout(timeout), WithEmitter(bus)), ch
}

func nextEvent(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return events.Event{}
	}
}

func get(t *testing.T, target string) (int, string) {
	t.Helper()
	resp, err := http.Get(target)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestListener_QueryTokensFirstResultWins(t *testing.T) {
	l, ch := newTestListener(t, 5*time.Second)

	flow, err := l.Start(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, flow.State)
	assert.True(t, strings.HasSuffix(flow.RedirectURI, CallbackPath))

	_, err = l.Start(context.Background())
	assert.ErrorIs(t, err, ErrInProgress)

	q := url.Values{"access_token": {"abc"}, "refresh_token": {"def"}, "state": {flow.State}}
	status, body := get(t, flow.RedirectURI+"?"+q.Encode())
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "réussie")

	ev := nextEvent(t, ch)
	assert.Equal(t, events.OAuthCallback, ev.Name)
	assert.Equal(t, Result{AccessToken: "abc", RefreshToken: "def"}, ev.Payload)

	require.Eventually(t, func() bool {
		_, err := l.Start(context.Background())
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestListener_HashCaptureAndTokenPost(t *testing.T) {
	l, ch := newTestListener(t, 5*time.Second)

	flow, err := l.Start(context.Background())
	require.NoError(t, err)

	status, body := get(t, flow.RedirectURI)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "/auth/token")

	base := strings.TrimSuffix(flow.RedirectURI, CallbackPath)
	resp, err := http.Post(base+"/auth/token", "application/json", strings.NewReader(`{"access_token":"tok","state":"wrong"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, events.OAuthError, nextEvent(t, ch).Name)

	resp, err = http.Post(base+"/auth/token", "application/json", strings.NewReader(`{"access_token":"tok"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ev := nextEvent(t, ch)
	assert.Equal(t, events.OAuthCallback, ev.Name)
	assert.Equal(t, Result{AccessToken: "tok"}, ev.Payload)
}

func TestListener_ProviderError(t *testing.T) {
	l, ch := newTestListener(t, 5*time.Second)

	flow, err := l.Start(context.Background())
	require.NoError(t, err)

	status, body := get(t, flow.RedirectURI+"?error=access_denied&error_description=%3Cb%3Enope%3C%2Fb%3E")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "&lt;b&gt;nope&lt;/b&gt;")

	ev := nextEvent(t, ch)
	assert.Equal(t, events.OAuthError, ev.Name)
	assert.Equal(t, "<b>nope</b>", ev.Payload)
}

func TestListener_AwaitTimesOut(t *testing.T) {
	l, ch := newTestListener(t, 50*time.Millisecond)

	_, err := l.Await(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNetwork))
	assert.Equal(t, events.OAuthError, nextEvent(t, ch).Name)
}

func TestListener_AwaitCode(t *testing.T) {
	l, _ := newTestListener(t, 5*time.Second)

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	flows := make(chan Flow, 1)
	l.listen = func(network, addr string) (net.Listener, error) {
		ln, err := net.Listen(network, addr)
		if err == nil {
			flows <- Flow{RedirectURI: "http://" + ln.Addr().String() + CallbackPath}
		}
		return ln, err
	}
	go func() {
		res, err := l.Await(context.Background())
		done <- outcome{res, err}
	}()

	flow := <-flows
	status, _ := get(t, flow.RedirectURI+"?code=xyz")
	assert.Equal(t, http.StatusOK, status)

	out := <-done
	require.NoError(t, out.err)
	assert.Equal(t, Result{Code: "xyz"}, out.res)
}
