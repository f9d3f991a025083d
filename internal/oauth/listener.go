// Package oauth captures the identity provider's redirect on a short-lived
// loopback listener.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/internal/events"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

const (
	DefaultAddr    = "127.0.0.1:1421"
	DefaultTimeout = 3 * time.Minute
	CallbackPath   = "/auth/callback"
)

var ErrInProgress = errors.New("an authentication flow is already waiting")

// Result is what the provider handed back: tokens, or a code to exchange.
type Result struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Code         string `json:"code,omitempty"`
}

// Flow describes a pending authentication.
type Flow struct {
	State       string `json:"state"`
	RedirectURI string `json:"redirect_uri"`
}

type Emitter interface {
	Emit(name string, payload any)
}

type Listener struct {
	addr    string
	timeout time.Duration
	emitter Emitter
	listen  func(network, addr string) (net.Listener, error)

	mu     sync.Mutex
	active bool
}

type Option func(*Listener)

func WithAddr(addr string) Option {
	return func(l *Listener) {
		l.addr = addr
	}
}

func WithTimeout(d time.Duration) Option {
	return func(l *Listener) {
		l.timeout = d
	}
}

func WithEmitter(e Emitter) Option {
	return func(l *Listener) {
		l.emitter = e
	}
}

func NewListener(opts ...Option) *Listener {
	l := &Listener{
		addr:    DefaultAddr,
		timeout: DefaultTimeout,
		listen:  net.Listen,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start binds the loopback address and waits in the background for the
// first callback. The wait outlives ctx and ends at the timeout. The
// outcome is published as an oauth-callback or oauth-error event.
func (l *Listener) Start(ctx context.Context) (Flow, error) {
	flow, ln, err := l.begin()
	if err != nil {
		return Flow{}, err
	}
	go func() {
		if _, err := l.serve(context.WithoutCancel(ctx), ln, flow.State); err != nil {
			log.Warn("[OAuth] %v", err)
		}
	}()
	return flow, nil
}

// Await is the blocking form of Start.
func (l *Listener) Await(ctx context.Context) (Result, error) {
	flow, ln, err := l.begin()
	if err != nil {
		return Result{}, err
	}
	return l.serve(ctx, ln, flow.State)
}

func (l *Listener) begin() (Flow, net.Listener, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active {
		return Flow{}, nil, ErrInProgress
	}

	ln, err := l.listen("tcp", l.addr)
	if err != nil {
		return Flow{}, nil, apperror.Wrap(err, apperror.KindIO, "failed to start callback server").WithContext("addr", l.addr)
	}
	l.active = true

	flow := Flow{
		State:       uuid.NewString(),
		RedirectURI: fmt.Sprintf("http://%s%s", ln.Addr().String(), CallbackPath),
	}
	log.Info("[OAuth] Callback server listening on %s", ln.Addr())
	return flow, ln, nil
}

func (l *Listener) serve(ctx context.Context, ln net.Listener, state string) (Result, error) {
	defer func() {
		l.mu.Lock()
		l.active = false
		l.mu.Unlock()
	}()

	results := make(chan Result, 1)
	var once sync.Once
	deliver := func(r Result) {
		once.Do(func() {
			l.emit(events.OAuthCallback, r)
			results <- r
		})
	}

	srv := &http.Server{
		Handler:           l.handler(state, deliver),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("[OAuth] Callback server failed: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case r := <-results:
		return r, nil
	case <-timer.C:
		err := apperror.Newf(apperror.KindNetwork, "no token received within %s", l.timeout)
		l.emit(events.OAuthError, err.Error())
		return Result{}, err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

type tokenPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	State        string `json:"state"`
}

func (l *Listener) handler(state string, deliver func(Result)) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(CallbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("state"); got != "" && got != state {
			l.emit(events.OAuthError, "state mismatch")
			writeHTML(w, http.StatusBadRequest, errorPage("Requête d'authentification invalide"))
			return
		}
		switch {
		case q.Get("access_token") != "":
			deliver(Result{AccessToken: q.Get("access_token"), RefreshToken: q.Get("refresh_token")})
			writeHTML(w, http.StatusOK, successPage())
		case q.Get("code") != "":
			deliver(Result{Code: q.Get("code")})
			writeHTML(w, http.StatusOK, successPage())
		case q.Get("error") != "":
			reason := q.Get("error")
			if desc := q.Get("error_description"); desc != "" {
				reason = desc
			}
			l.emit(events.OAuthError, reason)
			writeHTML(w, http.StatusOK, errorPage(reason))
		default:
			writeHTML(w, http.StatusOK, hashCapturePage())
		}
	})

	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload tokenPayload
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&payload); err != nil || payload.AccessToken == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if payload.State != "" && payload.State != state {
			l.emit(events.OAuthError, "state mismatch")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		deliver(Result{AccessToken: payload.AccessToken, RefreshToken: payload.RefreshToken})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/auth/success", func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, http.StatusOK, successPage())
	})
	mux.HandleFunc("/auth/error", func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, http.StatusOK, errorPage("Erreur inconnue"))
	})
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func (l *Listener) emit(name string, payload any) {
	if l.emitter != nil {
		l.emitter.Emit(name, payload)
	}
}

func writeHTML(w http.ResponseWriter, status int, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(page))
}
