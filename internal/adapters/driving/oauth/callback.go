// Package oauth receives OAuth authorisation codes on a loopback redirect.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// CallbackPath is the path the provider redirects to.
const CallbackPath = "/callback"

// ErrStateMismatch is returned when the callback state does not match the request.
var ErrStateMismatch = errors.New("oauth: state mismatch")

// outcome is what a single redirect produced.
type outcome struct {
	code string
	err  error
}

// CallbackServer listens on 127.0.0.1 for the provider's redirect. Only the
// first redirect counts; later ones get a page but are otherwise ignored.
type CallbackServer struct {
	state   string
	results chan outcome

	mu   sync.Mutex
	port int
	srv  *http.Server
}

// NewCallbackServer prepares a server for the given port. Port 0 picks a free
// port on Start.
func NewCallbackServer(port int, state string) *CallbackServer {
	return &CallbackServer{
		state:   state,
		port:    port,
		results: make(chan outcome, 1),
	}
}

// Start binds the listener and serves in the background.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(s.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("oauth: listening on %s: %w", addr, err)
	}
	s.port = ln.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.serveCallback)
	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	go func(srv *http.Server) {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			s.deliver(outcome{err: fmt.Errorf("oauth: callback server: %w", err)})
		}
	}(s.srv)
	return nil
}

func (s *CallbackServer) serveCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res := outcome{code: q.Get("code")}
	reason := ""

	switch {
	case q.Get("error") != "":
		res.err = fmt.Errorf("oauth: provider returned %s: %s", q.Get("error"), q.Get("error_description"))
		reason = q.Get("error_description")
	case q.Get("state") != s.state:
		res.err = ErrStateMismatch
		reason = "The request state did not match."
	case res.code == "":
		res.err = errors.New("oauth: no authorization code received")
		reason = "No code was received."
	}
	s.deliver(res)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if res.err != nil {
		fmt.Fprint(w, resultPage("Authorisation failed", reason))
		return
	}
	fmt.Fprint(w, resultPage("MailMind is authorised", "You can close this window and return to the terminal."))
}

// deliver keeps the first outcome and drops the rest.
func (s *CallbackServer) deliver(o outcome) {
	select {
	case s.results <- o:
	default:
	}
}

// WaitForCode blocks until the redirect arrives or ctx is done.
func (s *CallbackServer) WaitForCode(ctx context.Context) (string, error) {
	select {
	case o := <-s.results:
		return o.code, o.err
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization callback: %w", ctx.Err())
	}
}

// Stop shuts the server down. It is safe to call on a server that was never
// started, and more than once.
func (s *CallbackServer) Stop() error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (s *CallbackServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// RedirectURI is the URL to register as the OAuth redirect.
func (s *CallbackServer) RedirectURI() string {
	return "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(s.Port())) + CallbackPath
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head><title>MailMind</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 15vh">
<h1>%s</h1>
<p>%s</p>
</body>
</html>`

func resultPage(title, message string) string {
	return fmt.Sprintf(pageTemplate, html.EscapeString(title), html.EscapeString(message))
}

// GenerateState returns 32 random bytes, base64url encoded, for the state parameter.
func GenerateState() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}

var browserCommands = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"freebsd": {"xdg-open"},
	"windows": {"rundll32", "url.dll,FileProtocolHandler"},
}

// OpenBrowser asks the desktop to open url. It does not wait for the browser.
func OpenBrowser(url string) error {
	argv, ok := browserCommands[runtime.GOOS]
	if !ok {
		return fmt.Errorf("oauth: no browser launcher for %s", runtime.GOOS)
	}
	args := append(argv[1:len(argv):len(argv)], url)
	return exec.Command(argv[0], args...).Start()
}
