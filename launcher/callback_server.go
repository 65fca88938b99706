package launcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// CallbackPath is the route the provider redirects back to.
const CallbackPath = "/callback"

// CallbackServer is a loopback HTTP listener that turns the provider's
// redirect into a completion Message for an awaiting launcher. Binding is
// restricted to loopback addresses, so only redirects that reach this
// machine can ever produce a completion.
type CallbackServer struct {
	launcher *Launcher
	platform string
	listener net.Listener
	server   *http.Server
}

// StartCallbackServer listens on addr (loopback only; empty means
// 127.0.0.1 with an ephemeral port) and serves the callback route until
// Shutdown. platform stamps every delivered message so the launcher can
// match it to the initiating provider.
func StartCallbackServer(l *Launcher, platform, addr string) (*CallbackServer, error) {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, errors.Wrap(err, "[StartCallbackServer] invalid listen address")
	}
	if host != "localhost" {
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			return nil, errors.Errorf("[StartCallbackServer] refusing non-loopback listen address %q", addr)
		}
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "[StartCallbackServer] net.Listen")
	}

	s := &CallbackServer{
		launcher: l,
		platform: platform,
		listener: listener,
	}

	router := chi.NewRouter()
	router.Get(CallbackPath, s.handleCallback)

	s.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("callback server stopped unexpectedly")
		}
	}()

	log.Info().
		Str("platform", platform).
		Str("addr", listener.Addr().String()).
		Msg("callback server listening")

	return s, nil
}

// RedirectURI returns the redirect_uri to register with the provider.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://%s%s", s.listener.Addr().String(), CallbackPath)
}

// Shutdown stops the listener.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errCode := query.Get("error"); errCode != "" {
		s.launcher.Deliver(Message{
			Platform:     s.platform,
			Success:      false,
			ErrorCode:    errCode,
			ErrorMessage: query.Get("error_description"),
		})
		writeCompletionPage(w, http.StatusOK, "Authorization failed", "The provider reported: "+errCode)
		return
	}

	code := query.Get("code")
	if code == "" {
		writeCompletionPage(w, http.StatusBadRequest, "Invalid callback", "Missing code parameter.")
		return
	}

	accepted := s.launcher.Deliver(Message{
		Platform: s.platform,
		Success:  true,
		Code:     code,
		State:    query.Get("state"),
	})
	if !accepted {
		writeCompletionPage(w, http.StatusConflict, "No pending authorization", "This callback does not belong to a pending authorization attempt.")
		return
	}

	writeCompletionPage(w, http.StatusOK, "Authorization complete", "You can close this window and return to the application.")
}

func writeCompletionPage(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>%s</title></head><body><h1>%s</h1><p>%s</p></body></html>", title, title, detail)
}
