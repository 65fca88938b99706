// Package launcher drives the interactive half of an authorization-code
// flow: it presents the authorization URL on a Window, awaits the typed
// completion Message for the initiating provider, enforces a deadline and a
// manual-closure poll, and settles exactly once per attempt.
package launcher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/saleslink/oauthflow/oauthclient"
)

// Flow states of one interactive attempt.
type State int

const (
	StateIdle State = iota
	StateRequested
	StateAwaitingCallback
	StateApproved
	StateDenied
	StateTimedOut
	StateUserCancelled
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequested:
		return "requested"
	case StateAwaitingCallback:
		return "awaiting_callback"
	case StateApproved:
		return "approved"
	case StateDenied:
		return "denied"
	case StateTimedOut:
		return "timed_out"
	case StateUserCancelled:
		return "user_cancelled"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

const (
	// DefaultTimeout is how long a pending attempt may await its callback
	// before being force-closed.
	DefaultTimeout = 5 * time.Minute
	// DefaultPollInterval is how often the window is polled for manual
	// closure while a callback is awaited.
	DefaultPollInterval = 500 * time.Millisecond
)

// Launcher runs interactive authorization attempts for one client. An
// instance handles one attempt at a time; the client's attempt store
// guarantees a second attempt invalidates the first's callback.
type Launcher struct {
	client       *oauthclient.Client
	window       Window
	timeout      time.Duration
	pollInterval time.Duration

	messages chan Message

	mu    sync.Mutex
	state State
}

// Option modifies a Launcher instance.
type Option func(*Launcher)

// WithWindow replaces the default system-browser window.
func WithWindow(window Window) Option {
	return func(l *Launcher) {
		l.window = window
	}
}

// WithTimeout overrides the attempt deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(l *Launcher) {
		l.timeout = timeout
	}
}

// WithPollInterval overrides the manual-closure poll interval.
func WithPollInterval(interval time.Duration) Option {
	return func(l *Launcher) {
		l.pollInterval = interval
	}
}

// New creates a Launcher for a client.
func New(client *oauthclient.Client, options ...Option) *Launcher {
	l := &Launcher{
		client:       client,
		window:       NewBrowserWindow(),
		timeout:      DefaultTimeout,
		pollInterval: DefaultPollInterval,
		messages:     make(chan Message, 1),
		state:        StateIdle,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// State returns the launcher's current flow state.
func (l *Launcher) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Launcher) setState(state State) {
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
}

// Deliver hands a completion message to the awaiting attempt. Messages
// arriving while no attempt awaits a callback are dropped, so a late
// callback can never settle a finished attempt a second time. Reports
// whether the message was accepted.
func (l *Launcher) Deliver(msg Message) bool {
	if l.State() != StateAwaitingCallback {
		log.Debug().
			Str("platform", msg.Platform).
			Msg("dropping completion message: no attempt awaiting callback")
		return false
	}
	select {
	case l.messages <- msg:
		return true
	default:
		return false
	}
}

// Authorize runs one interactive attempt end to end: build the authorization
// URL, present it, await the completion message, and redeem the code.
// Exactly one of approval, denial, timeout, cancellation, or popup_blocked is
// observed, and the window, poll, and timer never outlive the attempt.
func (l *Launcher) Authorize(ctx context.Context, opts oauthclient.AuthorizeOptions) (*oauthclient.Result, error) {
	defer l.setState(StateClosed)
	l.setState(StateRequested)

	request, err := l.client.BuildAuthorizationURL(opts)
	if err != nil {
		return nil, err
	}

	l.drainStaleMessages()

	if err := l.window.Open(request.URL); err != nil {
		// No listener, poll, or timer was installed.
		l.client.Reset()
		return nil, oauthclient.NewError(oauthclient.CodePopupBlocked, "authorization window could not be opened: "+err.Error())
	}

	l.setState(StateAwaitingCallback)
	log.Info().
		Str("provider", l.client.Provider().Name).
		Str("state", request.State).
		Msg("awaiting authorization callback")

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()
	poll := time.NewTicker(l.pollInterval)
	defer poll.Stop()

	for {
		select {
		case msg := <-l.messages:
			if msg.Platform != l.client.Provider().Name {
				log.Debug().
					Str("platform", msg.Platform).
					Str("provider", l.client.Provider().Name).
					Msg("discarding completion message for a different platform")
				continue
			}
			return l.settle(ctx, msg, opts)

		case <-poll.C:
			if l.window.Closed() {
				l.setState(StateUserCancelled)
				l.client.Reset()
				return nil, oauthclient.NewError(oauthclient.CodeUserCancelled, "authorization window was closed before completion")
			}

		case <-timer.C:
			l.window.Close()
			l.setState(StateTimedOut)
			l.client.Reset()
			return nil, oauthclient.NewError(oauthclient.CodeTimeout, "no authorization callback arrived before the deadline")

		case <-ctx.Done():
			l.window.Close()
			l.setState(StateUserCancelled)
			l.client.Reset()
			return nil, oauthclient.NewError(oauthclient.CodeUserCancelled, "authorization attempt abandoned: "+ctx.Err().Error())
		}
	}
}

// settle turns the first matching completion message into the attempt's
// single outcome.
func (l *Launcher) settle(ctx context.Context, msg Message, opts oauthclient.AuthorizeOptions) (*oauthclient.Result, error) {
	if !msg.Success {
		l.setState(StateDenied)
		l.client.Reset()
		code := msg.ErrorCode
		if code == "" {
			code = "access_denied"
		}
		return nil, oauthclient.NewError(oauthclient.Code(code), msg.ErrorMessage)
	}

	if msg.AccessToken != "" {
		// The callback already completed the exchange elsewhere.
		l.setState(StateApproved)
		l.client.Reset()
		return &oauthclient.Result{
			AccessToken:  msg.AccessToken,
			RefreshToken: msg.RefreshToken,
			UserID:       msg.UserID,
			ExpiresIn:    msg.ExpiresIn,
		}, nil
	}

	if msg.Code == "" {
		l.setState(StateDenied)
		l.client.Reset()
		return nil, oauthclient.NewError(oauthclient.CodeException, "completion message carried neither tokens nor an authorization code")
	}

	usePKCE := opts.UsePKCE || l.client.Provider().RequirePKCE
	result, err := l.client.ExchangeCode(ctx, msg.Code, msg.State, usePKCE)
	if err != nil {
		l.setState(StateDenied)
		return nil, err
	}
	l.setState(StateApproved)
	return result, nil
}

// drainStaleMessages discards completions buffered by an earlier attempt.
func (l *Launcher) drainStaleMessages() {
	for {
		select {
		case <-l.messages:
		default:
			return
		}
	}
}
