package chat

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/fastchat/internal/common"
	"github.com/dmitrijs2005/fastchat/internal/logging"
	"github.com/dmitrijs2005/fastchat/internal/server/auth"
	"github.com/dmitrijs2005/fastchat/internal/server/protocol"
	"github.com/dmitrijs2005/fastchat/internal/server/registry"
)

// State is the lifecycle phase of one session.
type State int

const (
	StateConnected State = iota
	StateAuthenticating
	StateChatting
	StateClosed
)

// SessionParams bundles the collaborators a session needs.
type SessionParams struct {
	Auth     *auth.Service
	Registry *registry.Registry
	Router   *Router
	Logger   logging.Logger

	// MaxLineBytes bounds a single input line. A longer line fails the
	// read and closes the session; the protocol has no way to resync
	// mid-line, so this is treated as a transport error rather than
	// silently truncated.
	MaxLineBytes int

	// IdleTimeout bounds how long a read may block. Zero disables it.
	IdleTimeout time.Duration
}

// Session drives one connection through authentication and chat. Exactly
// one goroutine runs Run; the registry and router handle all cross-session
// interaction.
type Session struct {
	client *Client
	p      SessionParams
	logger logging.Logger

	state    State
	username string
}

func NewSession(client *Client, p SessionParams) *Session {
	return &Session{
		client: client,
		p:      p,
		logger: p.Logger.With("module", "session", "addr", client.RemoteAddr()),
	}
}

// State returns the current lifecycle phase.
func (s *Session) State() State { return s.state }

// Run executes the session until the peer disconnects, sends /exit, or
// ctx is cancelled. Cleanup (registry unregistration and connection
// release) happens exactly once, regardless of which path ended the
// session.
func (s *Session) Run(ctx context.Context) {
	defer s.close(ctx)

	// Cancellation must unblock the read loop promptly.
	go func() {
		select {
		case <-ctx.Done():
			s.client.Close()
		case <-s.client.done:
		}
	}()

	s.state = StateAuthenticating
	s.reply(protocol.System("Welcome! Commands: register <user> <pass> | login <user> <pass> | storekey <user> <pubkey-b64>"))

	scanner := bufio.NewScanner(s.client.conn)
	if s.p.MaxLineBytes > 0 {
		scanner.Buffer(make([]byte, 0, 4096), s.p.MaxLineBytes)
	}

	for {
		if s.p.IdleTimeout > 0 {
			_ = s.client.conn.SetReadDeadline(time.Now().Add(s.p.IdleTimeout))
		}
		if !scanner.Scan() {
			// EOF, transport error, or an oversized line.
			if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Debug(ctx, "read ended", "error", err)
			}
			return
		}

		switch s.state {
		case StateAuthenticating:
			s.handleAuthLine(ctx, scanner.Text())
		case StateChatting:
			if exit := s.handleChatLine(ctx, scanner.Text()); exit {
				return
			}
		}
	}
}

func (s *Session) close(ctx context.Context) {
	s.state = StateClosed

	if username, ok := s.p.Registry.Unregister(s.client); ok {
		s.p.Router.Notify(s.client, username+" left the chat")
		s.logger.Info(ctx, "session closed", "user", username)
	} else {
		s.logger.Debug(ctx, "unauthenticated session closed")
	}

	s.client.Close()
}

func (s *Session) handleAuthLine(ctx context.Context, line string) {
	cmd, err := protocol.ParseAuth(line)
	if err != nil {
		s.reply(protocol.System("%v", err))
		return
	}

	switch cmd.Kind {
	case protocol.KindNoop:

	case protocol.KindRegister:
		s.handleRegister(ctx, cmd)

	case protocol.KindLogin:
		s.handleLogin(ctx, cmd)

	case protocol.KindStoreKey:
		s.handleStoreKey(ctx, cmd)
	}
}

func (s *Session) handleRegister(ctx context.Context, cmd protocol.Command) {
	err := s.p.Auth.Register(ctx, cmd.Username, cmd.Password)
	switch {
	case errors.Is(err, common.ErrDuplicateUsername):
		s.reply(protocol.System("username %s is already taken", cmd.Username))
	case errors.Is(err, common.ErrProtocol):
		s.reply(protocol.System("%v", err))
	case err != nil:
		s.logger.Error(ctx, "registration failed", "error", err)
		s.reply(protocol.System("registration failed, try again later"))
	default:
		s.reply(protocol.System("Registered %s. Now log in with: login %s <pass>", cmd.Username, cmd.Username))
	}
}

func (s *Session) handleLogin(ctx context.Context, cmd protocol.Command) {
	if err := s.p.Auth.Authenticate(ctx, cmd.Username, cmd.Password); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.reply(protocol.System("invalid username or password"))
		} else {
			s.logger.Error(ctx, "authentication failed", "error", err)
			s.reply(protocol.System("login failed, try again later"))
		}
		return
	}

	if err := s.p.Registry.Register(s.client, cmd.Username); err != nil {
		if errors.Is(err, common.ErrUsernameOnline) {
			s.reply(protocol.System("user %s is already logged in elsewhere", cmd.Username))
		} else {
			s.logger.Error(ctx, "registry insert failed", "error", err)
			s.reply(protocol.System("login failed, try again later"))
		}
		return
	}

	s.username = cmd.Username
	s.state = StateChatting
	s.logger.Info(ctx, "user logged in", "user", s.username)

	s.reply(protocol.System("Login successful. Welcome %s", s.username))
	s.p.Router.Notify(s.client, s.username+" joined the chat")
}

func (s *Session) handleStoreKey(ctx context.Context, cmd protocol.Command) {
	err := s.p.Auth.StoreKey(ctx, cmd.Username, cmd.PublicKey)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		s.reply(protocol.System("unknown user %s", cmd.Username))
	case errors.Is(err, common.ErrProtocol):
		s.reply(protocol.System("%v", err))
	case err != nil:
		s.logger.Error(ctx, "storekey failed", "error", err)
		s.reply(protocol.System("storing key failed, try again later"))
	default:
		s.reply(protocol.System("Public key stored for %s", cmd.Username))
	}
}

// handleChatLine processes one chat-phase line and reports whether the
// session should end.
func (s *Session) handleChatLine(ctx context.Context, line string) bool {
	cmd, err := protocol.ParseChat(line)
	if err != nil {
		s.reply(protocol.System("%v", err))
		return false
	}

	switch cmd.Kind {
	case protocol.KindNoop:

	case protocol.KindExit:
		s.reply(protocol.System("Bye."))
		return true

	case protocol.KindWho:
		s.reply(protocol.System("online: %s", strings.Join(s.p.Registry.Usernames(), ", ")))

	case protocol.KindDirect:
		s.p.Router.Direct(ctx, s.username, s.client, cmd.Target, cmd.Text)

	case protocol.KindBroadcast:
		s.p.Router.Broadcast(ctx, s.username, s.client, cmd.Text)
	}

	return false
}

func (s *Session) reply(line string) {
	_ = s.client.Deliver(line)
}
