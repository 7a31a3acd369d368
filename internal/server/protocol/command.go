// Package protocol defines the line-oriented wire protocol: command
// parsing for both session phases and the framing of server replies.
// Parsing is done once at the state-machine boundary so routing logic
// never touches raw strings.
package protocol

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fastchat/internal/common"
)

// Kind tags a parsed command.
type Kind int

const (
	// KindNoop is an empty or whitespace-only line; ignored.
	KindNoop Kind = iota

	// Authentication-phase commands.
	KindRegister
	KindLogin
	KindStoreKey

	// Chat-phase commands.
	KindExit
	KindWho
	KindDirect
	KindBroadcast
)

// Command is one parsed input line. Which fields are set depends on Kind.
type Command struct {
	Kind Kind

	// Register/Login/StoreKey
	Username  string
	Password  string
	PublicKey string // base64

	// Direct
	Target string

	// Direct payload or broadcast text
	Text string
}

// ParseAuth parses a line received while the session is authenticating.
// Grammar:
//
//	register <user> <pass>
//	login <user> <pass>
//	storekey <user> <pubkey-b64>
//
// Malformed lines yield common.ErrProtocol with a usage hint; the session
// stays in the authenticating state.
func ParseAuth(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{Kind: KindNoop}, nil
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "register", "login":
		if len(fields) != 3 {
			return Command{}, fmt.Errorf("%w: usage: %s <user> <pass>", common.ErrProtocol, fields[0])
		}
		kind := KindRegister
		if fields[0] == "login" {
			kind = KindLogin
		}
		return Command{Kind: kind, Username: fields[1], Password: fields[2]}, nil

	case "storekey":
		if len(fields) != 3 {
			return Command{}, fmt.Errorf("%w: usage: storekey <user> <pubkey-b64>", common.ErrProtocol)
		}
		return Command{Kind: KindStoreKey, Username: fields[1], PublicKey: fields[2]}, nil

	default:
		return Command{}, fmt.Errorf("%w: please register or login first", common.ErrProtocol)
	}
}

// ParseChat parses a line received while the session is chatting.
// Grammar:
//
//	/exit
//	/who
//	@<user> <text>
//	<free text>        (broadcast)
func ParseChat(line string) (Command, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Command{Kind: KindNoop}, nil
	}

	switch {
	case trimmed == "/exit":
		return Command{Kind: KindExit}, nil

	case trimmed == "/who":
		return Command{Kind: KindWho}, nil

	case strings.HasPrefix(trimmed, "/"):
		return Command{}, fmt.Errorf("%w: unknown command %s", common.ErrProtocol, firstField(trimmed))

	case strings.HasPrefix(trimmed, "@"):
		target, text, ok := strings.Cut(trimmed[1:], " ")
		if !ok || target == "" || text == "" {
			return Command{}, fmt.Errorf("%w: usage: @<user> <text>", common.ErrProtocol)
		}
		return Command{Kind: KindDirect, Target: target, Text: text}, nil

	default:
		return Command{Kind: KindBroadcast, Text: trimmed}, nil
	}
}

func firstField(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
