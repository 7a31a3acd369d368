// Package client implements the interactive terminal client: it keeps
// the TCP connection to the chat server, prompts for credentials,
// manages the local keypair, and transparently encrypts and decrypts
// private messages.
package client

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/term"

	"github.com/dmitrijs2005/fastchat/internal/client/config"
	"github.com/dmitrijs2005/fastchat/internal/common"
	"github.com/dmitrijs2005/fastchat/internal/e2e"
	"github.com/dmitrijs2005/fastchat/internal/keys"
	"github.com/dmitrijs2005/fastchat/internal/logging"
	"github.com/dmitrijs2005/fastchat/internal/server/protocol"
	"github.com/dmitrijs2005/fastchat/internal/server/repositories/users"
)

// test seams
var (
	readPassword = func() ([]byte, error) {
		return term.ReadPassword(int(os.Stdin.Fd()))
	}

	dial = func(addr string) (net.Conn, error) {
		return net.Dial("tcp", addr)
	}
)

// App is one interactive client instance. All server traffic is
// line-oriented; the read loop and the input loop run concurrently and
// share state under mu.
type App struct {
	cfg    *config.Config
	logger logging.Logger
	keys   *keys.Store
	dir    e2e.KeyDirectory
	db     *sql.DB

	out io.Writer

	mu              sync.Mutex
	conn            net.Conn
	session         *e2e.Session
	pendingRegister string
	pendingLogin    string
	username        string
}

// NewApp wires the client together. The key directory is the shared
// Postgres database: peer public keys are read from the same users table
// the server writes.
func NewApp(cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("opening key directory: %w", err)
	}

	return &App{
		cfg:    cfg,
		logger: logger,
		keys:   keys.NewStore(cfg.DataDir),
		dir:    users.NewPostgresRepository(db),
		db:     db,
		out:    os.Stdout,
	}, nil
}

// Run connects and serves the interactive loop until the user exits, the
// server disconnects, or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	conn, err := dial(a.cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", a.cfg.ServerAddr, err)
	}
	defer conn.Close()
	defer a.db.Close()

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()

	fmt.Fprintf(a.out, "Connected to chat server at %s\n", a.cfg.ServerAddr)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		a.readLoop(ctx, conn)
	}()

	a.inputLoop(ctx, os.Stdin, readerDone)
	return nil
}

// readLoop prints server lines, decrypting private messages and reacting
// to registration and login confirmations.
func (a *App) readLoop(ctx context.Context, conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		a.handleServerLine(ctx, scanner.Text())
	}
	fmt.Fprintln(a.out, "Disconnected from server.")
}

func (a *App) handleServerLine(ctx context.Context, line string) {
	if sender, payload, ok := protocol.SplitPMFrom(line); ok {
		a.printIncomingPM(ctx, sender, payload)
		return
	}

	fmt.Fprintln(a.out, line)

	switch {
	case strings.HasPrefix(line, protocol.SystemPrefix+"Registered "):
		a.uploadKey(ctx)
	case strings.HasPrefix(line, protocol.SystemPrefix+"Login successful. Welcome "):
		a.initSession(ctx)
	}
}

func (a *App) printIncomingPM(ctx context.Context, sender, payload string) {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()

	if session == nil {
		fmt.Fprintf(a.out, "[PM from %s] <encrypted; log in to read>\n", sender)
		return
	}

	ciphertext, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		fmt.Fprintf(a.out, "[PM from %s] <unreadable payload>\n", sender)
		return
	}

	plaintext, err := session.Decrypt(ctx, sender, ciphertext)
	if err != nil {
		fmt.Fprintf(a.out, "[PM from %s] <decryption failed>\n", sender)
		return
	}

	fmt.Fprintf(a.out, "[PM from %s] %s\n", sender, plaintext)
}

// uploadKey runs after a successful registration: it makes sure the
// local keypair exists and publishes the public half.
func (a *App) uploadKey(ctx context.Context) {
	a.mu.Lock()
	username := a.pendingRegister
	a.pendingRegister = ""
	conn := a.conn
	a.mu.Unlock()

	if username == "" || conn == nil {
		return
	}

	id, err := a.keys.Ensure(username)
	if err != nil {
		a.logger.Error(ctx, "preparing keypair failed", "error", err)
		return
	}

	fmt.Fprintf(conn, "storekey %s %s\n", username, id.PublicKeyBase64())
}

// initSession runs after a successful login: it loads the private key
// and prepares the E2E session backed by the key directory.
func (a *App) initSession(ctx context.Context) {
	a.mu.Lock()
	username := a.pendingLogin
	a.mu.Unlock()

	if username == "" {
		return
	}

	id, err := a.keys.Ensure(username)
	if err != nil {
		a.logger.Error(ctx, "loading keypair failed", "error", err)
		return
	}

	buf, err := id.OpenPrivateKey()
	if err != nil {
		a.logger.Error(ctx, "opening private key failed", "error", err)
		return
	}
	defer buf.Destroy()

	session, err := e2e.NewSession(buf.Bytes(), a.dir)
	if err != nil {
		a.logger.Error(ctx, "initializing encryption failed", "error", err)
		return
	}

	a.mu.Lock()
	a.session = session
	a.username = username
	a.mu.Unlock()
}

// inputLoop reads user lines until EOF, /exit, or server disconnect.
func (a *App) inputLoop(ctx context.Context, in io.Reader, readerDone <-chan struct{}) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readerDone:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-readerDone:
			return
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			exit, err := a.handleUserLine(ctx, line)
			if err != nil {
				fmt.Fprintf(a.out, "! %v\n", err)
			}
			if exit {
				return
			}
		}
	}
}

// handleUserLine translates one typed line into protocol traffic. It
// reports whether the client should exit.
func (a *App) handleUserLine(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "register", "login":
		return false, a.sendCredentials(fields)

	case "storekey":
		return false, a.send(line)

	case "/exit":
		_ = a.send("/exit")
		return true, nil
	}

	if strings.HasPrefix(line, "/") {
		return false, a.send(line)
	}

	if strings.HasPrefix(line, "@") {
		return false, a.sendPrivate(ctx, line)
	}

	return false, a.send(line)
}

// sendCredentials handles register and login. The password may be given
// inline; with only a username it is prompted for without echo.
func (a *App) sendCredentials(fields []string) error {
	if len(fields) != 2 && len(fields) != 3 {
		return fmt.Errorf("%w: usage: %s <user> [pass]", common.ErrProtocol, fields[0])
	}

	username := fields[1]
	var password string
	if len(fields) == 3 {
		password = fields[2]
	} else {
		fmt.Fprint(a.out, "Password: ")
		b, err := readPassword()
		fmt.Fprintln(a.out)
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		password = string(b)
		common.WipeByteArray(b)
	}

	a.mu.Lock()
	if fields[0] == "register" {
		a.pendingRegister = username
	} else {
		a.pendingLogin = username
	}
	a.mu.Unlock()

	return a.send(fmt.Sprintf("%s %s %s", fields[0], username, password))
}

// sendPrivate encrypts "@peer text" for the peer and ships it as base64.
func (a *App) sendPrivate(ctx context.Context, line string) error {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()

	if session == nil {
		return errors.New("log in first before sending private messages")
	}

	target, text, ok := strings.Cut(line[1:], " ")
	if !ok || target == "" || strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: usage: @<user> <text>", common.ErrProtocol)
	}

	ciphertext, err := session.Encrypt(ctx, target, []byte(text))
	if err != nil {
		if errors.Is(err, common.ErrUnknownPeerKey) {
			return fmt.Errorf("cannot send to %s: no published key", target)
		}
		return fmt.Errorf("cannot send to %s: %w", target, err)
	}

	payload := base64.StdEncoding.EncodeToString(ciphertext)
	return a.send("@" + target + " " + payload)
}

func (a *App) send(line string) error {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()

	if conn == nil {
		return errors.New("not connected")
	}
	_, err := fmt.Fprintf(conn, "%s\n", line)
	return err
}
