// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// PasswordEnv names the environment variable holding the WebSocket password.
const PasswordEnv = "STAGG_PASSWORD"

// Dialer opens the byte stream to a relay gateway.
type Dialer func(ctx context.Context) (io.ReadWriteCloser, error)

// SerialConn wraps a serial port
type SerialConn struct {
	port serial.Port
}

func (s *SerialConn) Read(p []byte) (int, error)  { return s.port.Read(p) }
func (s *SerialConn) Write(p []byte) (int, error) { return s.port.Write(p) }
func (s *SerialConn) Close() error                { return s.port.Close() }

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("gateway: websocket connection closed")

// WebSocketConn carries relay frames in binary WebSocket messages.
type WebSocketConn struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool
}

func (w *WebSocketConn) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}

	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			return 0, err
		}
		// Text messages are gateway chatter, not frames
		if messageType != websocket.BinaryMessage {
			continue
		}

		w.buf = data
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *WebSocketConn) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConn) Close() error {
	return w.conn.Close()
}

// SerialDialer returns a Dialer for a relay attached to a serial port.
func SerialDialer(portName string, baudRate int) Dialer {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		mode := &serial.Mode{
			BaudRate: baudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
		port, err := serial.Open(portName, mode)
		if err != nil {
			return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
		}
		return &SerialConn{port: port}, nil
	}
}

// WebSocketDialer returns a Dialer for a relay reachable over WebSocket,
// authenticating with HTTP Basic auth when username is set.
func WebSocketDialer(wsURL, username, password string, skipSSLVerify bool) (Dialer, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
		if err != nil {
			if resp != nil {
				return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
			}
			return nil, fmt.Errorf("WebSocket connection failed: %w", err)
		}
		return &WebSocketConn{conn: conn}, nil
	}, nil
}

// GetPassword retrieves the WebSocket password from PasswordEnv or prompts
// for it on the terminal.
func GetPassword() (string, error) {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Not a terminal, read a plain line
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}
