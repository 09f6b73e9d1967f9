package listener

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pixil98/go-log"
)

type WebsocketListener struct {
	port uint16
	path string
	cm   *ConnectionManager
}

func NewWebsocketListener(port uint16, path string, cm *ConnectionManager) *WebsocketListener {
	if path == "" {
		path = "/ws"
	}
	return &WebsocketListener{
		port: port,
		path: path,
		cm:   cm,
	}
}

func (l *WebsocketListener) Start(ctx context.Context) error {
	connCtx, cancelConns := context.WithCancel(log.SetLogger(context.Background(), log.GetLogger(ctx)))
	var wg sync.WaitGroup

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		// The protocol carries no cookies or ambient credentials, so
		// cross-origin browser clients are acceptable.
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc(l.path, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.ErrorContext(r.Context(), "upgrading websocket", "remote", r.RemoteAddr, "error", err)
			return
		}

		wg.Add(1)
		defer wg.Done()
		defer conn.Close()

		slog.InfoContext(connCtx, "websocket connection established", "remote", r.RemoteAddr)
		l.cm.AcceptConnection(connCtx, newWsReadWriter(conn))
	})

	svr := &http.Server{
		Addr:    fmt.Sprintf(":%d", l.port),
		Handler: mux,
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			svr.Shutdown(shutdownCtx)
			cancelConns()
			wg.Wait()
		case <-done:
		}
	}()

	slog.InfoContext(ctx, "listening for websocket", "port", l.port, "path", l.path)

	err := svr.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if errors.Is(err, syscall.EADDRINUSE) {
		return fmt.Errorf("port %d is already in use (another server running?)", l.port)
	}
	return fmt.Errorf("serving websocket on port %d: %w", l.port, err)
}

// wsReadWriter adapts a websocket connection to the newline-delimited
// io.ReadWriter the session loop expects: each text frame reads as one
// line, and each written line goes out as one text frame.
type wsReadWriter struct {
	conn *websocket.Conn
	buf  bytes.Buffer
}

func newWsReadWriter(conn *websocket.Conn) *wsReadWriter {
	return &wsReadWriter{conn: conn}
}

func (w *wsReadWriter) Read(p []byte) (int, error) {
	for w.buf.Len() == 0 {
		mt, data, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			}
			var netErr net.Error
			if errors.As(err, &netErr) {
				return 0, err
			}
			return 0, io.EOF
		}
		if mt != websocket.TextMessage {
			continue
		}
		w.buf.Write(data)
		if len(data) == 0 || data[len(data)-1] != '\n' {
			w.buf.WriteByte('\n')
		}
	}
	return w.buf.Read(p)
}

func (w *wsReadWriter) Write(p []byte) (int, error) {
	// Outbound payloads arrive one encoded message at a time with a
	// trailing newline; the frame boundary replaces it.
	frame := bytes.TrimSuffix(p, []byte("\n"))
	if err := w.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return 0, err
	}
	return len(p), nil
}
