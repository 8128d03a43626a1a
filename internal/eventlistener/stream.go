// internal/eventlistener/stream.go
package eventlistener

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Stream serves decoded log records over a websocket. Query parameters:
// after (sequence to resume from), name (comma separated event names) and
// mint.
type Stream struct {
	listener *Listener
	logger   *zap.Logger
}

func NewStream(listener *Listener, logger *zap.Logger) *Stream {
	return &Stream{listener: listener, logger: logger.Named("stream")}
}

func parseQuery(r *http.Request) (uint64, Filter, error) {
	q := r.URL.Query()
	var (
		after  uint64
		filter Filter
		err    error
	)
	if v := q.Get("after"); v != "" {
		if after, err = strconv.ParseUint(v, 10, 64); err != nil {
			return 0, filter, err
		}
	}
	if v := q.Get("name"); v != "" {
		filter.Names = strings.Split(v, ",")
	}
	if v := q.Get("mint"); v != "" {
		if filter.Mint, err = solana.PublicKeyFromBase58(v); err != nil {
			return 0, filter, err
		}
	}
	return after, filter, nil
}

func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	after, filter, err := parseQuery(r)
	if err != nil {
		http.Error(w, "invalid stream query: "+err.Error(), http.StatusBadRequest)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// После hijack контекст запроса не видит отключение клиента, за ним
	// следит readLoop. Отмена базового контекста сервера по-прежнему доходит.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go s.readLoop(conn, cancel)

	s.logger.Debug("Stream client connected",
		zap.String("remote", r.RemoteAddr),
		zap.Uint64("after", after))

	err = s.listener.Run(ctx, after, filter, func(rec Record) error {
		payload, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return err
		}
		return wsutil.WriteServerMessage(conn, ws.OpText, payload)
	})
	if err != nil {
		s.logger.Debug("Stream closed", zap.String("remote", r.RemoteAddr), zap.Error(err))
	}
}

// readLoop drains client frames; any read error (including a close frame)
// ends the stream.
func (s *Stream) readLoop(conn net.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := wsutil.ReadClientData(conn); err != nil {
			return
		}
	}
}
