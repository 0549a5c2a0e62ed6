package network

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"linequery/internal/logger"
	"linequery/internal/types"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// drainWindow is how long the rest of an oversized burst is read and
// discarded before the next request is accepted.
const drainWindow = 50 * time.Millisecond

func (s *Server) handleConnection(conn net.Conn) {
	id := uuid.NewString()
	peer := conn.RemoteAddr().String()
	clientIP := peer
	if host, _, err := net.SplitHostPort(peer); err == nil {
		clientIP = host
	}

	ctx, cancel := context.WithCancel(s.ctx)
	defer func() {
		cancel()
		s.untrack(conn)
		if err := conn.Close(); err != nil && !isBenign(err) {
			logger.Debug("Error closing connection to %s: %v", peer, err)
		}
		logger.Info("Connection with %s closed.", peer)
	}()
	logger.Info("Accepted connection from %s (%s)", peer, id)

	var limiter *rate.Limiter
	if rl := s.opts.Server.RateLimit; rl.Enabled {
		limiter = rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), rl.Burst)
	}

	// One byte over the limit so an oversized read is detectable.
	buf := make([]byte, types.MaxPayload+1)
	for {
		if err := s.setIdleDeadline(conn); err != nil {
			return
		}
		n, err := conn.Read(buf)
		if n == 0 {
			s.logReadEnd(peer, err)
			return
		}
		start := time.Now()

		var query, resp string
		switch {
		case n > types.MaxPayload:
			s.drain(conn)
			resp = types.RespOversize
		case !utf8.Valid(buf[:n]):
			resp = types.RespBadUTF8
		default:
			query = normalize(buf[:n])
			if limiter != nil && !limiter.Allow() {
				resp = types.ErrorResponse("Rate limit exceeded.")
				break
			}
			resp = s.answer(ctx, query)
		}

		if _, err := io.WriteString(conn, resp+"\n"); err != nil {
			if !isBenign(err) {
				logger.Error("Write to %s failed: %v", peer, err)
			}
			return
		}

		elapsed := time.Since(start)
		if s.opts.Server.LogQueries {
			logger.Query(types.RequestContext{
				ConnID:   id,
				ClientIP: clientIP,
				Query:    query,
				Received: start,
			}, resp, elapsed)
		}
		logger.Debug("Handled %s: %q -> %q in %s", peer, query, resp, elapsed)
	}
}

// normalize decodes a request into a query: NUL bytes removed, then
// surrounding whitespace trimmed.
func normalize(raw []byte) string {
	return strings.TrimSpace(strings.ReplaceAll(string(raw), "\x00", ""))
}

func (s *Server) setIdleDeadline(conn net.Conn) error {
	if s.opts.Server.IdleTimeout <= 0 {
		return conn.SetReadDeadline(time.Time{})
	}
	return conn.SetReadDeadline(time.Now().Add(s.opts.Server.IdleTimeout))
}

// drain discards whatever remains of an oversized request that is already
// in flight.
func (s *Server) drain(conn net.Conn) {
	scratch := make([]byte, 4096)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(drainWindow)); err != nil {
			return
		}
		if _, err := conn.Read(scratch); err != nil {
			return
		}
	}
}

func (s *Server) logReadEnd(peer string, err error) {
	switch {
	case err == nil, errors.Is(err, io.EOF):
		logger.Info("Client %s disconnected.", peer)
	case errors.Is(err, os.ErrDeadlineExceeded):
		logger.Info("Client %s idle, closing.", peer)
	case isBenign(err):
		logger.Info("Client %s forcefully disconnected.", peer)
	default:
		logger.Error("Error handling client %s: %v", peer, err)
	}
}

// isBenign reports errors caused by the peer or by our own shutdown.
func isBenign(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrClosedPipe)
}
