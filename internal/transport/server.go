package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"mediawire/internal/protocol"
)

// Handler processes one decoded inbound message. A nil response means the
// message needs no reply (notifications).
type Handler interface {
	Handle(ctx context.Context, msg protocol.Message) (protocol.Message, error)
}

type Config struct {
	Network        string
	Address        string
	UnixSocketPath string
	MaxInflight    int
	QueueLimit     int
	Workers        int
	TLSConfig      *tls.Config
}

// Server accepts connections, decodes framed envelopes through the codec,
// and dispatches typed messages to the handler. Responses are dumped and
// framed back on the same connection.
type Server struct {
	cfg     Config
	codec   *protocol.Codec
	handler Handler
	log     zerolog.Logger
	ln      net.Listener
	addr    atomic.Value
	queue   chan task
	done    chan struct{}
	closed  atomic.Bool
	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
}

type task struct {
	ctx  context.Context
	msg  protocol.Message
	conn *connection
}

type connection struct {
	c        net.Conn
	writerQ  chan []byte
	done     chan struct{}
	inflight chan struct{}
}

func NewServer(cfg Config, codec *protocol.Codec, handler Handler, log zerolog.Logger) *Server {
	if cfg.MaxInflight <= 0 {
		cfg.MaxInflight = 64
	}
	if cfg.QueueLimit <= 0 {
		cfg.QueueLimit = 4096
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.Network == "" {
		cfg.Network = "tcp"
	}
	return &Server{
		cfg:     cfg,
		codec:   codec,
		handler: handler,
		log:     log,
		queue:   make(chan task, cfg.QueueLimit),
		done:    make(chan struct{}),
		conns:   make(map[net.Conn]struct{}),
	}
}

func (s *Server) Addr() string {
	if v := s.addr.Load(); v != nil {
		return v.(string)
	}
	return ""
}

func (s *Server) Start(ctx context.Context) error {
	addr := s.cfg.Address
	if s.cfg.Network == "unix" {
		addr = s.cfg.UnixSocketPath
	}
	ln, err := net.Listen(s.cfg.Network, addr)
	if err != nil {
		return err
	}
	if s.cfg.TLSConfig != nil {
		ln = tls.NewListener(ln, s.cfg.TLSConfig)
	}
	s.ln = ln
	s.addr.Store(ln.Addr().String())
	s.log.Info().Str("addr", ln.Addr().String()).Msg("transport listening")

	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.runWorker()
	}
	go func() { <-ctx.Done(); _ = s.Close() }()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Temporary() {
				continue
			}
			return err
		}
		s.handleConn(ctx, conn)
	}
}

func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.ln != nil {
		_ = s.ln.Close()
	}
	close(s.done)
	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

func (s *Server) handleConn(ctx context.Context, raw net.Conn) {
	conn := &connection{
		c:        raw,
		writerQ:  make(chan []byte, 256),
		done:     make(chan struct{}),
		inflight: make(chan struct{}, s.cfg.MaxInflight),
	}
	s.mu.Lock()
	s.conns[raw] = struct{}{}
	s.mu.Unlock()
	s.wg.Add(2)
	go func() { defer s.wg.Done(); s.writeLoop(conn) }()
	go func() {
		defer s.wg.Done()
		defer func() {
			close(conn.done)
			_ = raw.Close()
			s.mu.Lock()
			delete(s.conns, raw)
			s.mu.Unlock()
		}()
		s.readLoop(ctx, conn)
	}()
}

func (s *Server) writeLoop(conn *connection) {
	w := bufio.NewWriter(conn.c)
	for {
		select {
		case buf := <-conn.writerQ:
			if err := WriteFrame(w, buf); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		case <-conn.done:
			return
		}
	}
}

func (s *Server) readLoop(ctx context.Context, conn *connection) {
	r := bufio.NewReader(conn.c)
	for {
		payload, err := ReadFrame(r)
		if err != nil {
			return
		}
		msg, err := s.codec.DecodeMessage(payload)
		if err != nil {
			// The protocol has no error kind; bad frames are logged and
			// dropped, the peer correlates by seq and times out.
			s.log.Warn().Err(err).Msg("drop undecodable frame")
			continue
		}

		select {
		case conn.inflight <- struct{}{}:
		default:
			s.log.Warn().Str("kind", msg.Kind()).Msg("drop: connection inflight limit exceeded")
			continue
		}
		select {
		case s.queue <- task{ctx: ctx, msg: msg, conn: conn}:
		case <-s.done:
			return
		default:
			<-conn.inflight
			s.log.Warn().Str("kind", msg.Kind()).Msg("drop: server queue overloaded")
		}
	}
}

func (s *Server) runWorker() {
	defer s.wg.Done()
	for {
		var t task
		select {
		case t = <-s.queue:
		case <-s.done:
			return
		}
		res, err := s.handler.Handle(t.ctx, t.msg)
		<-t.conn.inflight
		if err != nil {
			s.log.Error().Err(err).Str("kind", t.msg.Kind()).Msg("handler failed")
			continue
		}
		if res == nil {
			continue
		}
		buf, err := s.codec.Dump(res)
		if err != nil {
			s.log.Error().Err(err).Str("kind", res.Kind()).Msg("encode response failed")
			continue
		}
		select {
		case t.conn.writerQ <- buf:
		case <-t.conn.done:
		default:
			s.log.Warn().Str("kind", res.Kind()).Msg("drop: writer queue full")
		}
	}
}
