package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"trade_go/internal/domain"
	"trade_go/internal/infra"
)

const (
	maxRetries   = 10
	readTimeout  = 60 * time.Second
	quoteTTL     = 5 * time.Second
	dialTimeout  = 10 * time.Second
	subscribeMsg = "subscribe"
)

// quoteMessage is one top-of-book update pushed by the gateway.
type quoteMessage struct {
	Event string          `json:"event"`
	Figi  string          `json:"figi"`
	Bid   decimal.Decimal `json:"bid"`
	Ask   decimal.Decimal `json:"ask"`
}

type cachedQuote struct {
	book domain.OrderBook
	at   time.Time
}

// Stream keeps a websocket subscription to the gateway's quote feed and
// caches top-of-book per figi. Entries older than quoteTTL are treated
// as missing so callers fall back to REST.
type Stream struct {
	wsURL  string
	token  string
	logger *slog.Logger

	mu      sync.RWMutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	figis   map[string]struct{}
	quotes  map[string]cachedQuote

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewStream(wsURL, token string, logger *slog.Logger) *Stream {
	return &Stream{
		wsURL:  wsURL,
		token:  token,
		logger: logger,
		figis:  make(map[string]struct{}),
		quotes: make(map[string]cachedQuote),
	}
}

// Book returns the cached top of book for figi if it is fresh.
func (s *Stream) Book(figi string) (domain.OrderBook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[figi]
	if !ok || time.Since(q.at) > quoteTTL {
		return domain.OrderBook{}, false
	}
	return q.book, true
}

// Subscribe adds figis to the subscription set. Safe to call before and
// after Connect; a live connection gets the delta pushed immediately.
func (s *Stream) Subscribe(figis ...string) {
	s.mu.Lock()
	for _, f := range figis {
		s.figis[f] = struct{}{}
	}
	connected := s.conn != nil
	s.mu.Unlock()
	if connected {
		if err := s.sendSubscription(); err != nil {
			s.logger.Warn("subscribe push failed", "error", err)
		}
	}
}

// Connect starts the connection loop in the background.
func (s *Stream) Connect(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.connectionLoop(ctx)
}

func (s *Stream) connectionLoop(ctx context.Context) {
	defer s.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.connect(ctx); err != nil {
			s.logger.Warn("quote stream connect failed", "error", err, "retry", retryCount)
			delay := infra.CalculateBackoff(retryCount)
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		} else {
			retryCount = 0
			s.readLoop(ctx)
		}
	}
}

func (s *Stream) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	header := make(http.Header)
	header.Set("Authorization", "Bearer "+s.token)

	conn, _, err := dialer.DialContext(ctx, s.wsURL, header)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	if err := s.sendSubscription(); err != nil {
		s.closeConnection()
		return err
	}

	s.logger.Info("quote stream connected", "subs", len(s.figis))
	return nil
}

func (s *Stream) sendSubscription() error {
	s.mu.RLock()
	figis := make([]string, 0, len(s.figis))
	for f := range s.figis {
		figis = append(figis, f)
	}
	s.mu.RUnlock()
	if len(figis) == 0 {
		return nil
	}

	msg := map[string]any{"action": subscribeMsg, "figis": figis}
	b, _ := json.Marshal(msg)
	return s.threadSafeWrite(websocket.TextMessage, b)
}

func (s *Stream) threadSafeWrite(msgType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return fmt.Errorf("no conn")
	}
	return s.conn.WriteMessage(msgType, data)
}

func (s *Stream) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			s.closeConnection()
			return
		}
		s.handleMessage(msg)
	}
}

func (s *Stream) handleMessage(msg []byte) {
	var q quoteMessage
	if json.Unmarshal(msg, &q) != nil || q.Event != "quote" || q.Figi == "" {
		return
	}
	s.mu.Lock()
	s.quotes[q.Figi] = cachedQuote{
		book: domain.OrderBook{Figi: q.Figi, Bid: q.Bid, Ask: q.Ask},
		at:   time.Now(),
	}
	s.mu.Unlock()
}

func (s *Stream) closeConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *Stream) Disconnect() {
	if s.cancel != nil {
		s.cancel()
	}
	s.closeConnection()
	s.wg.Wait()
}
