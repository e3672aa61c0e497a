// Copyright 2024 The go-agentmemory Authors
// This file is part of the go-agentmemory library.
//
// The go-agentmemory library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-agentmemory library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-agentmemory library. If not, see <http://www.gnu.org/licenses/>.

package ledgerapi

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/agentmemory/go-agentmemory/core/types"
	mapset "github.com/deckarep/golang-set"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	subscriberBuffer = 256
	wsWriteTimeout   = 10 * time.Second
	wsPingInterval   = 30 * time.Second
	wsReadLimit      = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// subscriber is a websocket client receiving ledger events.
type subscriber struct {
	id    string
	conn  *websocket.Conn
	kinds mapset.Set // empty set matches every kind
	send  chan *EventMessage
	once  sync.Once
	done  chan struct{}
}

func (s *subscriber) wants(kind types.EventKind) bool {
	return s.kinds.Cardinality() == 0 || s.kinds.Contains(kind)
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// hub fans committed receipts out to websocket subscribers.
type hub struct {
	backend Backend

	mu   sync.Mutex
	subs map[string]*subscriber
	quit chan struct{}
	wg   sync.WaitGroup

	startOnce sync.Once
	closeOnce sync.Once
}

func newHub(backend Backend) *hub {
	return &hub{
		backend: backend,
		subs:    make(map[string]*subscriber),
		quit:    make(chan struct{}),
	}
}

// start subscribes to the backend on first use. The subscription is
// live when start returns.
func (h *hub) start() {
	h.startOnce.Do(func() {
		receipts := make(chan *types.Receipt, subscriberBuffer)
		sub := h.backend.SubscribeReceipts(receipts)
		h.wg.Add(1)
		go h.loop(receipts, sub)
	})
}

func (h *hub) loop(receipts chan *types.Receipt, sub event.Subscription) {
	defer h.wg.Done()
	defer sub.Unsubscribe()

	for {
		select {
		case receipt := <-receipts:
			h.broadcast(receipt)
		case err := <-sub.Err():
			if err != nil {
				log.Warn("Receipt subscription failed", "err", err)
			}
			return
		case <-h.quit:
			return
		}
	}
}

func (h *hub) broadcast(receipt *types.Receipt) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ev := range receipt.Events {
		for id, s := range h.subs {
			if !s.wants(ev.Kind) {
				continue
			}
			select {
			case s.send <- &EventMessage{Subscription: id, Event: ev}:
			default:
				log.Debug("Dropping slow event subscriber", "id", id)
				delete(h.subs, id)
				s.stop()
			}
		}
	}
}

func (h *hub) add(s *subscriber) {
	h.mu.Lock()
	h.subs[s.id] = s
	h.mu.Unlock()
}

func (h *hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s.id)
	h.mu.Unlock()
	s.stop()
}

// count returns the number of live subscribers.
func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *hub) close() {
	h.closeOnce.Do(func() {
		close(h.quit)
		h.mu.Lock()
		for id, s := range h.subs {
			delete(h.subs, id)
			s.stop()
		}
		h.mu.Unlock()
	})
	h.wg.Wait()
}

// parseKinds parses a comma separated list of event names.
func parseKinds(list string) (mapset.Set, error) {
	kinds := mapset.NewSet()
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		kind, err := types.ParseEventKind(name)
		if err != nil {
			return nil, fmt.Errorf("invalid event kind %q", name)
		}
		kinds.Add(kind)
	}
	return kinds, nil
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	kinds, err := parseKinds(r.URL.Query().Get("kinds"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	// Register before the handshake completes so that no event committed
	// after the client sees the upgrade is missed.
	sub := &subscriber{
		id:    uuid.New().String(),
		kinds: kinds,
		send:  make(chan *EventMessage, subscriberBuffer),
		done:  make(chan struct{}),
	}
	s.hub.start()
	s.hub.add(sub)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("Websocket upgrade failed", "err", err)
		s.hub.remove(sub)
		return
	}
	sub.conn = conn
	log.Debug("Event subscriber connected", "id", sub.id, "kinds", kinds.Cardinality())

	go s.readPump(sub)
	s.writePump(sub)
}

// readPump drains client frames so control messages are processed and
// disconnects are noticed.
func (s *Server) readPump(sub *subscriber) {
	sub.conn.SetReadLimit(wsReadLimit)
	for {
		if _, _, err := sub.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("Event subscriber read failed", "id", sub.id, "err", err)
			}
			s.hub.remove(sub)
			return
		}
	}
}

func (s *Server) writePump(sub *subscriber) {
	ping := time.NewTicker(wsPingInterval)
	defer func() {
		ping.Stop()
		s.hub.remove(sub)
		sub.conn.Close()
		log.Debug("Event subscriber disconnected", "id", sub.id)
	}()

	for {
		select {
		case msg := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := sub.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ping.C:
			sub.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sub.done:
			sub.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
