package server

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/itohio/rctrl/pkg/remote"
)

type connection struct {
	id   string
	ws   *websocket.Conn
	svc  *Service
	done chan struct{}
}

func (s *Service) handleStream(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("server: upgrade from %s failed: %v", c.Request.RemoteAddr, err)
		return
	}

	conn := &connection{
		id:   uuid.New().String(),
		ws:   ws,
		svc:  s,
		done: make(chan struct{}),
	}
	go conn.run()
}

func (c *connection) run() {
	c.svc.connections.Add(1)
	defer c.svc.connections.Add(-1)
	log.Printf("server: connection %s open from %s", c.id, c.ws.RemoteAddr())

	go c.readLoop()

	err := c.writeLoop()
	_ = c.ws.Close()
	<-c.done

	if err != nil {
		log.Print(err)
	}
	log.Printf("server: connection %s closed", c.id)
}

// readLoop relays commands until the peer goes away. Malformed messages are
// logged and skipped.
func (c *connection) readLoop() {
	defer close(c.done)

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("server: connection %s: read: %v", c.id, err)
			}
			return
		}

		if kind != websocket.BinaryMessage {
			log.Printf("server: connection %s: ignoring non-binary message", c.id)
			continue
		}

		cmd, err := remote.DecodeCommand(data)
		if err != nil {
			log.Printf("server: connection %s: %v", c.id, err)
			continue
		}
		c.svc.relay(cmd)
	}
}

// writeLoop sends the latest frame whenever it changes, starting with the
// current one if any.
func (c *connection) writeLoop() error {
	frame, version, changed := c.svc.latest.Load()
	if version > 0 {
		if err := c.send(frame); err != nil {
			return err
		}
	}

	for {
		select {
		case <-c.done:
			return nil
		case <-changed:
		}

		frame, changed = c.svc.latest.Get()
		if err := c.send(frame); err != nil {
			return err
		}
	}
}

func (c *connection) send(frame remote.DataFrame) error {
	if timeout := c.svc.cfg.WriteTimeout; timeout > 0 {
		if err := c.ws.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return &ConnectionError{ID: c.id, Op: "set deadline", Err: err}
		}
	}
	if err := c.ws.WriteMessage(websocket.BinaryMessage, remote.EncodeDataFrame(frame)); err != nil {
		return &ConnectionError{ID: c.id, Op: "write", Err: err}
	}
	return nil
}
