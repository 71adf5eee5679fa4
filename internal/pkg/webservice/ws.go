package webservice

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// WsConn is the required part of a websocket connection
type WsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	WriteJSON(v interface{}) error
}

// WSConnKeeper tracks open subscriber connections by call ID.
// A client subscribes by sending the call ID as a text frame,
// sending another ID moves the connection to the new call.
type WSConnKeeper struct {
	idConns map[string]map[WsConn]struct{}
	connIDs map[WsConn]string
	lock    *sync.Mutex
	timeout time.Duration
}

// NewWSConnKeeper creates the connection manager
func NewWSConnKeeper() *WSConnKeeper {
	res := &WSConnKeeper{}
	res.idConns = make(map[string]map[WsConn]struct{})
	res.connIDs = make(map[WsConn]string)
	res.lock = &sync.Mutex{}
	res.timeout = time.Minute * 30 // drop idle subscribers after this
	return res
}

// HandleConnection loops until the connection dies or idles out
func (kp *WSConnKeeper) HandleConnection(conn WsConn) error {
	defer kp.deleteConnection(conn)
	defer conn.Close()
	readCh := make(chan string)
	go func() {
		defer close(readCh)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Msg("ws read ended")
				return
			}
			msg := strings.TrimSpace(string(message))
			if msg != "" {
				readCh <- msg
			}
		}
	}()

	ta := time.After(kp.timeout)
loop:
	for {
		select {
		case <-ta:
			log.Debug().Msg("ws conn timeout")
			break loop
		case msg, ok := <-readCh:
			if !ok {
				break loop
			}
			kp.saveConnection(conn, msg)
			ta = time.After(kp.timeout)
		}
	}
	return nil
}

func (kp *WSConnKeeper) deleteConnection(conn WsConn) {
	kp.lock.Lock()
	defer kp.lock.Unlock()
	kp.deleteConnectionNoSync(conn)
}

func (kp *WSConnKeeper) deleteConnectionNoSync(conn WsConn) {
	id, found := kp.connIDs[conn]
	if found {
		conns, found := kp.idConns[id]
		if found {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(kp.idConns, id)
			}
		}
	}
	delete(kp.connIDs, conn)
	log.Debug().Int("active", len(kp.connIDs)).Msg("ws conn dropped")
}

func (kp *WSConnKeeper) saveConnection(conn WsConn, id string) {
	log.Debug().Str("ID", id).Msg("ws subscribe")
	kp.lock.Lock()
	defer kp.lock.Unlock()
	kp.deleteConnectionNoSync(conn)
	kp.connIDs[conn] = id
	conns, found := kp.idConns[id]
	if !found {
		conns = map[WsConn]struct{}{}
		kp.idConns[id] = conns
	}
	conns[conn] = struct{}{}
}

// GetConnections returns subscriber connections for the call ID
func (kp *WSConnKeeper) GetConnections(id string) ([]WsConn, bool) {
	kp.lock.Lock()
	defer kp.lock.Unlock()
	cm, found := kp.idConns[id]
	if !found {
		return nil, false
	}
	res := make([]WsConn, 0, len(cm))
	for c := range cm {
		res = append(res, c)
	}
	return res, true
}
