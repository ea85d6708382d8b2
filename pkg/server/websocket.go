package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/inkwell-dev/inkwell/pkg/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browser clients connect from the notebook origin served by this
	// process; cross-origin policy is enforced upstream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const readLimit = protocol.MaxPayloadSize + protocol.FrameHeaderSize

// websocketDial opens a client connection, used for the kernel link.
func websocketDial(url string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	return dialer.Dial(url, nil)
}

// readLoop pulls binary messages off the connection, decodes them and
// queues them for the event loop. It returns when the connection dies.
func (s *Session) readLoop() {
	defer s.Close()
	s.conn.SetReadLimit(int64(readLimit))
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "err", err)
			}
			return
		}
		s.touch()
		if kind != websocket.BinaryMessage {
			s.logger.Debug("ignoring non-binary message", "kind", kind)
			continue
		}
		if s.metrics != nil {
			s.metrics.BytesReceived.Add(float64(len(data)))
		}
		f, err := protocol.DecodeFrame(data)
		if err != nil {
			s.logger.Warn("undecodable frame from client", "err", err)
			s.sendError(protocol.ErrCodeInvalidFrame, err.Error())
			continue
		}
		select {
		case s.events <- f:
		default:
			if s.metrics != nil {
				s.metrics.DroppedFrames.Inc()
			}
			s.logger.Warn("event queue full, frame dropped", "type", f.Type.String())
			s.sendError(protocol.ErrCodeQueueFull, f.Type.String())
		}
	}
}
