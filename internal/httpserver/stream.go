package httpserver

import (
	"encoding/binary"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/LennoxSears/dulaan-backend-sub001/internal/audio"
	"github.com/LennoxSears/dulaan-backend-sub001/internal/session"
)

// Stream frame layout (binary websocket message):
//
//	bytes 0..3  uint32 LE sequence index
//	byte  4     flags: bit0 final chunk, bit1 opus payload
//	bytes 5..   audio payload (PCM16LE or one opus packet)
const (
	streamHeaderLen = 5
	flagFinal       = 1 << 0
	flagOpus        = 1 << 1
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	// the browser client is served from another origin in every deployment
	CheckOrigin: func(*http.Request) bool { return true },
}

// streamChunks accepts ordered audio frames over a websocket and answers each
// one with the coordinator's result. The socket read loop is the per-session
// ordering guarantee the pipeline assumes.
func (s *Server) streamChunks(c echo.Context) error {
	coord, err := s.mgr.Get(c.Param("id"))
	if err != nil {
		return c.JSON(httpStatusFor(err), errorResponse{Error: err.Error()})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	var opusDec *audio.OpusDecoder
	ctx := c.Request().Context()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[%s] stream read error: %v", coord.ID(), err)
			}
			return nil
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		if len(data) < streamHeaderLen {
			_ = conn.WriteJSON(errorResponse{Error: "malformed frame: short header"})
			continue
		}

		seq := binary.LittleEndian.Uint32(data[0:4])
		flags := data[4]
		payload := data[streamHeaderLen:]

		var samples []int16
		if flags&flagOpus != 0 {
			if opusDec == nil {
				opusDec, err = audio.NewOpusDecoder()
				if err != nil {
					_ = conn.WriteJSON(errorResponse{Error: err.Error()})
					continue
				}
			}
			samples, err = opusDec.Decode(payload)
			if err != nil {
				_ = conn.WriteJSON(errorResponse{Error: err.Error()})
				continue
			}
		} else {
			samples = audio.DecodePCM16LE(payload)
		}

		result, err := coord.HandleChunk(ctx, session.Chunk{
			Seq:     seq,
			Samples: samples,
			Final:   flags&flagFinal != 0,
		})
		if err != nil {
			_ = conn.WriteJSON(errorResponse{
				Error:     err.Error(),
				Retryable: httpStatusFor(err) == http.StatusBadGateway,
			})
			continue
		}
		if err := conn.WriteJSON(result); err != nil {
			log.Printf("[%s] stream write error: %v", coord.ID(), err)
			return nil
		}
	}
}
