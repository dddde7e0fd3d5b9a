package httpserver

import (
	"encoding/base64"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/LennoxSears/dulaan-backend-sub001/internal/audio"
	"github.com/LennoxSears/dulaan-backend-sub001/internal/control"
	"github.com/LennoxSears/dulaan-backend-sub001/internal/session"
)

type createSessionRequest struct {
	// SessionID resumes a prior session (restoring persisted state when a
	// store is configured); empty creates a fresh one.
	SessionID string `json:"sessionId,omitempty"`
}

type sessionResponse struct {
	SessionID  string         `json:"sessionId"`
	PWM        int            `json:"currentControlValue"`
	HistoryLen int            `json:"sessionHistoryLength"`
	Turns      []turnResponse `json:"turns,omitempty"`
}

type turnResponse struct {
	User           string `json:"user"`
	Reply          string `json:"reply"`
	PWM            int    `json:"controlValue"`
	IntentDetected bool   `json:"intentDetected"`
	Classification string `json:"classification"`
	At             string `json:"timestamp"`
}

type chunkRequest struct {
	SequenceIndex uint32 `json:"sequenceIndex"`
	// Audio is base64 PCM16LE mono 16kHz, or an opus packet when Encoding
	// says so.
	Audio        string `json:"audio"`
	Encoding     string `json:"encoding,omitempty"` // "pcm16" (default) or "opus"
	IsFinalChunk bool   `json:"isFinalChunk"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (s *Server) createSession(c echo.Context) error {
	var req createSessionRequest
	// body is optional for a fresh session
	_ = c.Bind(&req)

	var (
		coord *session.Coordinator
		err   error
	)
	if req.SessionID != "" {
		coord, err = s.mgr.Resume(c.Request().Context(), req.SessionID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		}
	} else {
		coord = s.mgr.Create(c.Request().Context())
	}
	st := coord.State()
	return c.JSON(http.StatusCreated, sessionResponse{
		SessionID:  coord.ID(),
		PWM:        st.PWM,
		HistoryLen: len(st.Turns),
	})
}

func (s *Server) getSession(c echo.Context) error {
	coord, err := s.mgr.Get(c.Param("id"))
	if err != nil {
		return c.JSON(httpStatusFor(err), errorResponse{Error: err.Error()})
	}
	st := coord.State()
	resp := sessionResponse{
		SessionID:  coord.ID(),
		PWM:        st.PWM,
		HistoryLen: len(st.Turns),
		Turns:      turnsToResponse(st.Turns),
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) deleteSession(c echo.Context) error {
	if err := s.mgr.Close(c.Param("id")); err != nil {
		return c.JSON(httpStatusFor(err), errorResponse{Error: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) postChunk(c echo.Context) error {
	coord, err := s.mgr.Get(c.Param("id"))
	if err != nil {
		return c.JSON(httpStatusFor(err), errorResponse{Error: err.Error()})
	}

	var req chunkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid chunk payload"})
	}
	raw, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "audio is not valid base64"})
	}

	samples, err := decodeSamples(raw, req.Encoding, nil)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	result, err := coord.HandleChunk(c.Request().Context(), session.Chunk{
		Seq:     req.SequenceIndex,
		Samples: samples,
		Final:   req.IsFinalChunk,
	})
	if err != nil {
		return c.JSON(httpStatusFor(err), errorResponse{
			Error:     err.Error(),
			Retryable: httpStatusFor(err) == http.StatusBadGateway,
		})
	}
	return c.JSON(http.StatusOK, result)
}

// decodeSamples turns a wire payload into PCM samples. The opus decoder is
// stateful, so stream handlers pass their own; the JSON endpoint decodes
// packets independently.
func decodeSamples(raw []byte, encoding string, dec *audio.OpusDecoder) ([]int16, error) {
	switch encoding {
	case "", "pcm16":
		return audio.DecodePCM16LE(raw), nil
	case "opus":
		var err error
		if dec == nil {
			dec, err = audio.NewOpusDecoder()
			if err != nil {
				return nil, err
			}
		}
		return dec.Decode(raw)
	default:
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unsupported encoding "+encoding)
	}
}

func turnsToResponse(turns []control.Turn) []turnResponse {
	out := make([]turnResponse, len(turns))
	for i, t := range turns {
		out[i] = turnResponse{
			User:           t.User,
			Reply:          t.Reply,
			PWM:            t.PWM,
			IntentDetected: t.IntentDetected,
			Classification: string(t.Classification),
			At:             t.At.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		}
	}
	return out
}
