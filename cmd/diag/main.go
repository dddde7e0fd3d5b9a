// Command diag is a thin diagnostic client for the chunk API: it creates a
// session, streams a local PCM16/WAV file over the websocket endpoint at
// real-time pace, and prints the pipeline's per-chunk results.
package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LennoxSears/dulaan-backend-sub001/internal/audio"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "backend base URL")
	file := flag.String("file", "", "input audio: raw PCM16LE 16kHz mono, or WAV")
	frameMs := flag.Int("frame-ms", 100, "frame duration per chunk")
	realtime := flag.Bool("realtime", true, "pace chunks at wall-clock speed")
	flag.Parse()

	if *file == "" {
		log.Fatal("usage: diag -file audio.wav [-server http://host:port]")
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read %s: %v", *file, err)
	}
	pcm := audio.StripWAV(raw)

	sessionID, err := createSession(*server)
	if err != nil {
		log.Fatalf("create session: %v", err)
	}
	log.Printf("session %s", sessionID)

	wsURL, err := url.Parse(*server)
	if err != nil {
		log.Fatalf("bad server url: %v", err)
	}
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = fmt.Sprintf("/v1/sessions/%s/stream", sessionID)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(wsURL.String(), nil)
	if err != nil {
		log.Fatalf("dial %s: %v", wsURL, err)
	}
	defer conn.Close()

	frameBytes := *frameMs * audio.SampleRate / 1000 * 2
	interval := time.Duration(*frameMs) * time.Millisecond

	var seq uint32
	for off := 0; off < len(pcm); off += frameBytes {
		end := off + frameBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		final := end == len(pcm)

		seq++
		msg := make([]byte, 5+end-off)
		binary.LittleEndian.PutUint32(msg[0:4], seq)
		if final {
			msg[4] = 1
		}
		copy(msg[5:], pcm[off:end])

		if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			log.Fatalf("write frame %d: %v", seq, err)
		}
		_, reply, err := conn.ReadMessage()
		if err != nil {
			log.Fatalf("read reply %d: %v", seq, err)
		}
		printReply(seq, reply)

		if *realtime && !final {
			time.Sleep(interval)
		}
	}
}

func createSession(server string) (string, error) {
	resp, err := http.Post(strings.TrimRight(server, "/")+"/v1/sessions", "application/json", bytes.NewReader([]byte("{}")))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

func printReply(seq uint32, reply []byte) {
	var r struct {
		PWM          int    `json:"currentControlValue"`
		Response     string `json:"latestResponseText"`
		TurnAppended bool   `json:"turnAppended"`
		HistoryLen   int    `json:"sessionHistoryLength"`
		Error        string `json:"error"`
	}
	if err := json.Unmarshal(reply, &r); err != nil {
		log.Printf("frame %d: unparseable reply: %s", seq, reply)
		return
	}
	if r.Error != "" {
		log.Printf("frame %d: error: %s", seq, r.Error)
		return
	}
	if r.TurnAppended {
		log.Printf("frame %d: pwm=%d turns=%d reply=%q", seq, r.PWM, r.HistoryLen, r.Response)
	}
}
