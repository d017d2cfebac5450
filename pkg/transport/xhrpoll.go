package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/coreseekdev/etherdraw-stresstest/pkg/logger"
)

// XhrPollTransport simulates the xhr-polling backend of socket.io 0.9:
// a long-held GET carries server pushes one at a time, and the client
// POSTs to a separate URL whenever it wants to send. Despite the name,
// the payload is JSON, never XML.
//
// This is the transport a freshly loaded pad actually starts on; real
// socket.io deployments often upgrade it to a websocket once the initial
// handshake completes, which is what WebSocketTransport models.
type XhrPollTransport struct {
	*BaseTransport
	logger.Logger

	padURL  *url.URL
	baseURL *url.URL
	client  *http.Client

	sessionID string
}

// NewXhrPollTransport returns a transport polling padURL, whose
// connections are rooted at baseURL (the site root, stripped of the
// "p/PADNAME" path socket.io's own namespace lives under).
func NewXhrPollTransport(padURL, baseURL *url.URL, name string) *XhrPollTransport {
	return &XhrPollTransport{
		BaseTransport: NewBaseTransport(),
		Logger:        logger.New(name),
		padURL:        padURL,
		baseURL:       baseURL,
		client:        &http.Client{},
	}
}

// Connect requests a socket.io session id, then starts the long-poll
// receive loop.
func (t *XhrPollTransport) Connect(ctx context.Context) error {
	id, err := t.requestSessionID(ctx)
	if err != nil {
		return err
	}
	t.sessionID = id

	go t.pollLoop(ctx)
	return nil
}

// requestSessionID performs socket.io's handshake GET, which replies
// with "sessionID:heartbeat-timeout:close-timeout:transports".
func (t *XhrPollTransport) requestSessionID(ctx context.Context) (string, error) {
	handshakeURL := *t.baseURL
	handshakeURL.Path += "socket.io/1/"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, handshakeURL.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	id := ""
	for i, b := range body {
		if b == ':' {
			id = string(body[:i])
			break
		}
	}
	if id == "" {
		return "", fmt.Errorf("xhrpoll: malformed handshake response %q", body)
	}
	return id, nil
}

func (t *XhrPollTransport) pollURL() string {
	u := *t.baseURL
	u.Path += "socket.io/1/xhr-polling/" + t.sessionID
	return u.String()
}

// pollLoop holds one long GET open at a time; each reply is parsed as
// zero or more socket.io frames and handed to recvCh, then a fresh GET
// is issued immediately, matching the original's "receive, then
// immediately reopen" loop. A frame of type 0 (disconnect) ends the
// loop the same way a failed request does.
func (t *XhrPollTransport) pollLoop(ctx context.Context) {
	defer t.markDisconnected()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.disconnect:
			return
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.pollURL(), nil)
		if err != nil {
			return
		}
		resp, err := t.client.Do(req)
		if err != nil {
			t.Errorf("HTTP GET error: %v", err)
			return
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.Errorf("HTTP GET error: %v", err)
			return
		}

		for _, frame := range splitSocketIOFrames(body) {
			msgType, payload, ok := parseSocketIOFrame(frame)
			if !ok {
				continue
			}

			switch msgType {
			case socketIOTypeJSON:
				var env Envelope
				if err := json.Unmarshal([]byte(payload), &env); err != nil {
					t.Errorf("received bad message: %s", frame)
					continue
				}
				select {
				case t.recvCh <- env:
				case <-t.disconnect:
					return
				}

			case socketIOTypeDisconnect:
				t.Warningf("received disconnect message %s", frame)
				return

			case socketIOTypeConnect, socketIOTypeNoop:
				// nothing to do

			default:
				t.Infof("received %s", frame)
			}
		}
	}
}

// Send POSTs env as a socket.io type-4 (JSON) frame to the session's
// send URL. The server acknowledges the POST itself immediately; any
// reply payload arrives later on the poll loop, not on this response.
func (t *XhrPollTransport) Send(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}

	if err := t.postFrame(ctx, encodeSocketIOFrame(socketIOTypeJSON, payload)); err != nil {
		t.markDisconnected()
		return ErrSendFailed
	}
	return nil
}

// Close sends a type-0 disconnect frame, mirroring the original
// client's explicit disconnect() call, then tears the transport down.
// The in-flight long poll, if any, is abandoned: its eventual response
// (or timeout) is simply ignored once the disconnect channel is closed.
func (t *XhrPollTransport) Close() error {
	if t.sessionID != "" {
		t.postFrame(context.Background(), []byte("0::"))
	}
	t.markDisconnected()
	return nil
}

func (t *XhrPollTransport) postFrame(ctx context.Context, frame []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.pollURL(), bytes.NewReader(frame))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain;charset=UTF-8")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// socket.io 0.9 frame format: "TYPE:ID:ENDPOINT:DATA", with several
// frames batched into one long-poll response by joining them as
// "�<length>�<frame>" repeated, length counted in characters (runes). This client only ever
// sends type 4 (JSON) and 0 (disconnect); it additionally recognizes
// type 3 (bare string, unused by this protocol vocabulary), 1
// (connect ack), and 8 (noop heartbeat) well enough to ignore them.
const (
	socketIOTypeDisconnect = 0
	socketIOTypeConnect    = 1
	socketIOTypeString     = 3
	socketIOTypeJSON       = 4
	socketIOTypeNoop       = 8

	socketIOMultiMsg = '�'
)

func splitSocketIOFrames(body []byte) []string {
	runes := []rune(string(body))
	if len(runes) == 0 {
		return nil
	}
	if runes[0] != socketIOMultiMsg {
		return []string{string(runes)}
	}

	var frames []string
	i := 1
	for i < len(runes) {
		sep := indexRune(runes, socketIOMultiMsg, i)
		if sep < 0 {
			break
		}
		length := atoiOrNegative(string(runes[i:sep]))
		start := sep + 1
		end := start + length
		if length < 0 || end > len(runes) {
			break
		}
		frames = append(frames, string(runes[start:end]))
		i = end + 1
	}
	return frames
}

func indexRune(rs []rune, r rune, from int) int {
	for i := from; i < len(rs); i++ {
		if rs[i] == r {
			return i
		}
	}
	return -1
}

// parseSocketIOFrame splits "TYPE:ID:ENDPOINT:DATA" into its numeric
// type and its data section (everything past the third colon). DATA,
// and even the third colon introducing it, is absent on frames with no
// payload, like the "0::" disconnect frame.
func parseSocketIOFrame(frame string) (msgType int, payload string, ok bool) {
	colons := make([]int, 0, 3)
	for i := 0; i < len(frame) && len(colons) < 3; i++ {
		if frame[i] == ':' {
			colons = append(colons, i)
		}
	}
	if len(colons) < 2 {
		return 0, "", false
	}
	msgType = atoiOrNegative(frame[:colons[0]])
	if msgType < 0 {
		return 0, "", false
	}
	if len(colons) == 3 {
		payload = frame[colons[2]+1:]
	}
	return msgType, payload, true
}

func encodeSocketIOFrame(msgType int, payload []byte) []byte {
	return append([]byte(itoa(msgType)+":::"), payload...)
}
