// Package client drives one simulated Etherpad/Etherdraw collaborator
// through its connection lifecycle: connect, fetch the starting
// revision, then run a scripted editing behavior against it until the
// process is asked to stop.
package client

import (
	"context"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coreseekdev/etherdraw-stresstest/pkg/attribute"
	"github.com/coreseekdev/etherdraw-stresstest/pkg/corpus"
	"github.com/coreseekdev/etherdraw-stresstest/pkg/logger"
	"github.com/coreseekdev/etherdraw-stresstest/pkg/pad"
	"github.com/coreseekdev/etherdraw-stresstest/pkg/transport"
)

// State is one position in the client's connection lifecycle.
type State int

const (
	StateCreated State = iota
	StateStarting
	StateGettingVars
	StateActive
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateStarting:
		return "STARTING"
	case StateGettingVars:
		return "GETVARS"
	case StateActive:
		return "ACTIVE"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Client is one simulated collaborator on a single pad: it owns a
// transport, the pad's local text model, and a named editing logic
// that decides what it does once active.
type Client struct {
	logger.Logger

	transport transport.Transport
	pad       *pad.Pad

	logicName string
	logic     ActiveLogic
	rng       *rand.Rand

	mu         sync.Mutex
	state      State
	padID      string
	authorID   string
	authorName string
	color      string
	kickToken  uint64
	started    time.Time

	cancel context.CancelFunc
}

// New builds a Client for padURL, named name for logging, with
// "robot"+name as its default display name (mirroring the original's
// "robot<name>" fallback author name). t is the transport to drive; it must not yet
// be connected. seed seeds the client's private random source, so a
// run can be replayed deterministically.
func New(padURL *url.URL, name string, t transport.Transport, seed int64) *Client {
	pid := padURL.Path
	if i := strings.LastIndex(pid, "/"); i >= 0 {
		pid = pid[i+1:]
	}

	return &Client{
		Logger:     logger.New(name),
		transport:  t,
		pad:        pad.New(name),
		logicName:  "lurk",
		rng:        rand.New(rand.NewSource(seed)),
		state:      StateCreated,
		padID:      pid,
		authorName: "robot" + name,
	}
}

// SetLogic selects the named built-in editing logic to run once the
// client reaches StateActive, overriding the default "lurk".
func (c *Client) SetLogic(name string) {
	c.logicName = name
	c.logic, _ = Lookup(name)
}

// SetScriptedLogic installs a goja-scripted logic in place of a
// built-in one; logicName is still recorded (as "script") so log lines
// and the oldreconnect/disconnect/blackhat special cases, which key off
// the literal name, behave as if no built-in logic matched.
func (c *Client) SetScriptedLogic(logic ActiveLogic) {
	c.logicName = "script"
	c.logic = logic
}

// State reports the client's current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) changeState(state State) {
	c.mu.Lock()
	prev := c.state
	c.state = state
	c.mu.Unlock()
	if prev != state {
		c.Infof("%s -> %s", prev, state)
	}
}

// Run starts the client and blocks until ctx is canceled (or Stop is
// called), driving the connect/kick/receive loop in the background. It
// returns once that cancellation has been observed and the internal
// kick timer has been disarmed; it does not wait for the transport to
// report its disconnect.
func (c *Client) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	go c.receiveLoop(runCtx)
	c.start(runCtx)

	<-runCtx.Done()
	c.mu.Lock()
	c.kickToken++ // a kick already armed no longer fires
	c.mu.Unlock()
	return nil
}

// Stop ends the client's run loop and tears down its transport.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.transport.Close()
}

// start (re)connects the transport, entering StateStarting and arming
// a 10-second kick in case the transport never comes up - the same
// "assume something's wrong and retry" policy the original used for
// every connection attempt, first or retried.
func (c *Client) start(ctx context.Context) {
	c.changeState(StateStarting)
	c.kickAfter(10)
	if err := c.transport.Connect(ctx); err != nil {
		c.Errorf("connect failed: %v", err)
		return
	}
	go c.transportReady(ctx)
}

// transportReady sends the initial CLIENT_READY handshake once the
// transport is up, picking the path the active logic calls for:
// normal clients wait for CLIENT_VARS, "oldreconnect" lies about
// already being at revision 0 and jumps straight to active, and
// "disconnect" sends its hello and then immediately drops the
// connection.
func (c *Client) transportReady(ctx context.Context) {
	tok := c.cookie("token")
	if tok == "" {
		tok = transport.NewToken()
		c.setCookie("token", tok)
	}

	var clientRev *int
	reconnect := false

	switch {
	case c.logicName == "oldreconnect" && c.pad.Rev() > 0:
		c.Infof("sending CLIENT_READY with reconnect and rev 0")
		reconnect = true
		zero := 0
		clientRev = &zero
		c.changeState(StateActive) // no CLIENT_VARS is coming
	case c.logicName == "disconnect":
		c.Infof("skipping GETVARS")
	default:
		c.changeState(StateGettingVars)
	}

	c.Infof("sending initial CLIENT_READY")
	env := transport.NewClientReady(c.padID, c.cookie("sessionID"), c.cookie("password"), tok, reconnect, clientRev)
	if err := c.transport.Send(ctx, env); err != nil {
		c.Errorf("failed to send CLIENT_READY: %v", err)
		return
	}

	if c.logicName == "disconnect" {
		c.Infof("disconnecting")
		c.transport.Close()
	}
}

func (c *Client) cookie(name string) string {
	if ct, ok := c.transport.(interface{ Cookie(string) string }); ok {
		return ct.Cookie(name)
	}
	return ""
}

func (c *Client) setCookie(name, value string) {
	if ct, ok := c.transport.(interface{ SetCookie(string, string) }); ok {
		ct.SetCookie(name, value)
	}
}

// receiveLoop pumps the transport's incoming envelopes and disconnect
// signal into their handlers until ctx is done.
func (c *Client) receiveLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.transport.Disconnected():
			c.transportDisconnected()
		case env, ok := <-c.transport.Receive():
			if !ok {
				return
			}
			c.receivedMessage(ctx, env)
		}
	}
}

func (c *Client) transportDisconnected() {
	c.changeState(StateDisconnected)
	c.kickAfterRange(1, 10)
}

// receivedMessage dispatches one envelope off the wire: a forced
// disconnect instruction overrides everything else, then CLIENT_VARS
// advances GETVARS -> ACTIVE, then COLLABROOM's USER_NEWINFO/USER_LEAVE
// are logged and otherwise ignored, matching what the stress client has
// any use for.
func (c *Client) receivedMessage(ctx context.Context, env transport.Envelope) {
	if env.Disconnect != "" {
		c.Warningf("received disconnect message: %s", env.Disconnect)
		c.changeState(StateDisconnected)
		c.kickAfter(10)
		return
	}

	switch env.Type {
	case transport.TypeClientVars:
		if c.State() != StateGettingVars {
			c.Errorf("received CLIENT_VARS in state %s", c.State())
		}
		data, err := transport.DecodeClientVars(env)
		if err != nil {
			c.Errorf("malformed CLIENT_VARS: %v", err)
			return
		}
		c.getClientVars(ctx, data)
		c.changeState(StateActive)
		c.kickAfter(10)

	case transport.TypeCollabroom:
		if c.State() != StateActive {
			c.Errorf("received COLLABROOM in state %s", c.State())
		}
		data, err := transport.DecodeCollab(env)
		if err != nil {
			c.Errorf("malformed COLLABROOM: %v", err)
			return
		}
		switch data.Type {
		case transport.CollabUserNewInfo:
			if data.UserInfo != nil {
				c.Verbosef("received USER_NEWINFO %s %s", data.UserInfo.UserID, data.UserInfo.Name)
			}
		case transport.CollabUserLeave:
			if data.UserInfo != nil {
				c.Verbosef("received USER_LEAVE %s", data.UserInfo.UserID)
			}
		}

	default:
		c.Infof("received unknown message type %s", env.Type)
	}
}

// getClientVars absorbs a CLIENT_VARS payload: the assigned author id
// and color, an optional server-assigned display name, and the pad's
// starting revision, text, and attribute pool.
func (c *Client) getClientVars(ctx context.Context, vars transport.ClientVarsData) {
	if vars.PadID != c.padID {
		c.Warningf("received client vars for pad %s instead of expected %s", vars.PadID, c.padID)
	}
	if vars.GlobalPadID != c.padID {
		c.Warningf("received global pad id %s instead of expected %s", vars.GlobalPadID, c.padID)
	}

	c.authorID = vars.UserID
	c.Verbosef("received author id %s", c.authorID)

	palette := vars.ColorPalette
	colorIndex := vars.UserColor
	if colorIndex < 0 || colorIndex >= len(palette) {
		c.Errorf("received userColor %d into palette size %d", colorIndex, len(palette))
		c.color = "#7f7f7f"
	} else {
		c.color = palette[colorIndex]
		c.Tracef("got assigned color %s", c.color)
	}

	if vars.UserName == "" {
		c.sendUserInfo(ctx, "")
	} else {
		c.authorName = vars.UserName
		c.Infof("accepting author name %s", c.authorName)
	}

	cv := vars.CollabClientVars
	if cv.GlobalPadID != c.padID {
		c.Warningf("received collabvars global pad id %s instead of expected %s", cv.GlobalPadID, c.padID)
	}
	if cv.PadID != c.padID {
		c.Warningf("received collabvars pad id %s instead of expected %s", cv.PadID, c.padID)
	}

	apool := transport.DecodeAttribPool(cv.APool)
	c.pad.SetInitialText(cv.Rev, cv.InitialAttributedText.Text, cv.InitialAttributedText.Attribs, apool)
	c.Infof("received rev %d", c.pad.Rev())
}

// sendUserInfo announces this client's author id, name, and color.
// disconnect, if non-empty, is sent along as a forced-disconnect
// instruction the server is expected to relay to every other client in
// the room; the "blackhat" logic always overrides it with its own text.
func (c *Client) sendUserInfo(ctx context.Context, disconnect string) {
	if c.logicName == "blackhat" {
		disconnect = "mysterious server error"
		c.Infof("sending force-disconnect message to other clients")
	}

	c.Verbosef("sending userinfo update %s %s %s", c.authorID, c.color, c.authorName)
	env := transport.NewUserInfoUpdate(transport.UserInfo{
		UserID:    c.authorID,
		Name:      c.authorName,
		ColorID:   c.color,
		IP:        "127.0.0.1",
		UserAgent: "Anonymous",
	}, disconnect)
	if err := c.transport.Send(ctx, env); err != nil {
		c.Errorf("failed to send userinfo: %v", err)
	}
}

// sendBadFollow sends the fixed malformed USER_CHANGES envelope the
// "badfollow" logic uses to exercise the server's rebase error handling.
func (c *Client) sendBadFollow() {
	baseRev := c.pad.Rev() - 1
	c.Warningf("sending bad follow changeset for rev %d", baseRev)
	env := transport.NewBadFollow(baseRev)
	if err := c.transport.Send(context.Background(), env); err != nil {
		c.Errorf("failed to send bad follow: %v", err)
	}
}

// sendChangeset sends the local pad's accumulated edits as a
// USER_CHANGES envelope based on the pad's last known revision.
func (c *Client) sendChangeset() {
	cs := c.pad.ToChangeset()
	c.Infof("sending changeset for rev %d: %q", c.pad.Rev(), cs)
	env := transport.NewUserChanges(c.pad.Rev(), cs, c.pad.Attributes())
	if err := c.transport.Send(context.Background(), env); err != nil {
		c.Errorf("failed to send changeset: %v", err)
	}
}

// makeRandomEdit performs one random insert or delete against the
// pad's current text. A fair coin flip picks the operation, and a
// delete falls back to an insert when the document has no more
// graphemes than the drawn delete length; the document's trailing
// newline is never touched. Inserted text is drawn from the
// multi-script word corpus rather than a flat character alphabet, and
// both insert positions and deletions are cut on grapheme-cluster
// boundaries, so a run of edits against a pad mixing CJK, emoji, and
// combining marks never produces an invalid split.
func (c *Client) makeRandomEdit() {
	body := strings.TrimSuffix(c.pad.Text(), "\n")
	clusters := corpus.Graphemes(body)

	insert := len(clusters) == 0 || c.rng.Intn(2) == 1
	if !insert {
		n := c.rng.Intn(20) + 1
		if n >= len(clusters) {
			insert = true
		}
	}

	if insert {
		attrs := []attribute.Attribute{attribute.New("author", c.authorID)}
		pos := 0
		if len(clusters) > 0 {
			k := c.rng.Intn(len(clusters) + 1)
			for _, g := range clusters[:k] {
				pos += len(g)
			}
		}
		c.pad.InsertAt(pos, corpus.RandomWord(c.rng.Intn), attrs)
		return
	}

	n := c.rng.Intn(20) + 1
	prefix, run := corpus.RandomGraphemeRun(body, n, c.rng.Intn)
	if run == "" {
		return
	}
	c.pad.DeleteAt(len(prefix), len(run))
}

// kickAfter arms the kick timer to fire once, secs seconds from now.
func (c *Client) kickAfter(secs int) {
	c.armKick(time.Duration(secs) * time.Second)
}

// kickAfterRange arms the kick timer to fire once, after a duration
// drawn uniformly from [secsMin, secsMax] seconds - used when
// reconnecting after an unexpected disconnect, so a fleet of clients
// doesn't hammer the server in lockstep.
func (c *Client) kickAfterRange(secsMin, secsMax int) {
	span := secsMax - secsMin
	jitter := 0
	if span > 0 {
		jitter = c.rng.Intn(span + 1)
	}
	c.armKick(time.Duration(secsMin+jitter) * time.Second)
}

func (c *Client) armKick(d time.Duration) {
	c.mu.Lock()
	c.kickToken++
	token := c.kickToken
	c.started = time.Now()
	c.mu.Unlock()

	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		<-timer.C

		c.mu.Lock()
		fire := c.kickToken == token
		c.mu.Unlock()
		if fire {
			c.kick()
		}
	}()
}

func (c *Client) elapsedSecs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(time.Since(c.started) / time.Second)
}

// kick is the client's only periodic heartbeat: depending on state, it
// either complains about a stalled handshake and retries it, or - once
// active - runs whatever the current editing logic does at each tick.
func (c *Client) kick() {
	switch c.State() {
	case StateCreated:
		c.Errorf("got kicked in %s state", c.State())

	case StateStarting:
		c.Errorf("transport not ready after %d seconds", c.elapsedSecs())
		c.Infof("retrying start")
		c.start(context.Background())

	case StateGettingVars:
		c.Errorf("did not get client vars after %d seconds", c.elapsedSecs())
		c.Infof("retrying CLIENT_READY")
		go c.transportReady(context.Background())

	case StateActive:
		if c.logic != nil {
			c.logic(c)
		}

	case StateDisconnected:
		c.Infof("reconnecting")
		c.start(context.Background())
	}
}
