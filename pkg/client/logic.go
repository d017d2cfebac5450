package client

import (
	"context"
	"fmt"

	"github.com/dop251/goja"

	"github.com/coreseekdev/etherdraw-stresstest/pkg/attribute"
	"github.com/coreseekdev/etherdraw-stresstest/pkg/corpus"
)

// ActiveLogic is invoked whenever the kick timer fires while the client
// is in StateActive. It owns deciding whether and when to reschedule
// itself (via c.kickAfter/c.kickAfterRange) and what, if anything, to
// send - mirroring the CsActive branch of the original Client::kick(),
// which is itself one big if/else-if chain keyed on m_logic.
type ActiveLogic func(c *Client)

// builtinLogics are the behaviors the CsActive branch of kick() reacts
// to. "lurk", "disconnect", and "blackhat" are deliberately absent:
// lurk and disconnect never do anything once active, and blackhat's
// entire effect happens once, earlier, in sendUserInfo - none of the
// three need a kick-time branch, so an unmatched name is already
// correct behavior.
var builtinLogics = map[string]ActiveLogic{
	"draw":         logicDraw,
	"badfollow":    logicBadFollow,
	"oldreconnect": logicOldReconnect,
}

// Lookup resolves a named built-in logic's kick-time behavior. Names
// with no entry (lurk, disconnect, blackhat, or anything unrecognized)
// correctly do nothing when kicked while active.
func Lookup(name string) (ActiveLogic, bool) {
	l, ok := builtinLogics[name]
	return l, ok
}

// logicDraw performs three random edits, sends the accumulated
// changeset, and reschedules itself ten seconds out - the steady-state
// "someone is actually typing" behavior most load generated by this
// tool comes from.
func logicDraw(c *Client) {
	for i := 0; i < 3; i++ {
		c.makeRandomEdit()
	}
	c.sendChangeset()
	c.kickAfter(10)
}

// logicBadFollow sends one deliberately malformed USER_CHANGES message
// and then goes quiet, exercising the server's handling of a changeset
// whose claimed base revision doesn't match its claimed size.
func logicBadFollow(c *Client) {
	c.sendBadFollow()
}

// logicOldReconnect restarts the client, as long as it has already seen
// at least one real revision, to simulate a browser tab that went to
// sleep and woke up claiming to be at revision 0.
func logicOldReconnect(c *Client) {
	if c.pad.Rev() > 0 {
		c.Infof("disconnecting for oldreconnect")
		c.start(context.Background())
	}
}

// ScriptedLogic loads a goja program that must define a function
// "onKick(ctx)" and returns an ActiveLogic invoking it. ctx exposes
// insertAt/deleteAt/randomWord/newLen/rev so the script can drive the
// same Pad the built-in logics use, then returns a boolean: true to
// send the accumulated changeset and reschedule ten seconds out (like
// "draw"), false to go quiet (like "badfollow").
func ScriptedLogic(source string) (ActiveLogic, error) {
	program, err := goja.Compile("logic.js", source, false)
	if err != nil {
		return nil, fmt.Errorf("client: compiling edit logic script: %w", err)
	}

	return func(c *Client) {
		vm := goja.New()
		if _, err := vm.RunProgram(program); err != nil {
			c.Errorf("edit logic script error: %v", err)
			return
		}

		ctx := vm.NewObject()
		ctx.Set("newLen", func() int { return c.pad.NewLen() })
		ctx.Set("rev", func() int { return c.pad.Rev() })
		ctx.Set("randomWord", func() string { return corpus.RandomWord(c.rng.Intn) })
		ctx.Set("insertAt", func(pos int, text string) {
			c.pad.InsertAt(pos, text, []attribute.Attribute{attribute.New("author", c.authorID)})
		})
		ctx.Set("deleteAt", func(pos, n int) { c.pad.DeleteAt(pos, n) })

		onKick, ok := goja.AssertFunction(vm.Get("onKick"))
		if !ok {
			c.Errorf("edit logic script does not define onKick")
			return
		}

		result, err := onKick(goja.Undefined(), ctx)
		if err != nil {
			c.Errorf("edit logic script failed: %v", err)
			return
		}

		if result.ToBoolean() {
			c.sendChangeset()
			c.kickAfter(10)
		}
	}, nil
}
