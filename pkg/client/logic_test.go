package client

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreseekdev/etherdraw-stresstest/pkg/transport"
)

func TestLookupResolvesBuiltins(t *testing.T) {
	for _, name := range []string{"draw", "badfollow", "oldreconnect"} {
		_, ok := Lookup(name)
		assert.True(t, ok, "expected %q to be a built-in logic", name)
	}
}

func TestLookupHasNoEntryForPassiveLogics(t *testing.T) {
	for _, name := range []string{"lurk", "disconnect", "blackhat", "nonsense"} {
		_, ok := Lookup(name)
		assert.False(t, ok, "expected %q to have no kick-time behavior", name)
	}
}

func TestScriptedLogicInsertsAndSendsChangeset(t *testing.T) {
	script := `
		function onKick(ctx) {
			ctx.insertAt(0, "hi");
			return true;
		}
	`
	logic, err := ScriptedLogic(script)
	require.NoError(t, err)

	ft := newFakeTransport()
	c := New(testPadURL(t), "t1", ft, 1)
	c.pad.SetInitialText(2, "hello\n", "", nil)
	c.authorID = "a.author1"
	c.SetScriptedLogic(logic)
	c.changeState(StateActive)

	c.kick()

	assert.Equal(t, "hihello\n", c.pad.Text())
	sent := ft.Sent()
	require.Len(t, sent, 1)
	data, err := transport.DecodeCollab(sent[0])
	require.NoError(t, err)
	assert.Equal(t, transport.CollabUserChanges, data.Type)
}

func TestScriptedLogicFalseSendsNothing(t *testing.T) {
	logic, err := ScriptedLogic(`function onKick(ctx) { return false; }`)
	require.NoError(t, err)

	ft := newFakeTransport()
	c := New(testPadURL(t), "t1", ft, 1)
	c.pad.SetInitialText(2, "hello\n", "", nil)
	c.SetScriptedLogic(logic)
	c.changeState(StateActive)

	c.kick()

	assert.Empty(t, ft.Sent())
}

func TestScriptedLogicMissingOnKickLogsError(t *testing.T) {
	logic, err := ScriptedLogic(`function notOnKick() { return true; }`)
	require.NoError(t, err)

	ft := newFakeTransport()
	c := New(testPadURL(t), "t1", ft, 1)
	c.pad.SetInitialText(2, "hello\n", "", nil)
	c.SetScriptedLogic(logic)
	c.changeState(StateActive)

	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)

	c.kick()

	assert.Empty(t, ft.Sent())
	assert.Contains(t, buf.String(), "edit logic script does not define onKick")
}
