package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreseekdev/etherdraw-stresstest/pkg/attribute"
)

func TestEncodeDecodeAttribPoolRoundTrip(t *testing.T) {
	pool := attribute.Pool{attribute.New("author", "a1"), attribute.New("bold", "true")}
	wire := EncodeAttribPool(pool)

	assert.Equal(t, 2, wire.NextNum)
	assert.Equal(t, 0, wire.AttribToNum["author,a1"])
	assert.Equal(t, 1, wire.AttribToNum["bold,true"])

	decoded := DecodeAttribPool(*wire)
	require.Len(t, decoded, 2)
	assert.Equal(t, pool[0], decoded[0])
	assert.Equal(t, pool[1], decoded[1])
}

func TestNewUserChangesEncodesCollabEnvelope(t *testing.T) {
	pool := attribute.Pool{attribute.New("author", "a1")}
	env := NewUserChanges(5, "Z:5>1+1$x", pool)

	assert.Equal(t, TypeCollabroom, env.Type)
	data, err := DecodeCollab(env)
	require.NoError(t, err)
	assert.Equal(t, CollabUserChanges, data.Type)
	assert.Equal(t, 5, data.BaseRev)
	assert.Equal(t, "Z:5>1+1$x", data.Changeset)
	require.NotNil(t, data.APool)
	assert.Equal(t, 1, data.APool.NextNum)
}

func TestNewBadFollowUsesFixedMalformedChangeset(t *testing.T) {
	env := NewBadFollow(4)
	data, err := DecodeCollab(env)
	require.NoError(t, err)
	assert.Equal(t, "Z:5>4+4$BAM!", data.Changeset)
	assert.Equal(t, 4, data.BaseRev)
}

func TestDecodeClientVarsExtractsCollabVars(t *testing.T) {
	raw := []byte(`{
		"padId": "pad1",
		"globalPadId": "pad1",
		"userId": "a.xyz",
		"userName": "",
		"userColor": 0,
		"colorPalette": ["#ffc7c7"],
		"collab_client_vars": {
			"padId": "pad1",
			"globalPadId": "pad1",
			"rev": 3,
			"initialAttributedText": {"text": "hi\n", "attribs": "*0+3"},
			"apool": {"numToAttrib": {"0": ["author", "a.xyz"]}, "nextNum": 1}
		}
	}`)
	env := Envelope{Type: TypeClientVars, Data: raw}
	data, err := DecodeClientVars(env)
	require.NoError(t, err)

	assert.Equal(t, "pad1", data.PadID)
	assert.Equal(t, 3, data.CollabClientVars.Rev)
	assert.Equal(t, "hi\n", data.CollabClientVars.InitialAttributedText.Text)
	assert.Equal(t, 1, data.CollabClientVars.APool.NextNum)
}

func TestNewUserInfoUpdateCarriesDisconnect(t *testing.T) {
	env := NewUserInfoUpdate(UserInfo{UserID: "a1", Name: "robot1"}, "mysterious server error")
	assert.Equal(t, "mysterious server error", env.Disconnect)

	data, err := DecodeCollab(env)
	require.NoError(t, err)
	assert.Equal(t, CollabUserInfoUpdate, data.Type)
	require.NotNil(t, data.UserInfo)
	assert.Equal(t, "a1", data.UserInfo.UserID)
}
