// Package transport speaks the Etherpad/Etherdraw client wire protocol:
// a JSON envelope carried over either a websocket or an xhr-polling
// transport, and the CLIENT_READY/CLIENT_VARS/COLLABROOM message
// vocabulary layered on top of it.
package transport

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/coreseekdev/etherdraw-stresstest/pkg/attribute"
)

// MessageType is the outer "type" discriminator on every envelope.
type MessageType string

const (
	TypeClientReady MessageType = "CLIENT_READY"
	TypeClientVars  MessageType = "CLIENT_VARS"
	TypeCollabroom  MessageType = "COLLABROOM"
)

// CollabType is the "data.type" discriminator nested inside a COLLABROOM
// envelope, since Etherpad multiplexes several sub-protocols over one
// message type.
type CollabType string

const (
	CollabUserChanges    CollabType = "USER_CHANGES"
	CollabUserInfoUpdate CollabType = "USERINFO_UPDATE"
	CollabUserNewInfo    CollabType = "USER_NEWINFO"
	CollabUserLeave      CollabType = "USER_LEAVE"
)

// Envelope is the outer shape of every message exchanged with the
// server. Disconnect, when present, overrides everything else: it is a
// forced-disconnect notice, the "blackhat" scripted logic's way of
// knocking other clients off the pad.
type Envelope struct {
	Type       MessageType     `json:"type,omitempty"`
	Component  string          `json:"component,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Disconnect string          `json:"disconnect,omitempty"`

	// CLIENT_READY fields; only populated when Type == TypeClientReady.
	PadID           string `json:"padId,omitempty"`
	SessionID       string `json:"sessionID,omitempty"`
	Password        string `json:"password,omitempty"`
	Token           string `json:"token,omitempty"`
	ProtocolVersion int    `json:"protocolVersion,omitempty"`
	Reconnect       bool   `json:"reconnect,omitempty"`
	ClientRev       *int   `json:"client_rev,omitempty"`
}

// CollabData is the payload of a COLLABROOM envelope.
type CollabData struct {
	Type      CollabType      `json:"type"`
	BaseRev   int             `json:"baseRev,omitempty"`
	Changeset string          `json:"changeset,omitempty"`
	APool     *WireAttribPool `json:"apool,omitempty"`
	UserInfo  *UserInfo       `json:"userInfo,omitempty"`
}

// UserInfo mirrors the USERINFO_UPDATE/USER_NEWINFO payload shape.
type UserInfo struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	ColorID   string `json:"colorId,omitempty"`
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// WireAttribPool is the inefficient-by-design on-the-wire pool encoding:
// a map from decimal string index to a [key, value] pair, sent alongside
// a reverse lookup map and the next free index.
type WireAttribPool struct {
	NumToAttrib map[string][2]string `json:"numToAttrib"`
	AttribToNum map[string]int       `json:"attribToNum,omitempty"`
	NextNum     int                  `json:"nextNum"`
}

// EncodeAttribPool builds the wire form of pool.
func EncodeAttribPool(pool attribute.Pool) *WireAttribPool {
	w := &WireAttribPool{
		NumToAttrib: make(map[string][2]string, pool.Len()),
		AttribToNum: make(map[string]int, pool.Len()),
		NextNum:     pool.Len(),
	}
	for i := 0; i < pool.Len(); i++ {
		attr, _ := pool.At(i)
		idx := itoa(i)
		w.NumToAttrib[idx] = [2]string{attr.Key, attr.Value}
		w.AttribToNum[attr.Key+","+attr.Value] = i
	}
	return w
}

// DecodeAttribPool recovers an attribute.Pool from its wire form. Entries
// are placed at their numeric index so pool references inside a
// changeset parsed against the result resolve correctly.
func DecodeAttribPool(w WireAttribPool) attribute.Pool {
	pool := make(attribute.Pool, w.NextNum)
	for idxStr, kv := range w.NumToAttrib {
		i := atoiOrNegative(idxStr)
		if i >= 0 && i < len(pool) {
			pool[i] = attribute.New(kv[0], kv[1])
		}
	}
	return pool
}

// ClientVarsData is the payload of a CLIENT_VARS envelope's "data"
// field, trimmed to the fields the client actually consumes.
type ClientVarsData struct {
	PadID            string           `json:"padId"`
	GlobalPadID      string           `json:"globalPadId"`
	UserID           string           `json:"userId"`
	UserName         string           `json:"userName"`
	UserColor        int              `json:"userColor"`
	ColorPalette     []string         `json:"colorPalette"`
	CollabClientVars CollabClientVars `json:"collab_client_vars"`
}

// CollabClientVars is the nested "collab_client_vars" object of
// CLIENT_VARS, carrying the pad's starting revision, text, and pool.
type CollabClientVars struct {
	PadID                 string          `json:"padId"`
	GlobalPadID           string          `json:"globalPadId"`
	Rev                   int             `json:"rev"`
	InitialAttributedText TextWithAttribs `json:"initialAttributedText"`
	APool                 WireAttribPool  `json:"apool"`
}

// TextWithAttribs pairs a document's plain text with the attribute
// string (an abbreviated changeset, missing its header and charbank)
// that decorates it.
type TextWithAttribs struct {
	Text    string `json:"text"`
	Attribs string `json:"attribs"`
}

// NewClientReady builds the CLIENT_READY envelope a client sends right
// after its transport comes up. clientRev is nil for a normal first
// connection; the oldreconnect scripted logic passes a pointer to 0 to
// lie about already having revision 0.
func NewClientReady(padID, sessionID, password, token string, reconnect bool, clientRev *int) Envelope {
	return Envelope{
		Type:            TypeClientReady,
		Component:       "pad",
		PadID:           padID,
		SessionID:       sessionID,
		Password:        password,
		Token:           token,
		ProtocolVersion: 2,
		Reconnect:       reconnect,
		ClientRev:       clientRev,
	}
}

// NewToken generates a fresh session token in the "t.RANDOM" shape the
// server expects the first time a client connects.
func NewToken() string {
	return "t." + uuid.NewString()
}

func marshalCollab(data CollabData) Envelope {
	raw, _ := json.Marshal(data)
	return Envelope{Type: TypeCollabroom, Component: "pad", Data: raw}
}

// NewUserChanges builds the COLLABROOM/USER_CHANGES envelope carrying a
// changeset the client produced locally, based on revision baseRev.
func NewUserChanges(baseRev int, cs string, pool attribute.Pool) Envelope {
	return marshalCollab(CollabData{
		Type:      CollabUserChanges,
		BaseRev:   baseRev,
		Changeset: cs,
		APool:     EncodeAttribPool(pool),
	})
}

// NewBadFollow builds a deliberately malformed USER_CHANGES envelope:
// the changeset claims to be based on an older revision but does not
// match that revision's actual size, so the server's rebase ("follow")
// is expected to fail. Used by the badfollow scripted logic to exercise
// the server's error handling on a known-bad input.
func NewBadFollow(baseRev int) Envelope {
	return marshalCollab(CollabData{
		Type:      CollabUserChanges,
		BaseRev:   baseRev,
		Changeset: "Z:5>4+4$BAM!",
		APool:     &WireAttribPool{NumToAttrib: map[string][2]string{}, NextNum: 0},
	})
}

// NewUserInfoUpdate builds the COLLABROOM/USERINFO_UPDATE envelope a
// client sends to announce its author id, display name, and color. When
// disconnect is non-empty, the message also carries a forced-disconnect
// instruction.
func NewUserInfoUpdate(info UserInfo, disconnect string) Envelope {
	e := marshalCollab(CollabData{Type: CollabUserInfoUpdate, UserInfo: &info})
	e.Disconnect = disconnect
	return e
}

// DecodeCollab unmarshals env.Data as a CollabData payload. Callers
// should only call this once env.Type == TypeCollabroom.
func DecodeCollab(env Envelope) (CollabData, error) {
	var data CollabData
	if len(env.Data) == 0 {
		return data, nil
	}
	err := json.Unmarshal(env.Data, &data)
	return data, err
}

// DecodeClientVars unmarshals env.Data as a ClientVarsData payload.
// Callers should only call this once env.Type == TypeClientVars.
func DecodeClientVars(env Envelope) (ClientVarsData, error) {
	var data ClientVarsData
	if len(env.Data) == 0 {
		return data, nil
	}
	err := json.Unmarshal(env.Data, &data)
	return data, err
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

func atoiOrNegative(s string) int {
	if s == "" {
		return -1
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}
