package nostr

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// Event kinds used by the bot.
const (
	KindDeletion      = 5
	KindCalendarEvent = 31923
	KindCalendar      = 31924
)

// Event is an immutable signed Nostr event (NIP-01).
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// TagValue returns the second element of the first tag whose name matches,
// or "" if no such tag exists.
func (e *Event) TagValue(name string) string {
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag[1]
		}
	}
	return ""
}

// TagValues returns the second element of every tag whose name matches,
// preserving tag order.
func (e *Event) TagValues(name string) []string {
	var values []string
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == name {
			values = append(values, tag[1])
		}
	}
	return values
}

// Identifier returns the d-tag of a parameterized replaceable event.
func (e *Event) Identifier() string {
	return e.TagValue("d")
}

// Coordinate returns the kind:pubkey:identifier address of a parameterized
// replaceable event.
func (e *Event) Coordinate() string {
	return fmt.Sprintf("%d:%s:%s", e.Kind, e.PubKey, e.Identifier())
}

// ComputeID returns the sha256 of the canonical NIP-01 serialization
// [0, pubkey, created_at, kind, tags, content].
//
// HTML escaping must be disabled: relays hash the raw JSON, and Go's default
// escaping of <, > and & would produce a different id.
func (e *Event) ComputeID() string {
	serialized := []interface{}{
		0,
		e.PubKey,
		e.CreatedAt,
		e.Kind,
		e.Tags,
		e.Content,
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.Encode(serialized)
	jsonBytes := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	hash := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(hash[:])
}

// Sign computes the event id and attaches a Schnorr signature. The pubkey
// field is overwritten with the key derived from priv.
func (e *Event) Sign(priv *btcec.PrivateKey) error {
	if priv == nil {
		return fmt.Errorf("no signing key")
	}
	if e.Tags == nil {
		e.Tags = [][]string{}
	}

	e.PubKey = PublicKeyHex(priv)
	e.ID = e.ComputeID()

	idBytes, err := hex.DecodeString(e.ID)
	if err != nil {
		return fmt.Errorf("failed to decode event id: %w", err)
	}
	sig, err := schnorr.Sign(priv, idBytes)
	if err != nil {
		return fmt.Errorf("failed to sign event: %w", err)
	}
	e.Sig = hex.EncodeToString(sig.Serialize())
	return nil
}

// Verify recomputes the event id and checks the Schnorr signature against the
// event's pubkey. Relay-supplied events must pass this check before they are
// trusted for display or state mutation.
func (e *Event) Verify() bool {
	if len(e.Sig) != 128 || len(e.PubKey) != 64 {
		return false
	}
	if e.ComputeID() != e.ID {
		return false
	}

	sigBytes, err := hex.DecodeString(e.Sig)
	if err != nil {
		return false
	}
	pubKeyBytes, err := hex.DecodeString(e.PubKey)
	if err != nil {
		return false
	}
	idBytes, err := hex.DecodeString(e.ID)
	if err != nil {
		return false
	}

	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return false
	}
	pubKey, err := schnorr.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false
	}
	return sig.Verify(idBytes, pubKey)
}

// MarshalWire serializes the event for the wire with HTML escaping disabled.
func (e *Event) MarshalWire() ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(e); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ParsePrivateKey decodes a 32-byte hex private key.
func ParsePrivateKey(hexKey string) (*btcec.PrivateKey, error) {
	keyBytes, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("invalid private key length: %d", len(keyBytes))
	}
	priv, _ := btcec.PrivKeyFromBytes(keyBytes)
	return priv, nil
}

// PublicKeyHex returns the x-only public key for priv as 64 hex chars.
func PublicKeyHex(priv *btcec.PrivateKey) string {
	return hex.EncodeToString(schnorr.SerializePubKey(priv.PubKey()))
}

// ShortID truncates an id or pubkey for logging.
func ShortID(id string) string {
	if len(id) >= 12 {
		return id[:12]
	}
	return id
}
