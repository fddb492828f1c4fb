// Package nip19 implements the bech32 identifier encodings shared in chat:
// npub/note for raw keys and event ids, nevent and naddr for pointers with
// TLV payloads.
package nip19

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strings"
)

// TLV type constants per NIP-19.
const (
	tlvTypeSpecial = 0 // event id (nevent), d-tag (naddr)
	tlvTypeRelay   = 1
	tlvTypeAuthor  = 2
	tlvTypeKind    = 3
)

// NEvent is a decoded nevent1... pointer.
type NEvent struct {
	EventID    string
	Author     string
	RelayHints []string
}

// NAddr is a decoded naddr1... coordinate: the (kind, author, d-tag) triple
// addressing a parameterized replaceable event.
type NAddr struct {
	Kind       uint32
	Author     string
	DTag       string
	RelayHints []string
}

// EncodePubkey encodes a hex pubkey as npub1...
func EncodePubkey(hexPubkey string) (string, error) {
	return encodeFixed("npub", hexPubkey)
}

// EncodeEventID encodes a hex event id as note1...
func EncodeEventID(hexEventID string) (string, error) {
	return encodeFixed("note", hexEventID)
}

// DecodeNote decodes a note1... string to a hex event id.
func DecodeNote(note string) (string, error) {
	if !strings.HasPrefix(note, "note1") {
		return "", errors.New("not a note")
	}
	hrp, data, err := bech32Decode(note)
	if err != nil {
		return "", err
	}
	if hrp != "note" {
		return "", errors.New("invalid hrp for note")
	}

	idBytes, err := bech32ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", err
	}
	if len(idBytes) != 32 {
		return "", errors.New("invalid note length")
	}
	return hex.EncodeToString(idBytes), nil
}

// EncodeNEvent encodes an event id (and optional author pubkey) as nevent1...
func EncodeNEvent(eventIDHex, authorHex string) (string, error) {
	idBytes, err := hex.DecodeString(eventIDHex)
	if err != nil || len(idBytes) != 32 {
		return "", errors.New("invalid event id")
	}

	var tlv []byte
	tlv = append(tlv, tlvTypeSpecial, 32)
	tlv = append(tlv, idBytes...)

	if authorHex != "" {
		authorBytes, err := hex.DecodeString(authorHex)
		if err != nil || len(authorBytes) != 32 {
			return "", errors.New("invalid author pubkey")
		}
		tlv = append(tlv, tlvTypeAuthor, 32)
		tlv = append(tlv, authorBytes...)
	}

	data, err := bech32ConvertBits(tlv, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32Encode("nevent", data), nil
}

// DecodeNEvent decodes a nevent1... string.
func DecodeNEvent(nevent string) (*NEvent, error) {
	if !strings.HasPrefix(nevent, "nevent1") {
		return nil, errors.New("not a nevent")
	}
	hrp, data, err := bech32Decode(nevent)
	if err != nil {
		return nil, err
	}
	if hrp != "nevent" {
		return nil, errors.New("invalid hrp for nevent")
	}

	tlvBytes, err := bech32ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, err
	}

	n := &NEvent{RelayHints: []string{}}
	for _, entry := range parseTLV(tlvBytes) {
		switch entry.typ {
		case tlvTypeSpecial:
			if len(entry.value) == 32 {
				n.EventID = hex.EncodeToString(entry.value)
			}
		case tlvTypeRelay:
			n.RelayHints = append(n.RelayHints, string(entry.value))
		case tlvTypeAuthor:
			if len(entry.value) == 32 {
				n.Author = hex.EncodeToString(entry.value)
			}
		}
	}
	if n.EventID == "" {
		return nil, errors.New("nevent missing event id")
	}
	return n, nil
}

// EncodeNAddr encodes a (kind, author, d-tag) coordinate as naddr1...
func EncodeNAddr(kind uint32, pubkeyHex, dTag string) (string, error) {
	pubkeyBytes, err := hex.DecodeString(pubkeyHex)
	if err != nil {
		return "", err
	}
	if len(pubkeyBytes) != 32 {
		return "", errors.New("invalid pubkey length")
	}

	var tlv []byte

	// d-tag first (type 0), then author (type 2), then kind (type 3).
	dTagBytes := []byte(dTag)
	tlv = append(tlv, tlvTypeSpecial, byte(len(dTagBytes)))
	tlv = append(tlv, dTagBytes...)

	tlv = append(tlv, tlvTypeAuthor, 32)
	tlv = append(tlv, pubkeyBytes...)

	kindBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(kindBytes, kind)
	tlv = append(tlv, tlvTypeKind, 4)
	tlv = append(tlv, kindBytes...)

	data, err := bech32ConvertBits(tlv, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32Encode("naddr", data), nil
}

// DecodeNAddr decodes a naddr1... string.
func DecodeNAddr(naddr string) (*NAddr, error) {
	if !strings.HasPrefix(naddr, "naddr1") {
		return nil, errors.New("not a naddr")
	}
	hrp, data, err := bech32Decode(naddr)
	if err != nil {
		return nil, err
	}
	if hrp != "naddr" {
		return nil, errors.New("invalid hrp for naddr")
	}

	tlvBytes, err := bech32ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, err
	}

	n := &NAddr{RelayHints: []string{}}
	hasKind := false
	hasAuthor := false
	for _, entry := range parseTLV(tlvBytes) {
		switch entry.typ {
		case tlvTypeSpecial:
			n.DTag = string(entry.value)
		case tlvTypeRelay:
			n.RelayHints = append(n.RelayHints, string(entry.value))
		case tlvTypeAuthor:
			if len(entry.value) == 32 {
				n.Author = hex.EncodeToString(entry.value)
				hasAuthor = true
			}
		case tlvTypeKind:
			if len(entry.value) == 4 {
				n.Kind = binary.BigEndian.Uint32(entry.value)
				hasKind = true
			}
		}
	}
	if !hasKind || !hasAuthor {
		return nil, errors.New("naddr missing required fields")
	}
	return n, nil
}

type tlvEntry struct {
	typ   byte
	value []byte
}

func parseTLV(data []byte) []tlvEntry {
	var entries []tlvEntry
	for i := 0; i < len(data); {
		if i+2 > len(data) {
			break
		}
		typ := data[i]
		length := int(data[i+1])
		i += 2
		if i+length > len(data) {
			break
		}
		entries = append(entries, tlvEntry{typ: typ, value: data[i : i+length]})
		i += length
	}
	return entries
}

func encodeFixed(hrp, hexValue string) (string, error) {
	raw, err := hex.DecodeString(hexValue)
	if err != nil {
		return "", err
	}
	if len(raw) != 32 {
		return "", errors.New("invalid length")
	}
	data, err := bech32ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32Encode(hrp, data), nil
}
