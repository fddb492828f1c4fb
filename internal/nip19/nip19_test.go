package nip19

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPubkey  = "3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d"
	testEventID = "43e7bbea0ce2eeae4452b20b29dbfb8a4b8271b2cd0c3b4d37c1cf7ef9393b38"
)

func TestEncodePubkey(t *testing.T) {
	npub, err := EncodePubkey(testPubkey)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(npub, "npub1"))

	// Known vector from NIP-19
	assert.Equal(t, "npub180cvv07tjdrrgpa0j7j7tmnyl2yr6yr7l8j4s3evf6u64th6gkwsyjh6w6", npub)
}

func TestNoteRoundTrip(t *testing.T) {
	note, err := EncodeEventID(testEventID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(note, "note1"))

	decoded, err := DecodeNote(note)
	require.NoError(t, err)
	assert.Equal(t, testEventID, decoded)
}

func TestDecodeNote_Invalid(t *testing.T) {
	_, err := DecodeNote("npub180cvv07tjdrrgpa0j7j7tmnyl2yr6yr7l8j4s3evf6u64th6gkwsyjh6w6")
	assert.Error(t, err)

	_, err = DecodeNote("note1qqqq")
	assert.Error(t, err)
}

func TestNEventRoundTrip(t *testing.T) {
	nevent, err := EncodeNEvent(testEventID, testPubkey)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(nevent, "nevent1"))

	decoded, err := DecodeNEvent(nevent)
	require.NoError(t, err)
	assert.Equal(t, testEventID, decoded.EventID)
	assert.Equal(t, testPubkey, decoded.Author)
}

func TestNEventRoundTrip_NoAuthor(t *testing.T) {
	nevent, err := EncodeNEvent(testEventID, "")
	require.NoError(t, err)

	decoded, err := DecodeNEvent(nevent)
	require.NoError(t, err)
	assert.Equal(t, testEventID, decoded.EventID)
	assert.Empty(t, decoded.Author)
}

func TestNAddrRoundTrip(t *testing.T) {
	naddr, err := EncodeNAddr(31923, testPubkey, "stammtisch-zuerich-a1b2c3d4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(naddr, "naddr1"))

	decoded, err := DecodeNAddr(naddr)
	require.NoError(t, err)
	assert.EqualValues(t, 31923, decoded.Kind)
	assert.Equal(t, testPubkey, decoded.Author)
	assert.Equal(t, "stammtisch-zuerich-a1b2c3d4", decoded.DTag)
}

func TestNAddrRoundTrip_EmptyDTag(t *testing.T) {
	naddr, err := EncodeNAddr(31924, testPubkey, "")
	require.NoError(t, err)

	decoded, err := DecodeNAddr(naddr)
	require.NoError(t, err)
	assert.EqualValues(t, 31924, decoded.Kind)
	assert.Empty(t, decoded.DTag)
}

func TestDecodeNAddr_Invalid(t *testing.T) {
	_, err := DecodeNAddr("nevent1qqs")
	assert.Error(t, err)

	// Corrupted checksum
	naddr, err := EncodeNAddr(31923, testPubkey, "x")
	require.NoError(t, err)
	corrupted := naddr[:len(naddr)-1] + "q"
	if corrupted == naddr {
		corrupted = naddr[:len(naddr)-1] + "p"
	}
	_, err = DecodeNAddr(corrupted)
	assert.Error(t, err)
}

func TestEncodeNAddr_BadPubkey(t *testing.T) {
	_, err := EncodeNAddr(31923, "abcd", "d")
	assert.Error(t, err)

	_, err = EncodeNAddr(31923, "zz", "d")
	assert.Error(t, err)
}
