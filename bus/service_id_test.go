package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ServiceId is a flat, comparable struct: equal constructions must compare
// equal and be usable as a map key, since the registry keys its sets on it.
func TestServiceId_ComparableAndUsableAsMapKey(t *testing.T) {
	a := Peer("127.0.0.1:9000")
	b := Peer("127.0.0.1:9000")
	assert.Equal(t, a, b)

	m := map[ServiceId]int{}
	m[a] = 1
	m[b] = 2
	assert.Len(t, m, 1)
	assert.Equal(t, 2, m[a])

	assert.NotEqual(t, Peer("127.0.0.1:9000"), Peer("127.0.0.1:9001"))
}

func TestServiceId_SwapIdDistinguishesKind(t *testing.T) {
	s1 := Swap(NewSwapId())
	s2 := Swap(NewSwapId())
	assert.NotEqual(t, s1, s2)
	assert.NotEqual(t, s1, Peer("irrelevant"))
}

func TestServiceId_String(t *testing.T) {
	assert.Equal(t, "Peer(127.0.0.1:1)", Peer("127.0.0.1:1").String())
	assert.Equal(t, "Client(cli)", Client("cli").String())
	assert.Equal(t, "Syncer(bitcoin/mainnet)", Syncer("bitcoin", "mainnet").String())
	assert.Equal(t, "Wallet", Wallet.String())
}

func TestSwapId_HexRoundtrip(t *testing.T) {
	id := NewSwapId()
	parsed, err := SwapIdFromHex(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestSwapIdFromHex_RejectsWrongLength(t *testing.T) {
	_, err := SwapIdFromHex("abcd")
	assert.Error(t, err)
}

func TestSwapIdFromHex_RejectsNonHex(t *testing.T) {
	_, err := SwapIdFromHex("not-hex-at-all-zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")
	assert.Error(t, err)
}
