package grpcfrontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonCodec_MarshalUnmarshalRoundtrip(t *testing.T) {
	c := jsonCodec{}
	in := NodeInfo{UptimeSeconds: 42, Peers: []string{"a", "b"}, Listen: []string{"1.2.3.4:9000"}}

	data, err := c.Marshal(in)
	require.NoError(t, err)

	var out NodeInfo
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestJsonCodec_Name(t *testing.T) {
	assert.Equal(t, "json", jsonCodec{}.Name())
}

func TestMethodPath_Format(t *testing.T) {
	assert.Equal(t, "/swapd.Frontend/GetInfo", methodPath("GetInfo"))
}
