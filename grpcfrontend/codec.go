package grpcfrontend

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// jsonCodecName is registered as a grpc content-subtype so Client can call
// plain Go structs through grpc.ClientConn.Invoke without protobuf-generated
// stubs; grpcd is expected to register the matching codec on its server.
const jsonCodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return jsonCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

func methodPath(rpc string) string {
	return fmt.Sprintf("/swapd.Frontend/%s", rpc)
}
