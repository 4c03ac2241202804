package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName content-subtype：application/grpc+json
const CodecName = "json"

// jsonCodec 以 JSON 編碼 gRPC 訊息
// 服務描述是手寫的 grpc.ServiceDesc，訊息是一般 Go struct，不需要 protoc
type jsonCodec struct{}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}
