package transfer

import (
	"context"

	"google.golang.org/grpc"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
)

// 外部轉帳服務的 gRPC 方法
const (
	ServiceName    = "transfer.v1.TransferService"
	TransferMethod = "/" + ServiceName + "/Transfer"
)

// TransferResponse 外部服務回應：成功帶 block_index，拒絕帶 error
type TransferResponse struct {
	BlockIndex *uint64    `json:"block_index,omitempty"`
	Error      *Rejection `json:"error,omitempty"`
}

// Rejection 外部服務的結構化拒絕原因 (例如 InsufficientFunds、BadFee、TooOld)
type Rejection struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

func (r *Rejection) String() string {
	if r.Message == "" {
		return r.Kind
	}
	return r.Kind + ": " + r.Message
}

// TransferServiceServer 外部轉帳服務的伺服器端介面 (本地開發與測試用)
type TransferServiceServer interface {
	Transfer(ctx context.Context, req *domain.TransferRequest) (*TransferResponse, error)
}

// RegisterTransferServiceServer 註冊外部轉帳服務
func RegisterTransferServiceServer(s grpc.ServiceRegistrar, srv TransferServiceServer) {
	s.RegisterService(&transferServiceDesc, srv)
}

func transferHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(domain.TransferRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransferServiceServer).Transfer(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TransferMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TransferServiceServer).Transfer(ctx, req.(*domain.TransferRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var transferServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TransferServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Transfer", Handler: transferHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "transfer/v1/transfer.json",
}
