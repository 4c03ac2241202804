package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName 帳本 gRPC 服務名稱
const ServiceName = "ledger.v1.LedgerService"

// AmountRequest 轉帳類與本地操作的請求，身分由 metadata 提供
type AmountRequest struct {
	Amount uint64 `json:"amount"`
}

// OperationResponse 操作成功後回傳最新帳戶狀態
type OperationResponse struct {
	Account AccountResponse `json:"account"`
}

type GetAccountRequest struct {
	Identity string `json:"identity"`
}

type AccountResponse struct {
	Identity       string `json:"identity"`
	Balance        uint64 `json:"balance"`
	StakedAmount   uint64 `json:"staked_amount"`
	BorrowedAmount uint64 `json:"borrowed_amount"`
}

type GetTotalsRequest struct{}

type TotalsResponse struct {
	TotalStaked   uint64 `json:"total_staked"`
	TotalBorrowed uint64 `json:"total_borrowed"`
}

// LedgerServiceServer 帳本服務的伺服器端介面
type LedgerServiceServer interface {
	Deposit(context.Context, *AmountRequest) (*OperationResponse, error)
	Withdraw(context.Context, *AmountRequest) (*OperationResponse, error)
	Stake(context.Context, *AmountRequest) (*OperationResponse, error)
	Unstake(context.Context, *AmountRequest) (*OperationResponse, error)
	Borrow(context.Context, *AmountRequest) (*OperationResponse, error)
	Repay(context.Context, *AmountRequest) (*OperationResponse, error)
	GetAccount(context.Context, *GetAccountRequest) (*AccountResponse, error)
	GetTotals(context.Context, *GetTotalsRequest) (*TotalsResponse, error)
}

// RegisterLedgerServiceServer 註冊帳本服務
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&ledgerServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unaryHandler 產生 grpc.MethodHandler，行為與 protoc 產生的 handler 相同
func unaryHandler[Req, Resp any](method string, call func(LedgerServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(LedgerServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ledgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Deposit", Handler: unaryHandler("Deposit", LedgerServiceServer.Deposit)},
		{MethodName: "Withdraw", Handler: unaryHandler("Withdraw", LedgerServiceServer.Withdraw)},
		{MethodName: "Stake", Handler: unaryHandler("Stake", LedgerServiceServer.Stake)},
		{MethodName: "Unstake", Handler: unaryHandler("Unstake", LedgerServiceServer.Unstake)},
		{MethodName: "Borrow", Handler: unaryHandler("Borrow", LedgerServiceServer.Borrow)},
		{MethodName: "Repay", Handler: unaryHandler("Repay", LedgerServiceServer.Repay)},
		{MethodName: "GetAccount", Handler: unaryHandler("GetAccount", LedgerServiceServer.GetAccount)},
		{MethodName: "GetTotals", Handler: unaryHandler("GetTotals", LedgerServiceServer.GetTotals)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger/v1/ledger.json",
}

// LedgerClient 帳本服務客戶端
type LedgerClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerClient(cc grpc.ClientConnInterface) *LedgerClient {
	return &LedgerClient{cc: cc}
}

func (c *LedgerClient) operation(ctx context.Context, method string, amount uint64, opts ...grpc.CallOption) (*OperationResponse, error) {
	out := new(OperationResponse)
	if err := c.cc.Invoke(ctx, fullMethod(method), &AmountRequest{Amount: amount}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerClient) Deposit(ctx context.Context, amount uint64, opts ...grpc.CallOption) (*OperationResponse, error) {
	return c.operation(ctx, "Deposit", amount, opts...)
}

func (c *LedgerClient) Withdraw(ctx context.Context, amount uint64, opts ...grpc.CallOption) (*OperationResponse, error) {
	return c.operation(ctx, "Withdraw", amount, opts...)
}

func (c *LedgerClient) Stake(ctx context.Context, amount uint64, opts ...grpc.CallOption) (*OperationResponse, error) {
	return c.operation(ctx, "Stake", amount, opts...)
}

func (c *LedgerClient) Unstake(ctx context.Context, amount uint64, opts ...grpc.CallOption) (*OperationResponse, error) {
	return c.operation(ctx, "Unstake", amount, opts...)
}

func (c *LedgerClient) Borrow(ctx context.Context, amount uint64, opts ...grpc.CallOption) (*OperationResponse, error) {
	return c.operation(ctx, "Borrow", amount, opts...)
}

func (c *LedgerClient) Repay(ctx context.Context, amount uint64, opts ...grpc.CallOption) (*OperationResponse, error) {
	return c.operation(ctx, "Repay", amount, opts...)
}

func (c *LedgerClient) GetAccount(ctx context.Context, identity string, opts ...grpc.CallOption) (*AccountResponse, error) {
	out := new(AccountResponse)
	if err := c.cc.Invoke(ctx, fullMethod("GetAccount"), &GetAccountRequest{Identity: identity}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerClient) GetTotals(ctx context.Context, opts ...grpc.CallOption) (*TotalsResponse, error) {
	out := new(TotalsResponse)
	if err := c.cc.Invoke(ctx, fullMethod("GetTotals"), &GetTotalsRequest{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
