package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/usecase"
)

type GrpcServer struct {
	core *usecase.CoreUseCase
}

var _ LedgerServiceServer = (*GrpcServer)(nil)

func NewGrpcServer(core *usecase.CoreUseCase) *GrpcServer {
	return &GrpcServer{
		core: core,
	}
}

type operationFunc func(ctx context.Context, caller domain.Identity, amount uint64) error

// run 執行一個帳戶操作，成功後回傳呼叫者最新的帳戶狀態
func (s *GrpcServer) run(ctx context.Context, op operationFunc, req *AmountRequest) (*OperationResponse, error) {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing caller identity")
	}
	if err := op(ctx, caller, req.Amount); err != nil {
		return nil, toStatus(err)
	}

	// Best Effort: 操作已成功，查詢失敗只影響回傳內容
	acc, _ := s.core.GetAccount(ctx, caller)
	return &OperationResponse{Account: toAccountResponse(caller, acc)}, nil
}

func (s *GrpcServer) Deposit(ctx context.Context, req *AmountRequest) (*OperationResponse, error) {
	return s.run(ctx, s.core.Deposit, req)
}

func (s *GrpcServer) Withdraw(ctx context.Context, req *AmountRequest) (*OperationResponse, error) {
	return s.run(ctx, s.core.Withdraw, req)
}

func (s *GrpcServer) Stake(ctx context.Context, req *AmountRequest) (*OperationResponse, error) {
	return s.run(ctx, s.core.Stake, req)
}

func (s *GrpcServer) Unstake(ctx context.Context, req *AmountRequest) (*OperationResponse, error) {
	return s.run(ctx, s.core.Unstake, req)
}

func (s *GrpcServer) Borrow(ctx context.Context, req *AmountRequest) (*OperationResponse, error) {
	return s.run(ctx, s.core.Borrow, req)
}

func (s *GrpcServer) Repay(ctx context.Context, req *AmountRequest) (*OperationResponse, error) {
	return s.run(ctx, s.core.Repay, req)
}

// GetAccount 查詢任意身分的帳戶，未知身分回傳全零
func (s *GrpcServer) GetAccount(ctx context.Context, req *GetAccountRequest) (*AccountResponse, error) {
	if req.Identity == "" {
		return nil, status.Error(codes.InvalidArgument, domain.ErrInvalidIdentity.Error())
	}
	id := domain.Identity(req.Identity)
	acc, err := s.core.GetAccount(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := toAccountResponse(id, acc)
	return &resp, nil
}

func (s *GrpcServer) GetTotals(ctx context.Context, _ *GetTotalsRequest) (*TotalsResponse, error) {
	totals, err := s.core.GetTotals(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &TotalsResponse{
		TotalStaked:   totals.Staked,
		TotalBorrowed: totals.Borrowed,
	}, nil
}

func toAccountResponse(id domain.Identity, acc domain.Account) AccountResponse {
	return AccountResponse{
		Identity:       string(id),
		Balance:        acc.Balance,
		StakedAmount:   acc.StakedAmount,
		BorrowedAmount: acc.BorrowedAmount,
	}
}

// toStatus 將領域錯誤轉為 gRPC status
// 不一致錯誤可能包著 Declined/Unreachable，必須最先判斷
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, domain.ErrLedgerInconsistent):
		code = codes.Internal
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidIdentity):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrAccountNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInsufficientStaked),
		errors.Is(err, domain.ErrInsufficientCollateral),
		errors.Is(err, domain.ErrInsufficientBorrowed),
		errors.Is(err, domain.ErrAmountOverflow):
		code = codes.FailedPrecondition
	case errors.Is(err, domain.ErrBusy),
		errors.Is(err, domain.ErrTransferDeclined):
		code = codes.Aborted
	case errors.Is(err, domain.ErrTransferUnreachable),
		errors.Is(err, domain.ErrLedgerClosed):
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
