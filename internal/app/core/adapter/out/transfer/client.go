package transfer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/usecase"
	pkggrpc "github.com/JoeShih716/go-stake-ledger/pkg/grpc"
)

// Config 外部轉帳服務設定
type Config struct {
	// Target 固定的外部服務地址，啟動時驗證一次
	Target string `yaml:"target"`
	// Timeout 單次呼叫上限，超時視為 Unreachable (0 = 不設上限)
	Timeout time.Duration `yaml:"timeout"`
}

// Client 透過 gRPC 呼叫外部轉帳服務
type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	logger  zerolog.Logger
}

// NewClient 建立轉帳客戶端
// 目標地址為空或無法解析時回傳 domain.ErrInvalidTarget
//
// 參數:
//
//	pool: gRPC 連線池
//	cfg: 服務設定
//	logger: logger
func NewClient(pool *pkggrpc.Pool, cfg Config, logger zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Target) == "" {
		return nil, fmt.Errorf("%w: empty target", domain.ErrInvalidTarget)
	}
	conn, err := pool.GetConnection(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidTarget, err)
	}
	return &Client{
		conn:    conn,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Transfer 呼叫外部服務並轉成三態結果
// 傳輸層錯誤 (連不上、timeout、回應格式錯誤) 一律視為 Unreachable
func (c *Client) Transfer(ctx context.Context, req domain.TransferRequest) domain.Outcome {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var resp TransferResponse
	if err := c.conn.Invoke(ctx, TransferMethod, &req, &resp); err != nil {
		st := status.Convert(err)
		reason := fmt.Sprintf("%s: %s", st.Code(), st.Message())
		c.logger.Warn().Str("code", st.Code().String()).Str("detail", st.Message()).Msg("transfer call failed")
		return domain.Unreachable(reason)
	}

	switch {
	case resp.Error != nil:
		return domain.Declined(resp.Error.String())
	case resp.BlockIndex != nil:
		return domain.Confirmed(*resp.BlockIndex)
	default:
		return domain.Unreachable("malformed transfer response")
	}
}

var _ usecase.TransferClient = (*Client)(nil)
