package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	grpc_adapter "github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	pkggrpc "github.com/JoeShih716/go-stake-ledger/pkg/grpc"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "ledger gRPC address")
	totalCount := flag.Int("total", 10000, "number of deposits in the load run")
	concurrency := flag.Int("concurrency", 100, "concurrent requests in the load run")
	measure := flag.Bool("measure", false, "print the WAL size of a single entry and exit")
	flag.Parse()

	if *measure {
		measureEntrySize()
		return
	}

	conn, err := grpc.NewClient(*addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(pkggrpc.CodecName)),
	)
	if err != nil {
		log.Fatalf("did not connect: %v", err)
	}
	defer conn.Close()
	c := grpc_adapter.NewLedgerClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	busyDemo(ctx, c)
	loadRun(ctx, c, *totalCount, *concurrency)
}

// busyDemo 同一身分同時發出兩筆提款，其中一筆應該被 Busy 拒絕
func busyDemo(ctx context.Context, c *grpc_adapter.LedgerClient) {
	caller := domain.Identity(uuid.NewString())
	callerCtx := grpc_adapter.WithCaller(ctx, caller)

	resp, err := c.Deposit(callerCtx, 100)
	if err != nil {
		log.Fatalf("deposit failed: %v", err)
	}
	fmt.Printf("[%s] deposited, balance %s\n", caller, domain.FormatAmount(resp.Account.Balance))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			resp, err := c.Withdraw(callerCtx, 60)
			switch {
			case err == nil:
				fmt.Printf("withdraw #%d ok, balance %s\n", idx, domain.FormatAmount(resp.Account.Balance))
			case status.Code(err) == codes.Aborted:
				fmt.Printf("withdraw #%d rejected: %s\n", idx, status.Convert(err).Message())
			default:
				fmt.Printf("withdraw #%d failed: %v\n", idx, err)
			}
		}(i)
	}
	wg.Wait()

	acc, err := c.GetAccount(ctx, string(caller))
	if err != nil {
		log.Fatalf("get account failed: %v", err)
	}
	fmt.Printf("[%s] final balance %s\n", caller, domain.FormatAmount(acc.Balance))
}

// loadRun 每個請求使用不同身分，量測 TPS
func loadRun(ctx context.Context, c *grpc_adapter.LedgerClient, totalCount, concurrency int) {
	var wg sync.WaitGroup
	var failed atomic.Int64
	wg.Add(totalCount)

	sem := make(chan struct{}, concurrency)

	startTime := time.Now()

	for i := 0; i < totalCount; i++ {
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			callerCtx := grpc_adapter.WithCaller(ctx, domain.Identity(uuid.NewString()))
			if _, err := c.Deposit(callerCtx, 10000); err != nil {
				failed.Add(1)
				if idx%1000 == 0 {
					log.Printf("Deposit %d failed: %v", idx, err)
				}
			}
		}(i)
	}

	wg.Wait()

	elapsed := time.Since(startTime)
	fmt.Printf("Completed %d requests (%d failed) in %v\n", totalCount, failed.Load(), elapsed)
	fmt.Printf("TPS: %.2f\n", float64(totalCount)/elapsed.Seconds())

	totals, err := c.GetTotals(ctx)
	if err == nil {
		fmt.Printf("Totals: staked %s, borrowed %s\n",
			domain.FormatAmount(totals.TotalStaked), domain.FormatAmount(totals.TotalBorrowed))
	}
}

// measureEntrySize 計算單筆 WAL 分錄大小
func measureEntrySize() {
	entry := &domain.Entry{
		Sequence:  1234567890,
		EntryID:   uuid.New(),
		Owner:     domain.Identity(uuid.NewString()),
		Amount:    1000000000000000000,
		Type:      domain.EntryTypeWithdraw,
		CreatedAt: time.Now().UnixNano(),
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(entry); err != nil {
		panic(err)
	}

	fmt.Printf("Single Entry JSON Size: %d bytes\n", buf.Len())
}
