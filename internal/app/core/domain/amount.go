package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// CurrencyScale 金額精度：小數點後 8 位 (最小單位 = 1e-8)
const CurrencyScale = 8

// FormatAmount 將最小單位轉成可讀的十進位字串，只用於 log 與顯示
func FormatAmount(amount uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -CurrencyScale).String()
}
