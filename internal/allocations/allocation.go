// Package allocations はユーザーごとのポートフォリオ配分（株式・投資信託・債券）を扱います。
package allocations

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	// Total は配分の合計です。
	Total = 100
	// MaxRandomShare はサインアップ時に株式・投資信託へ割り当てる最大値です。
	MaxRandomShare = 40
)

// Allocation はユーザー1人分の配分です。
type Allocation struct {
	UserID    string
	Stocks    int
	Funds     int
	Bonds     int
	UpdatedAt time.Time
}

// Store は配分を保存するストアです。Upsert は既存の配分を上書きします（加算しない）。
type Store interface {
	Upsert(ctx context.Context, userID string, stocks, funds, bonds int) error
}

// DrawFunc は [1, n] の整数を返す乱数関数です。
type DrawFunc func(n int) int

// Generator はサインアップ直後の初期配分を生成します。
type Generator struct {
	draw DrawFunc
}

// NewGenerator は Generator を作成します。draw が nil なら math/rand/v2 を使います。
func NewGenerator(draw DrawFunc) *Generator {
	if draw == nil {
		draw = func(n int) int { return rand.IntN(n) + 1 }
	}
	return &Generator{draw: draw}
}

// Random は株式と投資信託を [1, MaxRandomShare] から引き、残りを債券に割り当てます。
// 債券は Total - stocks - funds をそのまま使い、丸めや下限の補正はしません。
func (g *Generator) Random() (stocks, funds, bonds int) {
	stocks = g.draw(MaxRandomShare)
	funds = g.draw(MaxRandomShare)
	bonds = Total - (stocks + funds)
	return stocks, funds, bonds
}
