package services

import (
	"testing"

	"loyalty-points-system/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateOrderPoints(t *testing.T) {
	program := &models.BonusProgram{
		PointsPerUnit:  decimal.NewFromFloat(0.5), // half a point per currency unit
		MinOrderAmount: decimal.NewFromInt(10),
	}

	tests := []struct {
		name       string
		program    *models.BonusProgram
		orderTotal decimal.Decimal
		multiplier decimal.Decimal
		want       int64
	}{
		{
			name:       "base rate",
			program:    program,
			orderTotal: decimal.NewFromInt(100),
			multiplier: decimal.NewFromInt(1),
			want:       50,
		},
		{
			name:       "fractional points floor to whole",
			program:    program,
			orderTotal: decimal.NewFromFloat(33.33),
			multiplier: decimal.NewFromInt(1),
			want:       16, // 16.665 floors
		},
		{
			name:       "below minimum order amount",
			program:    program,
			orderTotal: decimal.NewFromFloat(9.99),
			multiplier: decimal.NewFromInt(1),
			want:       0,
		},
		{
			name:       "minimum order amount is inclusive",
			program:    program,
			orderTotal: decimal.NewFromInt(10),
			multiplier: decimal.NewFromInt(1),
			want:       5,
		},
		{
			name:       "tier multiplier applies",
			program:    program,
			orderTotal: decimal.NewFromInt(100),
			multiplier: decimal.NewFromFloat(1.5),
			want:       75,
		},
		{
			name: "per-order cap",
			program: &models.BonusProgram{
				PointsPerUnit:     decimal.NewFromInt(1),
				MinOrderAmount:    decimal.Zero,
				MaxPointsPerOrder: 200,
			},
			orderTotal: decimal.NewFromInt(1000),
			multiplier: decimal.NewFromInt(1),
			want:       200,
		},
		{
			name: "zero cap means uncapped",
			program: &models.BonusProgram{
				PointsPerUnit:  decimal.NewFromInt(1),
				MinOrderAmount: decimal.Zero,
			},
			orderTotal: decimal.NewFromInt(100000),
			multiplier: decimal.NewFromInt(1),
			want:       100000,
		},
		{
			name: "zero rate earns nothing",
			program: &models.BonusProgram{
				PointsPerUnit:  decimal.Zero,
				MinOrderAmount: decimal.Zero,
			},
			orderTotal: decimal.NewFromInt(500),
			multiplier: decimal.NewFromInt(1),
			want:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateOrderPoints(tt.program, tt.orderTotal, tt.multiplier)
			assert.Equal(t, tt.want, got)
		})
	}
}
