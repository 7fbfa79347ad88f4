package payroll_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payroll"
)

func TestCompensationRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    payroll.CompensationRule
		wantErr bool
	}{
		{
			name: "valid seller rule",
			rule: payroll.CompensationRule{
				Position:        payroll.PositionSeller,
				BaseRate:        payroll.MustDecimal("500"),
				SalesPercentage: payroll.MustDecimal("0.1"),
			},
		},
		{
			name: "percentage of exactly one is allowed",
			rule: payroll.CompensationRule{
				Position:        payroll.PositionManager,
				BaseRate:        payroll.MustDecimal("800"),
				SalesPercentage: payroll.MustDecimal("1"),
			},
		},
		{
			name: "negative base rate",
			rule: payroll.CompensationRule{
				Position:        payroll.PositionSeller,
				BaseRate:        payroll.MustDecimal("-1"),
				SalesPercentage: payroll.MustDecimal("0.1"),
			},
			wantErr: true,
		},
		{
			name: "percentage above one",
			rule: payroll.CompensationRule{
				Position:        payroll.PositionSeller,
				BaseRate:        payroll.MustDecimal("500"),
				SalesPercentage: payroll.MustDecimal("1.01"),
			},
			wantErr: true,
		},
		{
			name: "negative percentage",
			rule: payroll.CompensationRule{
				Position:        payroll.PositionSeller,
				BaseRate:        payroll.MustDecimal("500"),
				SalesPercentage: payroll.MustDecimal("-0.1"),
			},
			wantErr: true,
		},
		{
			name: "unknown position",
			rule: payroll.CompensationRule{
				Position:        "janitor",
				BaseRate:        payroll.MustDecimal("500"),
				SalesPercentage: payroll.MustDecimal("0.1"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRuleSet_Validate_RejectsMiskeyedRule(t *testing.T) {
	rs := payroll.RuleSet{
		payroll.PositionSeller: {
			Position:        payroll.PositionManager,
			BaseRate:        payroll.MustDecimal("800"),
			SalesPercentage: payroll.MustDecimal("0.05"),
		},
	}
	assert.ErrorIs(t, rs.Validate(), payroll.ErrValidation)
}

func TestRuleBoundsError_Message(t *testing.T) {
	rule := payroll.CompensationRule{
		Position:        payroll.PositionSeller,
		BaseRate:        payroll.MustDecimal("-10"),
		SalesPercentage: payroll.MustDecimal("0.1"),
	}
	err := rule.Validate()
	require.Error(t, err)

	var boundsErr *payroll.RuleBoundsError
	require.ErrorAs(t, err, &boundsErr)
	assert.Equal(t, "baseRate", boundsErr.Field)
	assert.ErrorIs(t, err, payroll.ErrValidation)
}
