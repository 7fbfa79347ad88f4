package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
)

func TestParseRuleSet_Defaults(t *testing.T) {
	rules, err := factory.ParseRuleSet(factory.DefaultRuleSetJSON)
	require.NoError(t, err)

	require.Len(t, rules, 4)
	seller := rules[payroll.PositionSeller]
	assert.True(t, seller.BaseRate.Equal(payroll.MustDecimal("500")))
	assert.True(t, seller.SalesPercentage.Equal(payroll.MustDecimal("0.1")))
}

func TestParseRuleSet_DuplicatePosition_Rejected(t *testing.T) {
	doc := `{"rules": [
		{"position": "seller", "base_rate": "500", "sales_percentage": "0.1"},
		{"position": "seller", "base_rate": "600", "sales_percentage": "0.2"}
	]}`

	_, err := factory.ParseRuleSet(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate rule")
}

func TestParseRuleSet_BadDecimal_Rejected(t *testing.T) {
	doc := `{"rules": [{"position": "seller", "base_rate": "lots", "sales_percentage": "0.1"}]}`

	_, err := factory.ParseRuleSet(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid base_rate")
}

func TestParseRuleSet_OutOfBounds_Rejected(t *testing.T) {
	doc := `{"rules": [{"position": "seller", "base_rate": "500", "sales_percentage": "1.5"}]}`

	_, err := factory.ParseRuleSet(doc)
	assert.ErrorIs(t, err, payroll.ErrValidation)
}

func TestParseRuleSet_Empty_Rejected(t *testing.T) {
	_, err := factory.ParseRuleSet(`{"rules": []}`)
	assert.Error(t, err)
}

func TestToJSON_StablePositionOrder(t *testing.T) {
	rules, err := factory.ParseRuleSet(factory.DefaultRuleSetJSON)
	require.NoError(t, err)

	doc := factory.ToJSON(rules)
	require.Len(t, doc.Rules, 4)
	assert.Equal(t, "seller", doc.Rules[0].Position)
	assert.Equal(t, "admin", doc.Rules[1].Position)
	assert.Equal(t, "manager", doc.Rules[2].Position)
	assert.Equal(t, "courier", doc.Rules[3].Position)
}
