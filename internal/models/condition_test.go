package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionNode_EvaluateLeaf(t *testing.T) {
	leaf := ConditionNode{Parameter: "voltage", Operator: "gt", Value: 240}

	assert.True(t, leaf.Evaluate(map[string]float64{"voltage": 245}))
	assert.False(t, leaf.Evaluate(map[string]float64{"voltage": 230}))
	assert.False(t, leaf.Evaluate(map[string]float64{}), "missing parameter evaluates to false, never errors")
}

func TestConditionNode_EvaluateLeaf_UnknownOperator(t *testing.T) {
	leaf := ConditionNode{Parameter: "voltage", Operator: "between", Value: 240}
	assert.False(t, leaf.Evaluate(map[string]float64{"voltage": 245}))
}

func TestConditionNode_EvaluateBranch_Nested(t *testing.T) {
	// ( (voltage>200 AND current>3) OR frequency>55 )
	tree := ConditionNode{
		Operator: "OR",
		Conditions: []ConditionNode{
			{
				Operator: "AND",
				Conditions: []ConditionNode{
					{Parameter: "voltage", Operator: "gt", Value: 200},
					{Parameter: "current", Operator: "gt", Value: 3},
				},
			},
			{Parameter: "frequency", Operator: "gt", Value: 55},
		},
	}

	assert.True(t, tree.Evaluate(map[string]float64{"voltage": 240, "current": 4, "frequency": 50}))
	assert.True(t, tree.Evaluate(map[string]float64{"voltage": 180, "current": 2, "frequency": 60}))
	assert.False(t, tree.Evaluate(map[string]float64{"voltage": 180, "current": 4, "frequency": 50}))
}

func TestConditionNode_EvaluateBranch_EmptyAndUnknownOperator(t *testing.T) {
	empty := ConditionNode{Operator: "AND", Conditions: []ConditionNode{}}
	assert.False(t, empty.Evaluate(map[string]float64{}))

	unknown := ConditionNode{
		Operator: "XOR",
		Conditions: []ConditionNode{
			{Parameter: "voltage", Operator: "gt", Value: 1},
		},
	}
	assert.False(t, unknown.Evaluate(map[string]float64{"voltage": 100}))
}

func TestConditionNode_RoundTrip(t *testing.T) {
	tree := ConditionNode{
		Operator: "AND",
		Conditions: []ConditionNode{
			{Parameter: "voltage", Operator: "gt", Value: 200},
			{Parameter: "current", Operator: "lte", Value: 10},
		},
	}

	raw, err := MarshalCondition(tree)
	require.NoError(t, err)

	parsed, err := UnmarshalCondition(raw)
	require.NoError(t, err)

	assert.Equal(t, tree, parsed)
}

func TestConditionNode_Render(t *testing.T) {
	leaf := ConditionNode{Parameter: "voltage", Operator: "gt", Value: 240}
	msg := leaf.Render("overvoltage", map[string]float64{"voltage": 245})
	assert.Equal(t, "[overvoltage] voltage (245.00) gt 240.00", msg)
}
