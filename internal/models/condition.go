package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BranchOperator joins child conditions.
type BranchOperator string

const (
	BranchAND BranchOperator = "AND"
	BranchOR  BranchOperator = "OR"
)

// LeafOperator compares a metric value against a threshold.
type LeafOperator string

const (
	OpGT  LeafOperator = "gt"
	OpLT  LeafOperator = "lt"
	OpGTE LeafOperator = "gte"
	OpLTE LeafOperator = "lte"
	OpEQ  LeafOperator = "eq"
	OpNEQ LeafOperator = "neq"
)

// ConditionNode is the recursive sum type Leaf | Branch described in
// spec.md §4.2 and DESIGN NOTES §9. The deserializer dispatches on the
// presence of "conditions": a Branch carries Conditions, a Leaf does not.
type ConditionNode struct {
	// Leaf fields
	Parameter string       `json:"parameter,omitempty"`
	Operator  string       `json:"operator"`
	Value     float64      `json:"value,omitempty"`

	// Branch fields
	Conditions []ConditionNode `json:"conditions,omitempty"`
}

// IsBranch reports whether this node is a Branch (has child conditions).
func (n ConditionNode) IsBranch() bool {
	return n.Conditions != nil
}

// Evaluate walks the tree against a metric bag. Evaluation is total: an
// unknown operator, a missing parameter, or an empty branch all evaluate to
// false rather than erroring, per spec.md §4.2.
func (n ConditionNode) Evaluate(metrics map[string]float64) bool {
	if n.IsBranch() {
		return n.evaluateBranch(metrics)
	}
	return n.evaluateLeaf(metrics)
}

func (n ConditionNode) evaluateLeaf(metrics map[string]float64) bool {
	actual, ok := metrics[n.Parameter]
	if !ok {
		return false
	}
	switch LeafOperator(n.Operator) {
	case OpGT:
		return actual > n.Value
	case OpLT:
		return actual < n.Value
	case OpGTE:
		return actual >= n.Value
	case OpLTE:
		return actual <= n.Value
	case OpEQ:
		return actual == n.Value
	case OpNEQ:
		return actual != n.Value
	default:
		return false
	}
}

func (n ConditionNode) evaluateBranch(metrics map[string]float64) bool {
	if len(n.Conditions) == 0 {
		return false
	}
	switch BranchOperator(n.Operator) {
	case BranchAND:
		for _, child := range n.Conditions {
			if !child.Evaluate(metrics) {
				return false
			}
		}
		return true
	case BranchOR:
		for _, child := range n.Conditions {
			if child.Evaluate(metrics) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Render produces the "[<rule_name>] <expr>" message described in
// spec.md §4.2, where <expr> renders each leaf as "<param> (<actual>)
// <op> <threshold>" joined by the branch operator.
func (n ConditionNode) Render(ruleName string, metrics map[string]float64) string {
	return fmt.Sprintf("[%s] %s", ruleName, n.renderNode(metrics))
}

func (n ConditionNode) renderNode(metrics map[string]float64) string {
	if n.IsBranch() {
		parts := make([]string, 0, len(n.Conditions))
		for _, child := range n.Conditions {
			parts = append(parts, child.renderNode(metrics))
		}
		joiner := " " + string(n.Operator) + " "
		return "(" + strings.Join(parts, joiner) + ")"
	}
	actual, ok := metrics[n.Parameter]
	actualStr := "?"
	if ok {
		actualStr = fmt.Sprintf("%.2f", actual)
	}
	return fmt.Sprintf("%s (%s) %s %.2f", n.Parameter, actualStr, n.Operator, n.Value)
}

// MarshalCondition serializes a condition tree for storage.
func MarshalCondition(n ConditionNode) (string, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalCondition parses a stored condition tree.
func UnmarshalCondition(raw string) (ConditionNode, error) {
	var n ConditionNode
	if raw == "" {
		return n, nil
	}
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return n, fmt.Errorf("parse condition tree: %w", err)
	}
	return n, nil
}
