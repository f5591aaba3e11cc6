package grading

import (
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
)

// Evaluator 数学表达式等价性判定能力。实现方报告两个表达式是否数学等价；
// 无法判定（解析失败、未知符号等）时返回 error，由调用方回退到字面比较。
type Evaluator interface {
	Equivalent(a, b string) (bool, error)
}

const numericTolerance = 1e-9

// exprScope 数值比较使用的固定取样点
var exprScope = map[string]interface{}{
	"x": 2.0,
	"y": 3.0,
	"z": 4.0,
}

// ExprEvaluator 基于表达式求值的等价判定：两个表达式在固定取样点上的值
// 相差小于容差即认为等价。
type ExprEvaluator struct{}

func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{}
}

func (e *ExprEvaluator) Equivalent(a, b string) (bool, error) {
	va, err := evalAt(a, exprScope)
	if err != nil {
		return false, err
	}
	vb, err := evalAt(b, exprScope)
	if err != nil {
		return false, err
	}
	return math.Abs(va-vb) < numericTolerance, nil
}

func evalAt(expr string, scope map[string]interface{}) (float64, error) {
	ev, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return 0, err
	}
	v, err := ev.Evaluate(scope)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("expression %q is not numeric", expr)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expression %q does not evaluate to a finite value", expr)
	}
	return f, nil
}
