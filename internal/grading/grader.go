package grading

// Grader 判定单题作答正误。选择题是下标严格相等；填空题先做数学等价判定，
// 判定能力失败时回退到规范化后的字面比较——顺序不可颠倒，回退不可跳过。
type Grader struct {
	eval Evaluator
}

func NewGrader(eval Evaluator) *Grader {
	if eval == nil {
		eval = NewExprEvaluator()
	}
	return &Grader{eval: eval}
}

// CheckMCQ 选中项与正确项严格相等，无部分分。
func (g *Grader) CheckMCQ(selected, correctIndex int) bool {
	return selected == correctIndex
}

// CheckTyped 两级比较：数学等价优先，失败才落到字面比较。
func (g *Grader) CheckTyped(given, want string) bool {
	givenExpr, givenLatex := ExtractExpression(given)
	wantExpr, wantLatex := ExtractExpression(want)

	ok, err := g.eval.Equivalent(NormalizeMath(givenExpr), NormalizeMath(wantExpr))
	if err == nil {
		return ok
	}

	// 回退：两边都是公式时直接比 LaTeX 源码（忽略空白），否则比规范化文本
	if givenLatex && wantLatex {
		return stripWhitespace(givenExpr) == stripWhitespace(wantExpr)
	}
	return NormalizeLiteral(given) == NormalizeLiteral(want)
}
