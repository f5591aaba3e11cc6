package grading

import (
	"regexp"
	"strings"
)

var (
	supTagRe   = regexp.MustCompile(`(?is)<sup>(.*?)</sup>`)
	subTagRe   = regexp.MustCompile(`(?is)<sub>(.*?)</sub>`)
	htmlTagRe  = regexp.MustCompile(`<[^>]+>`)
	spaceRe    = regexp.MustCompile(`\s+`)
	katexRe    = regexp.MustCompile(`(?s)^<span class=["']katex-equation["'][^>]*data-latex=["']([^"']+)["'][^>]*>.*</span>$`)
	implMulLRe = regexp.MustCompile(`(\d)([a-zA-Z(])`)
	implMulRRe = regexp.MustCompile(`([a-zA-Z)])(\d)`)
)

var superToASCII = map[rune]string{
	'⁰': "0", '¹': "1", '²': "2", '³': "3", '⁴': "4",
	'⁵': "5", '⁶': "6", '⁷': "7", '⁸': "8", '⁹': "9",
	'⁺': "+", '⁻': "-", '⁼': "=", '⁽': "(", '⁾': ")", 'ⁿ': "n",
}

var subToASCII = map[rune]string{
	'₀': "0", '₁': "1", '₂': "2", '₃': "3", '₄': "4",
	'₅': "5", '₆': "6", '₇': "7", '₈': "8", '₉': "9",
	'₊': "+", '₋': "-", '₌': "=", '₍': "(", '₎': ")",
}

// ExtractExpression 从富文本答案中取出待比较的表达式：
// 整体是单个 KaTeX 公式时返回其 LaTeX 源码，否则原样返回。
func ExtractExpression(html string) (expr string, isLatex bool) {
	if m := katexRe.FindStringSubmatch(html); m != nil {
		return m[1], true
	}
	return html, false
}

// NormalizeMath 把富文本数学输入转成表达式求值器可解析的形式：
// 上标 → **(…)，下标 → _(…)，×÷− → * / -，去标签、去空白、补隐式乘号。
func NormalizeMath(html string) string {
	s := supTagRe.ReplaceAllString(html, "^($1)")
	s = subTagRe.ReplaceAllString(s, "_($1)")

	var b strings.Builder
	for _, r := range s {
		if a, ok := superToASCII[r]; ok {
			b.WriteString("^" + a)
			continue
		}
		if a, ok := subToASCII[r]; ok {
			b.WriteString("_" + a)
			continue
		}
		b.WriteRune(r)
	}
	s = b.String()

	s = htmlTagRe.ReplaceAllString(s, "")
	s = strings.NewReplacer("×", "*", "÷", "/", "−", "-").Replace(s)
	s = spaceRe.ReplaceAllString(s, "")

	// 隐式乘号：4x -> 4*x，2(x+1) -> 2*(x+1)
	s = implMulLRe.ReplaceAllString(s, "$1*$2")
	s = implMulRRe.ReplaceAllString(s, "$1*$2")

	// 求值器的幂运算符是 **
	s = strings.ReplaceAll(s, "^", "**")
	return s
}

// NormalizeLiteral 字面比较用的规范化：上下标统一还原为普通字符，
// 去掉其余标签，折叠空白。两个答案规范化后相等即视为一致。
func NormalizeLiteral(html string) string {
	s := supTagRe.ReplaceAllString(html, "$1")
	s = subTagRe.ReplaceAllString(s, "$1")
	s = htmlTagRe.ReplaceAllString(s, "")

	var b strings.Builder
	for _, r := range s {
		if a, ok := superToASCII[r]; ok {
			b.WriteString(a)
			continue
		}
		if a, ok := subToASCII[r]; ok {
			b.WriteString(a)
			continue
		}
		b.WriteRune(r)
	}
	s = b.String()

	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func stripWhitespace(s string) string {
	return spaceRe.ReplaceAllString(s, "")
}
