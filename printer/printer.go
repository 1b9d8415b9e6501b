// Package printer renders a lang.Node AST back to Lua source text in one of
// three modes: Compress (minimal legal token stream), Auto (re-indented with
// synthesized blank lines between statement groups), and Manual (like Auto
// but preserving the author's own blank lines from the lexer's comment
// sidecar).
package printer

import (
	"bufio"
	"io"
	"strings"

	"github.com/chazu/dlfmt/lang"
)

// bufferSize matches the reference implementation's 64 KiB ring buffer.
// bufio.Writer already gives us "accumulate, flush on overflow, flush once
// more at the end" for free, so there is no reason to hand-roll the ring
// buffer ourselves.
const bufferSize = 64 * 1024

// Print renders root in the given mode to w. comments is the lexer's sidecar
// sequence for the same file; pass nil when printing Compress output for a
// lexer that was run in Compress mode (no comments were recorded).
func Print(root *lang.Node, comments []lang.CommentRecord, mode lang.Mode, w io.Writer) error {
	bw := bufio.NewWriterSize(w, bufferSize)
	p := &printer{
		mode:     mode,
		w:        bw,
		comments: comments,
		lastByte: 0,
	}
	p.printBlock(root)
	p.flushRemainingComments()
	return bw.Flush()
}

type printer struct {
	mode     lang.Mode
	w        *bufio.Writer
	comments []lang.CommentRecord
	cidx     int

	indent      int
	atLineStart bool
	lastByte    byte
}

// group classifies a top-level statement for the Auto-mode blank-line rule.
type group int

const (
	groupBlock group = iota
	groupLocalDecl
	groupLabel
	groupAssign
	groupBreak
	groupReturn
	groupCall
	groupGoto
)

func statGroup(n *lang.Node) group {
	switch n.Kind {
	case lang.KindIfStat, lang.KindWhileStat, lang.KindDoStat, lang.KindNumericForStat,
		lang.KindGenericForStat, lang.KindRepeatStat, lang.KindFunctionStat, lang.KindLocalFunctionStat:
		return groupBlock
	case lang.KindLocalVarStat:
		return groupLocalDecl
	case lang.KindLabelStat:
		return groupLabel
	case lang.KindAssignmentStat:
		return groupAssign
	case lang.KindBreakStat:
		return groupBreak
	case lang.KindReturnStat:
		return groupReturn
	case lang.KindCallExprStat:
		return groupCall
	case lang.KindGotoStat:
		return groupGoto
	}
	return groupCall
}

// --- low-level output ------------------------------------------------------

func (p *printer) raw(s string) {
	if s == "" {
		return
	}
	if p.atLineStart {
		if p.mode != lang.Compress {
			for i := 0; i < p.indent; i++ {
				p.w.WriteByte('\t')
			}
		}
		p.atLineStart = false
	}
	p.w.WriteString(s)
	p.lastByte = s[len(s)-1]
}

func (p *printer) newline() {
	p.w.WriteByte('\n')
	p.atLineStart = true
	p.lastByte = 0
}

// isWordByte reports whether b can be the trailing/leading byte of an
// identifier, keyword, or number lexeme.
func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// needsSeparator reports whether a space must be inserted between two
// adjacent Compress-mode tokens to keep them from fusing into something the
// lexer would read back differently: two identifiers/keywords/numbers
// running together, "-" before "-" reading as a comment opener, "[" before
// "[" reading as a long-bracket opener, "." before "." merging two dot
// tokens, or a trailing numeric digit before "." misparsing the following
// concat/index.
func needsSeparator(prev, next byte) bool {
	if prev == 0 || next == 0 {
		return false
	}
	if isWordByte(prev) && isWordByte(next) {
		return true
	}
	if prev == '-' && next == '-' {
		return true
	}
	if (prev == '[' && next == '[') || (prev == '.' && next == '.') {
		return true
	}
	if prev >= '0' && prev <= '9' && next == '.' {
		return true
	}
	return false
}

// token writes a single lexical token, in Compress mode inserting the
// minimal separating space required to avoid re-lexing ambiguity.
func (p *printer) token(s string) {
	if s == "" {
		return
	}
	if !p.atLineStart && needsSeparator(p.lastByte, s[0]) {
		p.raw(" ")
	}
	p.raw(s)
}

func (p *printer) space() {
	if p.mode == lang.Compress {
		return
	}
	p.raw(" ")
}

// --- comment reattachment ---------------------------------------------------

// flushPendingComments emits every sidecar record strictly before beforeLine,
// each on its own line (or, for a CommentBlankLine record, as a literal
// blank line). It is a no-op in Compress mode, which never records comments.
func (p *printer) flushPendingComments(beforeLine int) {
	if p.mode == lang.Compress {
		return
	}
	for p.cidx < len(p.comments) && p.comments[p.cidx].Line < beforeLine {
		rec := p.comments[p.cidx]
		p.cidx++
		if rec.Kind == lang.CommentBlankLine {
			p.newline()
			continue
		}
		p.raw(p.commentText(rec))
		p.newline()
	}
}

// flushTrailingComment emits a same-line comment attached to line, if the
// cursor is currently positioned at one, before the newline that closes the
// current output line. An end-of-line comment sharing a line with a
// block-ending keyword is handled the same way: callers pass the line of
// that closing token.
func (p *printer) flushTrailingComment(line int) {
	if p.mode == lang.Compress {
		return
	}
	if p.cidx < len(p.comments) && p.comments[p.cidx].Kind != lang.CommentBlankLine && p.comments[p.cidx].Line == line {
		p.raw(" ")
		p.raw(p.commentText(p.comments[p.cidx]))
		p.cidx++
	}
}

func (p *printer) commentText(rec lang.CommentRecord) string {
	if rec.Kind == lang.LongComment {
		eq := strings.Repeat("=", minBracketLevel(rec.Text))
		return "--[" + eq + "[" + rec.Text + "]" + eq + "]"
	}
	return rec.Text
}

// flushRemainingComments emits any sidecar records left after the AST has
// been fully printed.
func (p *printer) flushRemainingComments() {
	if p.mode == lang.Compress {
		return
	}
	for p.cidx < len(p.comments) {
		rec := p.comments[p.cidx]
		p.cidx++
		if rec.Kind == lang.CommentBlankLine {
			p.newline()
			continue
		}
		p.raw(p.commentText(rec))
		p.newline()
	}
}

// --- statement lists ---------------------------------------------------

// printBlock prints the ordered statement sequence held in a StatList node
// (or, for the very first call, the parser's top-level root node).
func (p *printer) printBlock(list *lang.Node) {
	stmts := list.Stmts
	var prevGroup group
	for i, stmt := range stmts {
		line := stmt.Line()
		p.flushPendingComments(line)
		if p.mode == lang.FormatAuto && i > 0 {
			g := statGroup(stmt)
			if g == groupBlock || prevGroup == groupBlock || g != prevGroup {
				p.newline()
			}
		}
		p.printStmt(stmt)
		prevGroup = statGroup(stmt)
	}
}

func (p *printer) endStmtLine(line int) {
	p.flushTrailingComment(line)
	p.newline()
}

func (p *printer) printStmt(n *lang.Node) {
	switch n.Kind {
	case lang.KindCallExprStat:
		p.printExpr(n.Left)
		p.endStmtLine(n.Line())

	case lang.KindAssignmentStat:
		for i, lhs := range n.Exprs {
			if i > 0 {
				p.token(",")
				p.space()
			}
			p.printExpr(lhs)
		}
		p.space()
		p.token("=")
		p.space()
		for i, rhs := range n.Exprs2 {
			if i > 0 {
				p.token(",")
				p.space()
			}
			p.printExpr(rhs)
		}
		p.endStmtLine(n.Line())

	case lang.KindLocalVarStat:
		p.token("local")
		p.space()
		for i, name := range n.Names {
			if i > 0 {
				p.token(",")
				p.space()
			}
			p.token(name)
		}
		if len(n.Exprs) > 0 {
			p.space()
			p.token("=")
			p.space()
			for i, e := range n.Exprs {
				if i > 0 {
					p.token(",")
					p.space()
				}
				p.printExpr(e)
			}
		}
		p.endStmtLine(n.Line())

	case lang.KindLocalFunctionStat:
		p.token("local")
		p.space()
		p.token("function")
		p.space()
		p.token(n.Str)
		p.printFunctionBody(n.Left)
		p.endStmtLine(n.Left.EndToken.Line)

	case lang.KindFunctionStat:
		p.token("function")
		p.space()
		for i, name := range n.Names {
			if i > 0 {
				if n.Bool && i == len(n.Names)-1 {
					p.token(":")
				} else {
					p.token(".")
				}
			}
			p.token(name)
		}
		p.printFunctionBody(n.Left)
		p.endStmtLine(n.Left.EndToken.Line)

	case lang.KindReturnStat:
		p.token("return")
		if len(n.Exprs) > 0 {
			p.space()
			for i, e := range n.Exprs {
				if i > 0 {
					p.token(",")
					p.space()
				}
				p.printExpr(e)
			}
		}
		p.endStmtLine(n.Line())

	case lang.KindBreakStat:
		p.token("break")
		p.endStmtLine(n.Line())

	case lang.KindGotoStat:
		p.token("goto")
		p.space()
		p.token(n.Str)
		p.endStmtLine(n.Line())

	case lang.KindLabelStat:
		p.token("::")
		p.token(n.Str)
		p.token("::")
		p.endStmtLine(n.Line())

	case lang.KindDoStat:
		p.token("do")
		p.newline()
		p.indent++
		p.printBlock(n)
		p.indent--
		p.flushPendingComments(n.EndToken.Line)
		p.token("end")
		p.endStmtLine(n.EndToken.Line)

	case lang.KindWhileStat:
		p.token("while")
		p.space()
		p.printExpr(n.Left)
		p.space()
		p.token("do")
		p.newline()
		p.indent++
		p.printBlock(n)
		p.indent--
		p.flushPendingComments(n.EndToken.Line)
		p.token("end")
		p.endStmtLine(n.EndToken.Line)

	case lang.KindRepeatStat:
		p.token("repeat")
		p.newline()
		p.indent++
		p.printBlock(n)
		p.indent--
		p.flushPendingComments(n.Left.Line())
		p.token("until")
		p.space()
		p.printExpr(n.Left)
		p.endStmtLine(n.Left.Line())

	case lang.KindNumericForStat:
		p.token("for")
		p.space()
		p.token(n.Names[0])
		p.space()
		p.token("=")
		p.space()
		for i, e := range n.Exprs {
			if i > 0 {
				p.token(",")
				p.space()
			}
			p.printExpr(e)
		}
		p.space()
		p.token("do")
		p.newline()
		p.indent++
		p.printBlock(n)
		p.indent--
		p.flushPendingComments(n.EndToken.Line)
		p.token("end")
		p.endStmtLine(n.EndToken.Line)

	case lang.KindGenericForStat:
		p.token("for")
		p.space()
		for i, name := range n.Names {
			if i > 0 {
				p.token(",")
				p.space()
			}
			p.token(name)
		}
		p.space()
		p.token("in")
		p.space()
		for i, e := range n.Exprs {
			if i > 0 {
				p.token(",")
				p.space()
			}
			p.printExpr(e)
		}
		p.space()
		p.token("do")
		p.newline()
		p.indent++
		p.printBlock(n)
		p.indent--
		p.flushPendingComments(n.EndToken.Line)
		p.token("end")
		p.endStmtLine(n.EndToken.Line)

	case lang.KindIfStat:
		p.token("if")
		p.space()
		p.printExpr(n.Left)
		p.space()
		p.token("then")
		p.newline()
		p.indent++
		p.printBlock(n)
		p.indent--
		for _, clause := range n.Clauses {
			switch clause.Kind {
			case lang.ClauseElseIf:
				p.flushPendingComments(clause.Cond.Line())
				p.token("elseif")
				p.space()
				p.printExpr(clause.Cond)
				p.space()
				p.token("then")
				p.newline()
			case lang.ClauseElse:
				p.token("else")
				p.newline()
			}
			p.indent++
			p.printStmtSlice(clause.Body)
			p.indent--
		}
		p.flushPendingComments(n.EndToken.Line)
		p.token("end")
		p.endStmtLine(n.EndToken.Line)

	default:
		// Unreachable for a well-formed statement list.
		p.printExpr(n)
		p.endStmtLine(n.Line())
	}
}

// printStmtSlice prints a bare []*lang.Node statement body (an if-clause's
// Body, which is not itself wrapped in a StatList node).
func (p *printer) printStmtSlice(stmts []*lang.Node) {
	var prevGroup group
	for i, stmt := range stmts {
		line := stmt.Line()
		p.flushPendingComments(line)
		if p.mode == lang.FormatAuto && i > 0 {
			g := statGroup(stmt)
			if g == groupBlock || prevGroup == groupBlock || g != prevGroup {
				p.newline()
			}
		}
		p.printStmt(stmt)
		prevGroup = statGroup(stmt)
	}
}

func (p *printer) printFunctionBody(fn *lang.Node) {
	p.token("(")
	for i, name := range fn.Names {
		if i > 0 {
			p.token(",")
			p.space()
		}
		p.token(name)
	}
	p.token(")")
	p.newline()
	p.indent++
	p.printBlock(fn)
	p.indent--
	p.flushPendingComments(fn.EndToken.Line)
	p.token("end")
}

// --- expressions -------------------------------------------------------

var binOpText = map[lang.Kind]string{
	lang.KindAdd: "+", lang.KindSub: "-", lang.KindMul: "*", lang.KindDiv: "/",
	lang.KindMod: "%", lang.KindPow: "^", lang.KindConcat: "..",
	lang.KindEq: "==", lang.KindNeq: "~=", lang.KindLt: "<", lang.KindLe: "<=",
	lang.KindGt: ">", lang.KindGe: ">=", lang.KindAnd: "and", lang.KindOr: "or",
}

func isWordOp(k lang.Kind) bool {
	return k == lang.KindAnd || k == lang.KindOr
}

func (p *printer) printExpr(n *lang.Node) {
	switch n.Kind {
	case lang.KindNumber, lang.KindVariable:
		p.token(n.Str)

	case lang.KindString:
		if n.Bool {
			p.token(longBracketQuote(n.Str))
		} else {
			p.token(quoteString(n.Str))
		}

	case lang.KindNil:
		p.token("nil")
	case lang.KindBoolean:
		if n.Bool {
			p.token("true")
		} else {
			p.token("false")
		}
	case lang.KindVarargs:
		p.token("...")

	case lang.KindNot:
		p.token("not")
		p.space()
		p.printExpr(n.Left)
	case lang.KindNegate:
		p.token("-")
		p.printExpr(n.Left)
	case lang.KindLength:
		p.token("#")
		p.printExpr(n.Left)

	case lang.KindAnd, lang.KindOr, lang.KindAdd, lang.KindSub, lang.KindMul,
		lang.KindDiv, lang.KindMod, lang.KindPow, lang.KindConcat, lang.KindEq,
		lang.KindNeq, lang.KindLt, lang.KindLe, lang.KindGt, lang.KindGe:
		p.printExpr(n.Left)
		if isWordOp(n.Kind) {
			p.raw(" ")
			p.token(binOpText[n.Kind])
			p.raw(" ")
		} else {
			p.space()
			p.token(binOpText[n.Kind])
			p.space()
		}
		p.printExpr(n.Right)

	case lang.KindParen:
		p.token("(")
		p.printExpr(n.Left)
		p.token(")")

	case lang.KindField:
		p.printExpr(n.Left)
		p.token(".")
		p.token(n.Str)

	case lang.KindIndex:
		p.printExpr(n.Left)
		p.token("[")
		p.printExpr(n.Right)
		p.token("]")

	case lang.KindMethod:
		p.printExpr(n.Left)
		p.token(":")
		p.token(n.Str)
		p.printCallArgs(n.Right)

	case lang.KindCall:
		p.printExpr(n.Left)
		p.printCallArgs(n.Right)

	case lang.KindFunctionLiteral:
		p.token("function")
		p.printFunctionBody(n)

	case lang.KindTableLiteral:
		p.printTableLiteral(n)

	default:
		panic("printer: unhandled expression kind")
	}
}

func (p *printer) printCallArgs(args *lang.Node) {
	switch args.Kind {
	case lang.KindArgCall:
		p.token("(")
		for i, e := range args.Exprs {
			if i > 0 {
				p.token(",")
				p.space()
			}
			p.printExpr(e)
		}
		p.token(")")
	case lang.KindTableCall:
		p.printExpr(args.Left)
	case lang.KindStringCall:
		p.printExpr(args.Left)
	}
}

// tableIsSingleLine implements the heuristic: at most 10 entries, all bare
// values, prints on one line.
func tableIsSingleLine(n *lang.Node) bool {
	if len(n.Entries) > 10 {
		return false
	}
	for _, e := range n.Entries {
		if e.Kind != lang.EntryValue {
			return false
		}
	}
	return true
}

func (p *printer) printTableLiteral(n *lang.Node) {
	if len(n.Entries) == 0 {
		p.token("{")
		p.token("}")
		return
	}

	single := p.mode == lang.Compress || tableIsSingleLine(n)

	p.token("{")
	if single {
		for i, e := range n.Entries {
			if i > 0 {
				p.token(",")
				p.space()
			}
			p.printTableEntry(e)
		}
		p.token("}")
		return
	}

	p.newline()
	p.indent++
	for _, e := range n.Entries {
		p.printTableEntry(e)
		p.token(",")
		p.newline()
	}
	p.indent--
	p.token("}")
}

func (p *printer) printTableEntry(e lang.TableEntry) {
	switch e.Kind {
	case lang.EntryValue:
		p.printExpr(e.Value)
	case lang.EntryField:
		p.token(e.Name.Text)
		p.space()
		p.token("=")
		p.space()
		p.printExpr(e.Value)
	case lang.EntryIndex:
		p.token("[")
		p.printExpr(e.Index)
		p.token("]")
		p.space()
		p.token("=")
		p.space()
		p.printExpr(e.Value)
	}
}

// quoteString re-renders a short string literal's content (as retained by
// the lexer, existing backslash escapes preserved verbatim) inside double
// quotes, escaping any raw '"' byte that was legal unescaped under the
// literal's original (possibly single-quote) delimiter.
func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	escaped := false
	for i := 0; i < len(s); i++ {
		b := s[i]
		if escaped {
			sb.WriteByte(b)
			escaped = false
			continue
		}
		switch b {
		case '\\':
			sb.WriteByte(b)
			escaped = true
		case '"':
			sb.WriteString(`\"`)
		default:
			sb.WriteByte(b)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// longBracketQuote re-renders a long-bracket string literal's raw content
// (no escape processing) inside a "[=*[...]=*]" pair, choosing the lowest
// '=' level whose closing sequence does not occur in the content so the
// output re-lexes to the same text.
func longBracketQuote(s string) string {
	eq := strings.Repeat("=", minBracketLevel(s))
	// A leading newline right after the opening bracket is discarded by the
	// lexer; if the content itself starts with one, add a throwaway one so
	// the real content survives the round trip.
	if len(s) > 0 && (s[0] == '\n' || s[0] == '\r') {
		return "[" + eq + "[\n" + s + "]" + eq + "]"
	}
	return "[" + eq + "[" + s + "]" + eq + "]"
}

// minBracketLevel returns the lowest '=' level whose closing sequence
// "]=*]" does not occur in s, so a "[=*[...]=*]" pair built at that level
// re-lexes back to exactly s.
func minBracketLevel(s string) int {
	level := 0
	for {
		close := "]" + strings.Repeat("=", level) + "]"
		if strings.Index(s+close, close) == len(s) {
			return level
		}
		level++
	}
}
