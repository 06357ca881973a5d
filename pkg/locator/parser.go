package locator

import (
	"fmt"
	"strconv"
	"strings"
)

// prefixes recognized in the prefix form (name:okButton). Matching is
// case-sensitive: Text:enabled is a CSS locator for SWT's Text type.
var prefixes = map[string]bool{
	"name":  true,
	"id":    true,
	"text":  true,
	"class": true,
	"index": true,
}

type parser struct {
	src string
	pos int
	end int // offset past the last non-space byte
}

// Parse compiles a locator string into a Selector.
func Parse(text string) (*Selector, error) {
	p := &parser{src: text, end: len(strings.TrimRight(text, " \t\r\n"))}
	p.skipSpace()
	if p.eof() {
		return nil, p.errAt(0, "empty locator")
	}

	var (
		steps []Step
		err   error
		xpath bool
	)
	if p.peek() == '/' {
		xpath = true
		steps, err = p.parseXPath()
	} else if prefix, ok := p.matchPrefix(); ok {
		steps, err = p.parsePrefix(prefix)
	} else {
		steps, err = p.parseCSS()
	}
	if err != nil {
		return nil, err
	}
	return &Selector{Source: text, Steps: steps, XPath: xpath}, nil
}

func (p *parser) matchPrefix() (string, bool) {
	i := p.pos
	for i < p.end && isLetter(p.src[i]) {
		i++
	}
	if i == p.pos || i >= p.end || p.src[i] != ':' {
		return "", false
	}
	word := p.src[p.pos:i]
	if !prefixes[word] {
		return "", false
	}
	return word, true
}

func (p *parser) parsePrefix(prefix string) ([]Step, error) {
	p.pos += len(prefix) + 1
	p.skipSpace()
	start := p.pos
	value := p.src[start:p.end]
	if value == "" {
		return nil, p.errAt(start, fmt.Sprintf("expected a value after %q", prefix+":"))
	}
	p.pos = p.end

	var st Step
	switch prefix {
	case "name", "id":
		st.Identity = value
	case "text":
		st.Attrs = []AttrConstraint{{Key: "text", Op: OpEq, Value: value}}
	case "class":
		st.Type = value
	case "index":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, p.errAt(start, "index must be a non-negative integer")
		}
		st.Index = &IndexConstraint{Kind: IndexNth, N: n}
	}
	return []Step{st}, nil
}

func (p *parser) parseCSS() ([]Step, error) {
	var steps []Step
	comb := Descendant
	// A leading '>' anchors the first step to the top level, the CSS
	// rendering of an absolute XPath.
	if p.peek() == '>' && !p.hasPrefix(">>") {
		p.pos++
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("expected a step after combinator")
		}
		comb = Child
	}
	for {
		st, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		st.Combinator = comb
		steps = append(steps, st)
		if p.eof() {
			return steps, nil
		}

		spaced := p.skipSpace()
		switch {
		case p.hasPrefix(">>"):
			p.pos += 2
			p.skipSpace()
			comb = Descendant
			if p.hasPrefix("path[") {
				path, err := p.parsePath()
				if err != nil {
					return nil, err
				}
				steps = append(steps, path)
				p.skipSpace()
				if !p.eof() {
					return nil, p.errorf("path step must be the last step and takes no other selectors")
				}
				return steps, nil
			}
		case p.peek() == '>':
			p.pos++
			p.skipSpace()
			comb = Child
		case spaced:
			comb = Descendant
		default:
			return nil, p.unexpected()
		}
		if p.eof() {
			return nil, p.errorf("expected a step after combinator")
		}
	}
}

func (p *parser) parseStep() (Step, error) {
	var st Step
	start := p.pos
	wildcard := false

	switch c := p.peek(); {
	case c == '*':
		p.pos++
		wildcard = true
	case isTypeStart(c):
		st.Type = p.readWhile(isTypeChar)
	}

suffixes:
	for !p.eof() {
		var err error
		switch p.peek() {
		case '#':
			err = p.parseIdentity(&st)
		case '[':
			err = p.parseBracket(&st)
		case ':':
			err = p.parsePseudo(&st)
		default:
			break suffixes
		}
		if err != nil {
			return st, err
		}
	}

	if !wildcard && p.pos == start {
		return st, p.unexpected()
	}
	return st, nil
}

func (p *parser) parseIdentity(st *Step) error {
	at := p.pos
	p.pos++
	id := p.readWhile(isIdentityChar)
	if id == "" {
		return p.errorf("expected an identity after '#'")
	}
	if st.Identity != "" {
		return p.errAt(at, "step has more than one identity")
	}
	st.Identity = id
	return nil
}

func (p *parser) parseBracket(st *Step) error {
	p.pos++
	for {
		p.skipSpace()
		if p.peek() == '@' {
			p.pos++
		}
		key := p.readWhile(isAttrChar)
		if key == "" {
			return p.errorf("expected an attribute name")
		}
		p.skipSpace()

		ac := AttrConstraint{Key: key, Op: OpExists}
		if op, n := p.matchOp(); n > 0 {
			p.pos += n
			p.skipSpace()
			v, err := p.parseCSSValue()
			if err != nil {
				return err
			}
			ac.Op, ac.Value = op, v
			p.skipSpace()
		}
		st.Attrs = append(st.Attrs, ac)

		switch {
		case p.eof():
			return p.errorf("unterminated '['")
		case p.peek() == ',':
			p.pos++
		case p.peek() == ']':
			p.pos++
			return nil
		default:
			return p.errorf("expected an operator, ',' or ']'")
		}
	}
}

func (p *parser) parseCSSValue() (string, error) {
	if c := p.peek(); c == '\'' || c == '"' {
		return p.parseQuoted()
	}
	v := p.readWhile(func(c byte) bool {
		return c != ',' && c != ']' && !isSpace(c)
	})
	if v == "" {
		return "", p.errorf("expected a value")
	}
	return v, nil
}

func (p *parser) parsePseudo(st *Step) error {
	colon := p.pos
	p.pos++
	namePos := p.pos
	name := strings.ToLower(p.readWhile(isPseudoChar))
	if name == "" {
		return p.errorf("expected a pseudo-class name after ':'")
	}

	switch name {
	case "not":
		inner, innerPos, err := p.parseParenArg()
		if err != nil {
			return err
		}
		sc, ok := stateFor(strings.ToLower(inner))
		if !ok {
			return p.errAt(innerPos, fmt.Sprintf("unknown state %q", inner))
		}
		sc.Negated = !sc.Negated
		st.States = append(st.States, sc)

	case "first", "last":
		if st.Index != nil {
			return p.errAt(colon, "step has more than one index")
		}
		kind := IndexFirst
		if name == "last" {
			kind = IndexLast
		}
		st.Index = &IndexConstraint{Kind: kind}

	case "nth", "index":
		if st.Index != nil {
			return p.errAt(colon, "step has more than one index")
		}
		arg, argPos, err := p.parseParenArg()
		if err != nil {
			return err
		}
		n, convErr := strconv.Atoi(arg)
		if convErr != nil || n < 0 {
			return p.errAt(argPos, "expected a non-negative integer")
		}
		st.Index = &IndexConstraint{Kind: IndexNth, N: n}

	default:
		sc, ok := stateFor(name)
		if !ok {
			return p.errAt(namePos, fmt.Sprintf("unknown pseudo-class %q", name))
		}
		st.States = append(st.States, sc)
	}
	return nil
}

// parseParenArg reads "( word )" and returns the word and its offset.
func (p *parser) parseParenArg() (string, int, error) {
	if p.peek() != '(' {
		return "", 0, p.errorf("expected '('")
	}
	p.pos++
	p.skipSpace()
	at := p.pos
	word := p.readWhile(isPseudoChar)
	if word == "" {
		return "", 0, p.errorf("expected an argument")
	}
	p.skipSpace()
	if p.peek() != ')' {
		return "", 0, p.errorf("expected ')'")
	}
	p.pos++
	return word, at, nil
}

func stateFor(name string) (StateConstraint, bool) {
	switch name {
	case "disabled":
		return StateConstraint{State: StateEnabled, Negated: true}, true
	case "hidden":
		return StateConstraint{State: StateVisible, Negated: true}, true
	}
	if IsKnownState(name) {
		return StateConstraint{State: State(name)}, true
	}
	return StateConstraint{}, false
}

func (p *parser) parsePath() (Step, error) {
	p.pos += len("path[")
	closeAt := strings.IndexByte(p.src[p.pos:p.end], ']')
	if closeAt < 0 {
		return Step{}, p.errAt(p.end, "unterminated path[")
	}
	body := p.src[p.pos : p.pos+closeAt]

	var labels []string
	off := p.pos
	for _, part := range strings.Split(body, "/") {
		label := strings.TrimSpace(part)
		if label == "" {
			return Step{}, p.errAt(off, "empty path label")
		}
		labels = append(labels, label)
		off += len(part) + 1
	}
	p.pos += closeAt + 1
	return Step{Combinator: Descendant, Path: labels}, nil
}

func (p *parser) parseQuoted() (string, error) {
	open := p.pos
	quote := p.src[p.pos]
	p.pos++
	var sb strings.Builder
	for p.pos < p.end {
		c := p.src[p.pos]
		switch {
		case c == '\\' && p.pos+1 < p.end:
			sb.WriteByte(p.src[p.pos+1])
			p.pos += 2
		case c == quote:
			p.pos++
			return sb.String(), nil
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errAt(open, "unterminated string")
}

func (p *parser) matchOp() (Op, int) {
	switch {
	case p.hasPrefix(">="):
		return OpGe, 2
	case p.hasPrefix("<="):
		return OpLe, 2
	case p.hasPrefix("!="):
		return OpNe, 2
	case p.hasPrefix("="):
		return OpEq, 1
	case p.hasPrefix(">"):
		return OpGt, 1
	case p.hasPrefix("<"):
		return OpLt, 1
	}
	return OpExists, 0
}

// Scanner helpers

func (p *parser) eof() bool {
	return p.pos >= p.end
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) at(i int) byte {
	if i >= p.end {
		return 0
	}
	return p.src[i]
}

func (p *parser) hasPrefix(s string) bool {
	return strings.HasPrefix(p.src[p.pos:p.end], s)
}

// skipSpace advances past whitespace and reports whether any was consumed.
func (p *parser) skipSpace() bool {
	start := p.pos
	for !p.eof() && isSpace(p.src[p.pos]) {
		p.pos++
	}
	return p.pos > start
}

func (p *parser) readWhile(fn func(byte) bool) string {
	start := p.pos
	for !p.eof() && fn(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) unexpected() error {
	if p.eof() {
		return p.errorf("unexpected end of locator")
	}
	return p.errorf(fmt.Sprintf("unexpected character %q", p.src[p.pos]))
}

func (p *parser) errorf(msg string) error {
	return p.errAt(p.pos, msg)
}

func (p *parser) errAt(pos int, msg string) error {
	if pos < 0 {
		pos = 0
	}
	if pos > len(p.src) {
		pos = len(p.src)
	}
	return &ParseError{Message: msg, Position: pos, Input: p.src}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isTypeStart(c byte) bool {
	return isLetter(c) || c == '_' || c == '$'
}

func isTypeChar(c byte) bool {
	return isTypeStart(c) || isDigit(c) || c == '.'
}

func isIdentityChar(c byte) bool {
	return isTypeChar(c) || c == '-'
}

func isAttrChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_' || c == '-' || c == '.'
}

func isPseudoChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '-' || c == '_'
}
