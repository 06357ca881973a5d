package locator

import "strconv"

// parseXPath handles the /Type[...]//Type form. Each step carries its own
// combinator: / is Child, // is Descendant.
func (p *parser) parseXPath() ([]Step, error) {
	var steps []Step
	for !p.eof() {
		var st Step
		switch {
		case p.hasPrefix("//"):
			p.pos += 2
			st.Combinator = Descendant
		case p.peek() == '/':
			p.pos++
			st.Combinator = Child
		default:
			return nil, p.unexpected()
		}

		switch c := p.peek(); {
		case c == '*':
			p.pos++
		case isTypeStart(c):
			st.Type = p.readWhile(isTypeChar)
		default:
			return nil, p.errorf("expected a node test")
		}

		for p.peek() == '[' {
			if err := p.parsePredicate(&st); err != nil {
				return nil, err
			}
		}
		steps = append(steps, st)
	}
	return steps, nil
}

func (p *parser) parsePredicate(st *Step) error {
	open := p.pos
	p.pos++
	p.skipSpace()

	if isDigit(p.peek()) || p.hasPrefix("last()") {
		if st.Index != nil {
			return p.errAt(open, "step has more than one index")
		}
		if p.hasPrefix("last()") {
			p.pos += len("last()")
			st.Index = &IndexConstraint{Kind: IndexLast}
			return p.closePredicate()
		}
		numPos := p.pos
		k, err := strconv.Atoi(p.readWhile(isDigit))
		if err != nil || k < 1 {
			return p.errAt(numPos, "position predicates start at 1")
		}
		st.Index = &IndexConstraint{Kind: IndexNth, N: k - 1}
		return p.closePredicate()
	}

	for {
		ac, err := p.parseCondition()
		if err != nil {
			return err
		}
		st.Attrs = append(st.Attrs, ac)
		p.skipSpace()
		if p.hasPrefix("and") && !isAttrChar(p.at(p.pos+3)) {
			p.pos += len("and")
			p.skipSpace()
			continue
		}
		return p.closePredicate()
	}
}

func (p *parser) parseCondition() (AttrConstraint, error) {
	var key string
	switch {
	case p.peek() == '@':
		p.pos++
		key = p.readWhile(isAttrChar)
		if key == "" {
			return AttrConstraint{}, p.errorf("expected an attribute name after '@'")
		}
	case p.hasPrefix("text()"):
		p.pos += len("text()")
		key = "text"
	default:
		return AttrConstraint{}, p.errorf("expected '@attribute' or text()")
	}

	p.skipSpace()
	op, n := p.matchOp()
	if n == 0 {
		return AttrConstraint{Key: key, Op: OpExists}, nil
	}
	p.pos += n
	p.skipSpace()

	if c := p.peek(); c == '\'' || c == '"' {
		v, err := p.parseQuoted()
		if err != nil {
			return AttrConstraint{}, err
		}
		return AttrConstraint{Key: key, Op: op, Value: v}, nil
	}
	start := p.pos
	v := p.readWhile(func(c byte) bool {
		return isDigit(c) || c == '.' || c == '-' || c == '+'
	})
	if _, err := strconv.ParseFloat(v, 64); v == "" || err != nil {
		return AttrConstraint{}, p.errAt(start, "expected a quoted string or a number")
	}
	return AttrConstraint{Key: key, Op: op, Value: v}, nil
}

func (p *parser) closePredicate() error {
	p.skipSpace()
	switch {
	case p.eof():
		return p.errorf("unterminated '['")
	case p.peek() != ']':
		return p.errorf("expected ']'")
	}
	p.pos++
	return nil
}
