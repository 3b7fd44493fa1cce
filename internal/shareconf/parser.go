// Package shareconf parses the share/rights configuration grammar
// (§4.4): one directive per line, `#` introduces a comment.
//
//	share  "<local-path>"  as  "<share-name>"  [promiscuous]
//	set    "<share-name>"  read-write
//	grant  read[,write] on "<share-name>" to       "<user>"
//	grant  read[,write] on "<share-name>" to group "<group>"
//	authenticate with "<auth-server-host>"
package shareconf

import (
	"bufio"
	"fmt"
	"io"
)

// DirectiveKind identifies which of the five directive forms a parsed
// line is.
type DirectiveKind int

const (
	DirShare DirectiveKind = iota
	DirSetReadWrite
	DirGrant
	DirAuthenticate
)

// Directive is one parsed configuration line.
type Directive struct {
	Kind DirectiveKind
	Line int

	// DirShare
	LocalPath   string
	ShareName   string
	Promiscuous bool

	// DirGrant
	Read      bool
	Write     bool
	Principal string
	IsGroup   bool

	// DirAuthenticate
	AuthServerHost string
}

// ParseError reports a malformed or rejected directive. Lines tokenized
// but not accepted (the printer-share grammar, which this package does
// not implement — see Non-goals) are reported the same way as any other
// parse failure rather than panicking or silently mutating state.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("shareconf: line %d: %s", e.Line, e.Msg)
}

// Parse reads the full configuration text and returns every accepted
// directive in file order. Blank lines and comment-only lines are
// skipped. The first error encountered stops parsing.
func Parse(lines []string) ([]Directive, error) {
	var out []Directive
	for i, raw := range lines {
		lineNo := i + 1
		line := trimLine(raw)
		if line == "" {
			continue
		}

		d, err := parseLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		if d != nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

// ParseReader scans every line out of r and calls Parse, so callers
// with an open config file don't need to buffer lines themselves.
func ParseReader(r io.Reader) ([]Directive, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return Parse(lines)
}

func parseLine(line string, lineNo int) (*Directive, error) {
	lx := newLexer(line)
	first := lx.next()
	if first.kind != tokWord {
		return nil, &ParseError{Line: lineNo, Msg: "expected a directive keyword"}
	}

	switch first.text {
	case "share":
		return parseShare(lx, lineNo)
	case "set":
		return parseSet(lx, lineNo)
	case "grant":
		return parseGrant(lx, lineNo)
	case "authenticate":
		return parseAuthenticate(lx, lineNo)
	case "printer":
		// The printer-share grammar is recognized and gets its own
		// error message; like any other ParseError it stops the parse,
		// so a file containing a printer line fails to load.
		return nil, &ParseError{Line: lineNo, Msg: "printer shares are not supported"}
	default:
		return nil, &ParseError{Line: lineNo, Msg: "unrecognized directive: " + first.text}
	}
}

func expectWord(lx *lexer, lineNo int, want string) error {
	tok := lx.next()
	if tok.kind != tokWord || tok.text != want {
		return &ParseError{Line: lineNo, Msg: "expected \"" + want + "\""}
	}
	return nil
}

func expectString(lx *lexer, lineNo int) (string, error) {
	tok := lx.next()
	if tok.kind != tokString {
		return "", &ParseError{Line: lineNo, Msg: "expected a quoted string"}
	}
	return tok.text, nil
}

func parseShare(lx *lexer, lineNo int) (*Directive, error) {
	path, err := expectString(lx, lineNo)
	if err != nil {
		return nil, err
	}
	if err := expectWord(lx, lineNo, "as"); err != nil {
		return nil, err
	}
	name, err := expectString(lx, lineNo)
	if err != nil {
		return nil, err
	}

	d := &Directive{Kind: DirShare, Line: lineNo, LocalPath: path, ShareName: name}
	if tok := lx.next(); tok.kind == tokWord && tok.text == "promiscuous" {
		d.Promiscuous = true
	}
	return d, nil
}

func parseSet(lx *lexer, lineNo int) (*Directive, error) {
	name, err := expectString(lx, lineNo)
	if err != nil {
		return nil, err
	}
	if err := expectWord(lx, lineNo, "read-write"); err != nil {
		return nil, err
	}
	return &Directive{Kind: DirSetReadWrite, Line: lineNo, ShareName: name}, nil
}

func parseGrant(lx *lexer, lineNo int) (*Directive, error) {
	d := &Directive{Kind: DirGrant, Line: lineNo}

	for {
		tok := lx.next()
		if tok.kind != tokWord {
			return nil, &ParseError{Line: lineNo, Msg: "expected read or write"}
		}
		switch tok.text {
		case "read":
			d.Read = true
		case "write":
			d.Write = true
		default:
			return nil, &ParseError{Line: lineNo, Msg: "expected read or write, got " + tok.text}
		}

		peek := newLexer(lx.s[lx.pos:])
		if peek.next().kind == tokComma {
			lx.next() // consume the comma
			continue
		}
		break
	}

	if err := expectWord(lx, lineNo, "on"); err != nil {
		return nil, err
	}
	name, err := expectString(lx, lineNo)
	if err != nil {
		return nil, err
	}
	d.ShareName = name

	if err := expectWord(lx, lineNo, "to"); err != nil {
		return nil, err
	}

	// Optional "group" keyword before the principal.
	save := *lx
	if tok := lx.next(); tok.kind == tokWord && tok.text == "group" {
		d.IsGroup = true
	} else {
		*lx = save
	}

	principal, err := expectString(lx, lineNo)
	if err != nil {
		return nil, err
	}
	d.Principal = principal
	return d, nil
}

func parseAuthenticate(lx *lexer, lineNo int) (*Directive, error) {
	if err := expectWord(lx, lineNo, "with"); err != nil {
		return nil, err
	}
	host, err := expectString(lx, lineNo)
	if err != nil {
		return nil, err
	}
	return &Directive{Kind: DirAuthenticate, Line: lineNo, AuthServerHost: host}, nil
}
