package backend

import (
	"fmt"
	"strings"
)

// sexpr is a node of a parsed Scheme expression: either an atom or a
// list, never both.
type sexpr struct {
	atom string
	list []sexpr
}

func (s sexpr) isList() bool { return s.atom == "" }

// parseSexpr reads one Scheme expression from a string and returns it
// as a nested list. Unbalanced parentheses are an error.
func parseSexpr(program string) (sexpr, error) {
	tokens := tokenizeSexpr(program)
	if len(tokens) == 0 {
		return sexpr{}, fmt.Errorf("empty expression")
	}
	expr, rest, err := readSexpr(tokens)
	if err != nil {
		return sexpr{}, err
	}
	if len(rest) != 0 {
		return sexpr{}, fmt.Errorf("trailing tokens after expression: %v", rest)
	}
	return expr, nil
}

func tokenizeSexpr(chars string) []string {
	chars = strings.ReplaceAll(chars, "(", " ( ")
	chars = strings.ReplaceAll(chars, ")", " ) ")
	return strings.Fields(chars)
}

func readSexpr(tokens []string) (sexpr, []string, error) {
	if len(tokens) == 0 {
		return sexpr{}, nil, fmt.Errorf("unexpected end of expression")
	}

	token := tokens[0]
	tokens = tokens[1:]

	if token == "(" {
		expr := sexpr{list: []sexpr{}}
		for {
			if len(tokens) == 0 {
				return sexpr{}, nil, fmt.Errorf("unbalanced parenthesis")
			}
			if tokens[0] == ")" {
				return expr, tokens[1:], nil
			}
			sub, rest, err := readSexpr(tokens)
			if err != nil {
				return sexpr{}, nil, err
			}
			expr.list = append(expr.list, sub)
			tokens = rest
		}
	}

	if token == ")" {
		return sexpr{}, nil, fmt.Errorf("unexpected )")
	}

	return sexpr{atom: token}, tokens, nil
}
