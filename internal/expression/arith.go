package expression

import (
	"fmt"
	"math"
	"math/big"
	"regexp"

	"go.starlark.net/syntax"

	"graphable/internal/domain"
)

var refPattern = regexp.MustCompile(`\$([A-Z])\b`)

const refPrefix = "_ref_"

// References returns the distinct $X refIds in expr, in order of first use.
func References(expr string) []string {
	var refs []string
	seen := map[string]bool{}
	for _, m := range refPattern.FindAllStringSubmatch(expr, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			refs = append(refs, m[1])
		}
	}
	return refs
}

// program is a parsed arithmetic expression over refId variables.
type program struct {
	root syntax.Expr
}

// compile parses expr, accepting only numbers, refIds, parentheses, unary
// +/- and the binary operators + - * / // %.
func compile(expr string) (*program, error) {
	src := refPattern.ReplaceAllString(expr, refPrefix+"$1")
	root, err := (&syntax.FileOptions{}).ParseExpr("expression", src, 0)
	if err != nil {
		return nil, domain.ErrValidation("invalid expression %q: %v", expr, err)
	}
	if err := check(root); err != nil {
		return nil, domain.ErrValidation("invalid expression %q: %v", expr, err)
	}
	return &program{root: root}, nil
}

func check(e syntax.Expr) error {
	switch n := e.(type) {
	case *syntax.Literal:
		if n.Token != syntax.INT && n.Token != syntax.FLOAT {
			return fmt.Errorf("unsupported literal %s", n.Raw)
		}
	case *syntax.Ident:
		if len(n.Name) != len(refPrefix)+1 || n.Name[:len(refPrefix)] != refPrefix {
			return fmt.Errorf("unknown name %q", n.Name)
		}
	case *syntax.ParenExpr:
		return check(n.X)
	case *syntax.UnaryExpr:
		if n.Op != syntax.PLUS && n.Op != syntax.MINUS {
			return fmt.Errorf("unsupported operator %s", n.Op)
		}
		return check(n.X)
	case *syntax.BinaryExpr:
		switch n.Op {
		case syntax.PLUS, syntax.MINUS, syntax.STAR, syntax.SLASH, syntax.SLASHSLASH, syntax.PERCENT:
		default:
			return fmt.Errorf("unsupported operator %s", n.Op)
		}
		if err := check(n.X); err != nil {
			return err
		}
		return check(n.Y)
	default:
		return fmt.Errorf("unsupported syntax %T", e)
	}
	return nil
}

// eval computes the expression with vars keyed by refId.
func (p *program) eval(vars map[string]float64) (float64, error) {
	v, err := evalNode(p.root, vars)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("result is not a finite number")
	}
	return v, nil
}

func evalNode(e syntax.Expr, vars map[string]float64) (float64, error) {
	switch n := e.(type) {
	case *syntax.Literal:
		switch v := n.Value.(type) {
		case int64:
			return float64(v), nil
		case *big.Int:
			f, _ := new(big.Float).SetInt(v).Float64()
			return f, nil
		case float64:
			return v, nil
		}
		return 0, fmt.Errorf("unsupported literal %s", n.Raw)
	case *syntax.Ident:
		ref := n.Name[len(refPrefix):]
		v, ok := vars[ref]
		if !ok {
			return 0, fmt.Errorf("no value for $%s", ref)
		}
		return v, nil
	case *syntax.ParenExpr:
		return evalNode(n.X, vars)
	case *syntax.UnaryExpr:
		x, err := evalNode(n.X, vars)
		if err != nil {
			return 0, err
		}
		if n.Op == syntax.MINUS {
			return -x, nil
		}
		return x, nil
	case *syntax.BinaryExpr:
		x, err := evalNode(n.X, vars)
		if err != nil {
			return 0, err
		}
		y, err := evalNode(n.Y, vars)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case syntax.PLUS:
			return x + y, nil
		case syntax.MINUS:
			return x - y, nil
		case syntax.STAR:
			return x * y, nil
		case syntax.SLASH:
			if y == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return x / y, nil
		case syntax.SLASHSLASH:
			if y == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return math.Floor(x / y), nil
		case syntax.PERCENT:
			if y == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			r := math.Mod(x, y)
			if r != 0 && (r < 0) != (y < 0) {
				r += y
			}
			return r, nil
		}
		return 0, fmt.Errorf("unsupported operator %s", n.Op)
	}
	return 0, fmt.Errorf("unsupported syntax %T", e)
}
