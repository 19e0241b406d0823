package classic

import (
	"strings"

	"github.com/cinderfts/cinder/internal/query"
)

// node is this package's analogue of original_source's SyntaxNode: a
// small tree the grammar in parser.go builds, converted to a query.Query
// only once the whole expression has been structured, mirroring
// syntax2.py's SyntaxNode.query(parser) dispatch (there performed by a
// class hierarchy; here by a type switch in this file's withField/
// scaleBoost plus each node's own queryNode method).
type node interface {
	queryNode(pc *parseContext) (query.Query, error)
}

type wordNode struct {
	field string
	text  string
	boost float64
}

type quotedNode struct {
	field string
	text  string
	slop  int
	boost float64
}

type wildNode struct {
	field   string
	pattern string
	boost   float64
}

type rangeNode struct {
	field              string
	start, end         string
	startOpen, endOpen bool
	startExcl, endExcl bool
	boost              float64
}

type andGroup struct {
	nodes []node
	boost float64
}

type orGroup struct {
	nodes []node
	boost float64
}

type notNode struct {
	child node
}

func (n *wordNode) queryNode(pc *parseContext) (query.Query, error) {
	field := n.field
	if field == "" {
		field = pc.defaultField
	}
	return pc.termQuery(field, n.text, n.boost)
}

func (n *quotedNode) queryNode(pc *parseContext) (query.Query, error) {
	field := n.field
	if field == "" {
		field = pc.defaultField
	}
	terms := pc.analyzeTerms(field, n.text)
	if len(terms) == 0 {
		return query.Null, nil
	}
	if len(terms) == 1 {
		return pc.termQuery(field, terms[0], n.boost)
	}
	byteTerms := make([][]byte, len(terms))
	for i, t := range terms {
		byteTerms[i] = []byte(t)
	}
	q := query.NewPhrase(field, byteTerms, n.slop)
	q.BoostValue = n.boost
	return q, nil
}

func (n *wildNode) queryNode(pc *parseContext) (query.Query, error) {
	field := n.field
	if field == "" {
		field = pc.defaultField
	}
	if isLiteralPrefixPattern(n.pattern) {
		prefix := strings.TrimSuffix(n.pattern, "*")
		q := query.NewPrefix(field, []byte(prefix))
		q.BoostValue = n.boost
		return q, nil
	}
	q := query.NewWildcard(field, n.pattern)
	q.BoostValue = n.boost
	return q, nil
}

// isLiteralPrefixPattern reports whether pattern is a literal run followed
// by exactly one trailing "*" and nothing else wild, the common case
// lowered straight to a PrefixQuery rather than the general glob matcher.
func isLiteralPrefixPattern(pattern string) bool {
	if !strings.HasSuffix(pattern, "*") {
		return false
	}
	body := pattern[:len(pattern)-1]
	return !strings.ContainsAny(body, "*?")
}

func (n *rangeNode) queryNode(pc *parseContext) (query.Query, error) {
	field := n.field
	if field == "" {
		field = pc.defaultField
	}
	if sp, ok := pc.selfParser(field); ok {
		var start, end *string
		if !n.startOpen {
			s := n.start
			start = &s
		}
		if !n.endOpen {
			e := n.end
			end = &e
		}
		q, err := sp.ParseRange(field, start, end, n.startExcl, n.endExcl, n.boost)
		if err != nil {
			return nil, err
		}
		if q != nil {
			return q, nil
		}
	}
	var startBytes, endBytes []byte
	if !n.startOpen {
		startBytes = []byte(n.start)
	}
	if !n.endOpen {
		endBytes = []byte(n.end)
	}
	q := query.NewTermRange(field, startBytes, endBytes, n.startExcl, n.endExcl)
	q.BoostValue = n.boost
	return q, nil
}

func (g *andGroup) queryNode(pc *parseContext) (query.Query, error) {
	children, err := queryChildren(pc, g.nodes)
	if err != nil {
		return nil, err
	}
	q := query.NewAnd(children...)
	if g.boost != 1 {
		return query.NewBoost(q, g.boost), nil
	}
	return q, nil
}

func (g *orGroup) queryNode(pc *parseContext) (query.Query, error) {
	children, err := queryChildren(pc, g.nodes)
	if err != nil {
		return nil, err
	}
	q := query.NewOr(children...)
	if g.boost != 1 {
		return query.NewBoost(q, g.boost), nil
	}
	return q, nil
}

func (n *notNode) queryNode(pc *parseContext) (query.Query, error) {
	c, err := n.child.queryNode(pc)
	if err != nil {
		return nil, err
	}
	return query.NewNot(c), nil
}

func queryChildren(pc *parseContext, nodes []node) ([]query.Query, error) {
	out := make([]query.Query, 0, len(nodes))
	for _, n := range nodes {
		q, err := n.queryNode(pc)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// withField assigns field to n (and, recursively, to every leaf beneath a
// group) wherever a field has not already been set, per syntax2.py's
// GroupNode.set_fieldname cascading a field qualifier through a
// parenthesized group's children.
func withField(n node, field string) node {
	switch v := n.(type) {
	case *wordNode:
		if v.field == "" {
			v.field = field
		}
		return v
	case *quotedNode:
		if v.field == "" {
			v.field = field
		}
		return v
	case *wildNode:
		if v.field == "" {
			v.field = field
		}
		return v
	case *rangeNode:
		if v.field == "" {
			v.field = field
		}
		return v
	case *andGroup:
		for i, c := range v.nodes {
			v.nodes[i] = withField(c, field)
		}
		return v
	case *orGroup:
		for i, c := range v.nodes {
			v.nodes[i] = withField(c, field)
		}
		return v
	case *notNode:
		v.child = withField(v.child, field)
		return v
	default:
		return n
	}
}

// scaleBoost multiplies n's own boost by factor, the node-tree analogue of
// syntax2.py's GroupNode/TextNode `boost` attribute a PrefixOperator or
// trailing "^N" scales in place.
func scaleBoost(n node, factor float64) node {
	if factor == 1 {
		return n
	}
	switch v := n.(type) {
	case *wordNode:
		v.boost *= factor
		return v
	case *quotedNode:
		v.boost *= factor
		return v
	case *wildNode:
		v.boost *= factor
		return v
	case *rangeNode:
		v.boost *= factor
		return v
	case *andGroup:
		v.boost *= factor
		return v
	case *orGroup:
		v.boost *= factor
		return v
	default:
		return n
	}
}
