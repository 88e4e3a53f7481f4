// Package filter compiles saved filter rules into the store's native query
// and aggregation representations.
package filter

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
)

// Clause is a boolean expression over message fields. It compiles two ways:
// Query produces a find-style predicate usable inside $match, Expr produces
// an aggregation expression usable inside $addFields.
type Clause interface {
	Query() bson.M
	Expr() bson.M
}

// Equals matches an exact field value.
type Equals struct {
	Field string
	Value string
}

// Contains matches a case-sensitive literal substring of a field. The value
// is quoted before being embedded in the regex clause, so user text never
// acts as pattern syntax.
type Contains struct {
	Field string
	Value string
}

// And combines sub-clauses conjunctively.
type And []Clause

// Or combines sub-clauses disjunctively.
type Or []Clause

func (c Equals) Query() bson.M {
	return bson.M{c.Field: c.Value}
}

func (c Equals) Expr() bson.M {
	return bson.M{"$eq": bson.A{"$" + c.Field, c.Value}}
}

func (c Contains) Query() bson.M {
	return bson.M{c.Field: bson.M{"$regex": regexp.QuoteMeta(c.Value)}}
}

func (c Contains) Expr() bson.M {
	return bson.M{"$regexMatch": bson.M{
		"input": "$" + c.Field,
		"regex": regexp.QuoteMeta(c.Value),
	}}
}

func (c And) Query() bson.M { return combineQuery("$and", c) }
func (c And) Expr() bson.M  { return combineExpr("$and", c) }

func (c Or) Query() bson.M { return combineQuery("$or", c) }
func (c Or) Expr() bson.M  { return combineExpr("$or", c) }

func combineQuery(op string, clauses []Clause) bson.M {
	if len(clauses) == 1 {
		return clauses[0].Query()
	}
	parts := make(bson.A, 0, len(clauses))
	for _, c := range clauses {
		parts = append(parts, c.Query())
	}
	return bson.M{op: parts}
}

func combineExpr(op string, clauses []Clause) bson.M {
	if len(clauses) == 1 {
		return clauses[0].Expr()
	}
	parts := make(bson.A, 0, len(clauses))
	for _, c := range clauses {
		parts = append(parts, c.Expr())
	}
	return bson.M{op: parts}
}
