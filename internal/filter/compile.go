package filter

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sms487/archive/internal/model"
)

// Compiled holds the two artifacts produced from an owner's rule list.
// Exclusion is a find-style predicate that removes messages matched by hide
// rules; Mark is an aggregation expression computing the marked flag. Either
// may be nil when no rule of that action exists.
type Compiled struct {
	Exclusion bson.M
	Mark      bson.M
}

// HasExclusion reports whether any hide rule contributed to the result.
func (c Compiled) HasExclusion() bool { return c.Exclusion != nil }

// HasMark reports whether any mark rule contributed to the result. Without
// mark rules no marked field is computed at all, which is distinguishable
// from marked=false.
func (c Compiled) HasMark() bool { return c.Mark != nil }

// Compile turns rules into the exclusion predicate and the mark expression.
// Compilation is deterministic: rules are visited in input order and fields
// in a fixed order, so the same rule set always yields the same artifacts.
// Hide wins over mark by construction: the exclusion applies before the
// mark stage ever sees a document.
func Compile(rules []model.FilterRule) Compiled {
	var hide []Clause
	var mark []Clause

	for _, r := range rules {
		clause := ruleClause(r)
		if clause == nil {
			continue
		}
		switch r.Action {
		case model.ActionHide:
			hide = append(hide, clause)
		case model.ActionMark:
			mark = append(mark, clause)
		}
	}

	var out Compiled
	if len(hide) > 0 {
		// $nor negates the disjunction of all hide clauses; the store
		// conjoins it with the owner/device predicates.
		parts := make(bson.A, 0, len(hide))
		for _, c := range hide {
			parts = append(parts, c.Query())
		}
		out.Exclusion = bson.M{"$nor": parts}
	}
	if len(mark) > 0 {
		out.Mark = combineExpr("$or", mark)
	}
	return out
}

// ruleClause builds the boolean clause for one rule: the non-empty match
// fields combined by the rule's op. Rules with no match fields are rejected
// at save time and compile to nil.
func ruleClause(r model.FilterRule) Clause {
	var leaves []Clause
	if r.Tel != "" {
		leaves = append(leaves, Equals{Field: "tel", Value: r.Tel})
	}
	if r.DeviceID != "" {
		leaves = append(leaves, Equals{Field: "device_id", Value: r.DeviceID})
	}
	if r.Text != "" {
		leaves = append(leaves, Contains{Field: "text", Value: r.Text})
	}

	if len(leaves) == 0 {
		return nil
	}
	if r.Op == model.OpOr {
		return Or(leaves)
	}
	return And(leaves)
}
