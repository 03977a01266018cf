package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Relation names an association to load eagerly. Nothing is lazy loaded:
// callers list every relation they need.
type Relation string

const (
	RelRoles         Relation = "Roles"
	RelGames         Relation = "Games"
	RelLoansLent     Relation = "LoansLent"
	RelLoansBorrowed Relation = "LoansBorrowed"
	RelOwner         Relation = "Owner"
	RelImage         Relation = "Image"
	RelGame          Relation = "Game"
	RelLender        Relation = "Lender"
	RelBorrower      Relation = "Borrower"
)

// ParseRelations turns an include query value ("roles,games") into relations,
// rejecting anything outside allowed. Matching is case-insensitive.
func ParseRelations(raw string, allowed ...Relation) ([]Relation, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	byName := make(map[string]Relation, len(allowed))
	for _, rel := range allowed {
		byName[strings.ToLower(string(rel))] = rel
	}

	var rels []Relation
	seen := make(map[Relation]bool)
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		rel, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown relation %q", part)
		}
		if !seen[rel] {
			seen[rel] = true
			rels = append(rels, rel)
		}
	}
	return rels, nil
}

func preload(db *gorm.DB, rels []Relation) *gorm.DB {
	for _, rel := range rels {
		db = db.Preload(string(rel))
	}
	return db
}
