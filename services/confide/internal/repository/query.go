package repository

import (
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/confide-mongo/services/confide/internal/model"
)

// DefaultIdentityFields are used by GetUserByIdentity when no fields are given.
var DefaultIdentityFields = []string{"email"}

// IdentityFilter builds an $or query with one clause per identity field that
// is present in credentials, in field order. Repeated fields are ignored.
// The second return value is false when no clause could be built.
func IdentityFilter(credentials map[string]string, identityFields []string) (bson.M, bool) {
	clauses := bson.A{}
	seen := make(map[string]bool, len(identityFields))

	for _, field := range identityFields {
		if seen[field] {
			continue
		}
		seen[field] = true

		value, ok := credentials[field]
		if !ok {
			continue
		}
		clauses = append(clauses, bson.M{field: value})
	}

	if len(clauses) == 0 {
		return nil, false
	}

	return bson.M{"$or": clauses}, true
}

// DuplicateFilter matches stored users sharing the candidate's username or
// email. An empty username falls back to an email-only match.
func DuplicateFilter(user *model.User) bson.M {
	if user.Username != "" {
		return bson.M{
			"$or": bson.A{
				bson.M{"username": user.Username},
				bson.M{"email": user.Email},
			},
		}
	}

	return bson.M{"email": user.Email}
}
