// Package integrity refuses to delete classes, rubrics and criteria sets
// that activities still reference, and cascades activity deletes.
package integrity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mind-engage/mindengage-rubrics/internal/docstore"
	"github.com/mind-engage/mindengage-rubrics/internal/domain"
	"github.com/mind-engage/mindengage-rubrics/internal/logger"
)

type Kind string

const (
	KindClass        Kind = "class"
	KindRubric       Kind = "rubric"
	KindEvalCriteria Kind = "evalCriteria"
	KindActivity     Kind = "activity"
)

func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindClass, KindRubric, KindEvalCriteria, KindActivity:
		return k, true
	}
	return "", false
}

func (k Kind) Collection() docstore.Collection {
	switch k {
	case KindClass:
		return docstore.Classes
	case KindRubric:
		return docstore.Rubrics
	case KindEvalCriteria:
		return docstore.EvalCriteria
	case KindActivity:
		return docstore.Activities
	}
	return ""
}

var ErrDependencyBlocked = errors.New("integrity: entity is used by activities")

// DependencyBlockedError lists the activities that still reference Name.
type DependencyBlockedError struct {
	Kind   Kind
	Name   string
	Titles []string
}

func (e *DependencyBlockedError) Error() string {
	return fmt.Sprintf("cannot delete %s %q: used by activities: %s", e.Kind, e.Name, strings.Join(e.Titles, ", "))
}

func (e *DependencyBlockedError) Is(target error) bool { return target == ErrDependencyBlocked }

// FindDependents returns the activities whose reference of the given kind
// equals id. Activities never depend on each other.
func FindDependents(kind Kind, id string, activities []domain.Activity) []domain.Activity {
	var out []domain.Activity
	for _, a := range activities {
		var ref string
		switch kind {
		case KindClass:
			ref = a.ClassID
		case KindRubric:
			ref = a.RubricID
		case KindEvalCriteria:
			if a.EvalCriteriaID != nil {
				ref = *a.EvalCriteriaID
			}
		default:
			continue
		}
		if ref != "" && ref == id {
			out = append(out, a)
		}
	}
	return out
}

// Decision is the outcome of a delete request. When Allowed, the caller still
// has to confirm with the user before calling ConfirmDelete.
type Decision struct {
	Allowed bool
	Blocked *DependencyBlockedError
}

// ActivitySource yields the latest activity snapshot.
type ActivitySource interface {
	Activities() []domain.Activity
}

type Guard struct {
	store      docstore.Store
	userID     string
	activities ActivitySource
	log        *logger.Logger
}

func NewGuard(store docstore.Store, userID string, activities ActivitySource, log *logger.Logger) *Guard {
	if log == nil {
		log = logger.Nop()
	}
	return &Guard{store: store, userID: userID, activities: activities, log: log.With("component", "IntegrityGuard")}
}

func (g *Guard) RequestDelete(kind Kind, id, name string) Decision {
	deps := FindDependents(kind, id, g.activities.Activities())
	if len(deps) == 0 {
		return Decision{Allowed: true}
	}
	titles := make([]string, len(deps))
	for i, a := range deps {
		titles[i] = a.Title
	}
	return Decision{Blocked: &DependencyBlockedError{Kind: kind, Name: name, Titles: titles}}
}

// ConfirmDelete deletes the entity. Dependents are checked again against the
// latest snapshot because activities may have been created since the request.
// Deleting an activity also removes its evaluation document when present.
func (g *Guard) ConfirmDelete(ctx context.Context, kind Kind, id, name string) error {
	coll := kind.Collection()
	if coll == "" {
		return fmt.Errorf("integrity: unknown kind %q", kind)
	}
	if d := g.RequestDelete(kind, id, name); d.Blocked != nil {
		return d.Blocked
	}
	ref := docstore.Ref{UserID: g.userID, Collection: coll, ID: id}
	if err := g.store.Delete(ctx, ref); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return docstore.WriteFailed(err)
	}
	g.log.Info("deleted", "kind", string(kind), "id", id)

	if kind == KindActivity {
		eval := docstore.Ref{UserID: g.userID, Collection: docstore.Evaluations, ID: id}
		if err := g.store.Delete(ctx, eval); err != nil && !errors.Is(err, docstore.ErrNotFound) {
			g.log.Warn("evaluation cascade failed", "activity_id", id, "error", err)
		}
	}
	return nil
}
