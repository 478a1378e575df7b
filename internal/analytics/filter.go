package analytics

import (
	"fmt"

	apperrors "regpulse/internal/errors"
	"regpulse/pkg/contracts/domain"
)

// Filter applies a selection to a dataset and returns the matching records.
// All restrictions are conjunctive: a record must be in the selected
// colleges, in the selected years and inside the inclusive date range. An
// empty restriction matches everything, so a zero selection returns the
// whole dataset. The input is never mutated and filtering the result again
// with the same selection is a no-op.
func Filter(ds *domain.Dataset, sel domain.FilterSelection) ([]*domain.Registration, error) {
	from, to, bounded, err := sel.DateRange()
	if err != nil {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("invalid date bound: %v, expected %s", err, domain.DateLayout))
	}

	colleges := toSet(sel.Colleges)
	years := toSet(sel.Years)

	matched := make([]*domain.Registration, 0, len(ds.Records))
	for i := range ds.Records {
		rec := &ds.Records[i]
		if len(colleges) > 0 {
			if _, ok := colleges[rec.College]; !ok {
				continue
			}
		}
		if len(years) > 0 {
			if _, ok := years[rec.Year]; !ok {
				continue
			}
		}
		if bounded && (rec.Date.Before(from) || rec.Date.After(to)) {
			continue
		}
		matched = append(matched, rec)
	}
	return matched, nil
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
