package state

import "fmt"

// Merge folds a partial update into a base record and returns a new
// record. Fields set in delta overwrite the base value; fields absent
// from delta keep the base value. Neither input is modified and the
// result shares no mutable storage with either, so a merged record can
// be handed to a checkpoint store without aliasing the live copy.
//
// Both records must be bound to the same schema. Every overwritten
// value was type-checked when it was set; Merge therefore only moves
// values, it does not re-validate them.
func Merge(base, delta Record) (Record, error) {
	if base.schema == nil || delta.schema == nil {
		return Record{}, fmt.Errorf("%w: unbound record", ErrSchemaMismatch)
	}
	if base.schema != delta.schema {
		return Record{}, ErrSchemaMismatch
	}

	out := base.Clone()
	for name, v := range delta.values {
		out.values[name] = cloneValue(v)
	}
	return out, nil
}
