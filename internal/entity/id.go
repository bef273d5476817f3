package entity

import "encoding/json"

// ID identifies a stored row. Persisted is false for values that only exist
// in memory, so resolution code never has to treat a literal zero id as
// "new row".
type ID struct {
	Value     int64
	Persisted bool
}

// PersistedID wraps a store-assigned id.
func PersistedID(v int64) ID {
	return ID{Value: v, Persisted: true}
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Value)
}
