package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONData is an opaque JSON object stored in a json column.
type JSONData map[string]interface{}

// Value implements driver.Valuer interface for database storage
func (j JSONData) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface for database retrieval
func (j *JSONData) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("cannot scan %T into JSONData", value)
	}
}

// GormDataType returns the data type for GORM
func (JSONData) GormDataType() string {
	return "json"
}

// Clone returns a deep copy that shares no maps or slices with j. The copy
// goes through JSON, so numbers come back as float64 exactly as they would
// after a round trip through the store.
func (j JSONData) Clone() (JSONData, error) {
	if j == nil {
		return nil, nil
	}
	raw, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("copy item data: %w", err)
	}
	var out JSONData
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("copy item data: %w", err)
	}
	return out, nil
}
