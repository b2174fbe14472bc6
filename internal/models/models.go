package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON holds free-form event and activity metadata in a text column
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*j = nil
		return nil
	default:
		return fmt.Errorf("unsupported metadata column type %T", value)
	}

	if len(raw) == 0 {
		*j = nil
		return nil
	}

	return json.Unmarshal(raw, j)
}
