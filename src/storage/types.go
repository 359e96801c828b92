package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONStringArray is a string slice stored as a JSON array
type JSONStringArray []string

// Scan implements the sql.Scanner interface for JSONStringArray
func (j *JSONStringArray) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*j = JSONStringArray{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan type %T into JSONStringArray", value)
	}
	if len(data) == 0 {
		*j = JSONStringArray{}
		return nil
	}
	return json.Unmarshal(data, (*[]string)(j))
}

// Value implements the driver.Valuer interface for JSONStringArray
func (j JSONStringArray) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal([]string(j))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
