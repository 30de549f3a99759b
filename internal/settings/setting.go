// Package settings implements the process-wide settings registry: schema
// registration, typed values with defaults, change notification, and
// optional persistence to a bbolt database or a watched settings file.
package settings

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type is the declared value type of a setting.
type Type int

const (
	String Type = iota
	Integer
	Boolean
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Integer:
		return "integer"
	case Boolean:
		return "boolean"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Setting declares one configuration item.  Registries hold settings by
// pointer; the owner passes the same pointer to RemoveSetting.
type Setting struct {
	Name    string
	Type    Type
	Title   string      // human-readable label
	Default interface{} // returned by Registry.Value while unset
}

// coerce converts v to the Go representation of t: int, bool or string.
func coerce(t Type, v interface{}) (interface{}, error) {
	switch t {
	case Integer:
		return toInt(v)
	case Boolean:
		return toBool(v)
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	}
	return nil, fmt.Errorf("unsupported type %v", t)
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return 0, strconv.ErrRange
		}
		return int(n), nil
	case uint:
		if n > math.MaxInt {
			return 0, strconv.ErrRange
		}
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		if n > math.MaxInt {
			return 0, strconv.ErrRange
		}
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt || n > math.MaxInt {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, err
		}
		return toInt(i)
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	}
	return 0, fmt.Errorf("cannot convert %T to integer", v)
}

func toBool(v interface{}) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(b))
	}
	n, err := toInt(v)
	if err != nil {
		return false, fmt.Errorf("cannot convert %T to boolean", v)
	}
	return n != 0, nil
}
