package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// The hub is loose with scalar types: counts arrive as numbers or quoted
// strings, booleans as true/false or 0/1. These wrappers accept either.

type flexInt int

func (v *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = 0
		return nil
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", data)
	}
	*v = flexInt(int(n))
	return nil
}

type flexBool bool

func (v *flexBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.Trim(data, `"`)) {
	case "true", "1":
		*v = true
	case "false", "0", "", "null":
		*v = false
	default:
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("not a boolean: %q", data)
		}
		*v = flexBool(b)
	}
	return nil
}
