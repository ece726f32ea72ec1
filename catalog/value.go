package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// this file contains the semantic types of pipeline parameters
// and the rules for rendering a value of each type as a command line string

// Kind is the semantic type of a parameter value
type Kind string

const (
	String    Kind = "string"
	Boolean   Kind = "boolean"
	Integer   Kind = "integer"
	File      Kind = "file"
	Directory Kind = "directory"
)

func (k Kind) valid() bool {
	switch k {
	case String, Boolean, Integer, File, Directory:
		return true
	}
	return false
}

// Type is a Kind, optionally wrapped as optional<Kind>
type Type struct {
	Kind     Kind
	Optional bool
}

func (t Type) String() string {
	if t.Optional {
		return fmt.Sprintf("optional<%v>", t.Kind)
	}
	return string(t.Kind)
}

// MarshalJSON renders the type the way String does
func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Ref is a reference to a file or directory held in remote storage.
// Remote is preferred; Local is only used when no remote path is known.
type Ref struct {
	Remote string `json:"remote_path,omitempty" yaml:"remote_path,omitempty"`
	Local  string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Path returns the path that goes on the command line for this reference
func (r Ref) Path() string {
	if r.Remote != "" {
		return r.Remote
	}
	return r.Local
}

// Absent reports whether v means "unset": nil, or a nil *Ref
func Absent(v interface{}) bool {
	if v == nil {
		return true
	}
	r, ok := v.(*Ref)
	return ok && r == nil
}

// Check returns an error if v cannot be used as a value of type t.
// An absent v is always acceptable.
func (t Type) Check(v interface{}) error {
	if Absent(v) {
		return nil
	}
	if t.Kind == Boolean {
		_, err := AsBool(v)
		return err
	}
	_, err := t.Kind.Format(v)
	return err
}

// AsBool returns v as a bool
func AsBool(v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("unexpected data type for input specified as boolean: %v; %T", v, v)
	}
	return b, nil
}

// Format returns the canonical string form of v for kind k.
// Booleans have no value token and are rejected here; see AsBool.
func (k Kind) Format(v interface{}) (string, error) {
	switch k {
	case String:
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("unexpected data type for input specified as string: %v; %T", v, v)
		}
		return s, nil
	case Integer:
		return formatInteger(v)
	case File, Directory:
		return refPath(k, v)
	case Boolean:
		return "", fmt.Errorf("boolean values have no value token")
	}
	return "", fmt.Errorf("unknown parameter type %q", k)
}

// base 10, no separators
func formatInteger(v interface{}) (string, error) {
	switch x := v.(type) {
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return "", fmt.Errorf("unexpected value for input specified as integer: %v", x)
		}
		return strconv.FormatInt(i, 10), nil
	case float64:
		return formatIntegralFloat(x)
	case float32:
		return formatIntegralFloat(float64(x))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	}
	return "", fmt.Errorf("unexpected data type for input specified as integer: %v; %T", v, v)
}

func formatIntegralFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return "", fmt.Errorf("unexpected value for input specified as integer: %v", f)
	}
	return strconv.FormatInt(int64(f), 10), nil
}

// resolves a file or directory value to its remote path
func refPath(k Kind, v interface{}) (path string, err error) {
	switch x := v.(type) {
	case string:
		path = x
	case Ref:
		path = x.Path()
	case *Ref:
		if x != nil {
			path = x.Path()
		}
	case map[string]interface{}:
		path = pathFromMap(func(key string) (interface{}, bool) {
			val, ok := x[key]
			return val, ok
		})
	case map[interface{}]interface{}:
		path = pathFromMap(func(key string) (interface{}, bool) {
			val, ok := x[key]
			return val, ok
		})
	default:
		return "", fmt.Errorf("failed to retrieve %v path from object of type %T with value %v", k, v, v)
	}
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%v reference has no path: %v", k, v)
	}
	return path, nil
}

// remote_path wins over location, location over path
func pathFromMap(get func(string) (interface{}, bool)) string {
	for _, key := range []string{"remote_path", "location", "path"} {
		if val, ok := get(key); ok {
			if s, ok := val.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
