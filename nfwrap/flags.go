package nfwrap

import (
	"github.com/uc-cdis/nfwrap/catalog"
)

const flagPrefix = "--"

// Flag returns the command line tokens for one parameter.
// A nil value (or nil *catalog.Ref) is absent and yields no tokens whatever the type.
//
// boolean: true -> ["--name"], false -> []
// everything else -> ["--name", "<value>"]
func Flag(d catalog.Descriptor, rawInput interface{}) (val []string, err error) {
	val = []string{}
	if catalog.Absent(rawInput) {
		return val, nil
	}
	prefix := flagPrefix + d.Name
	if d.Type.Kind == catalog.Boolean {
		boolVal, err := catalog.AsBool(rawInput)
		if err != nil {
			return nil, &ConfigurationError{err, "parameter " + d.Name}
		}
		// "if true, add the flag. If false, add nothing."
		if boolVal {
			val = append(val, prefix)
		}
		return val, nil
	}
	s, err := d.Type.Kind.Format(rawInput)
	if err != nil {
		return nil, &ConfigurationError{err, "parameter " + d.Name}
	}
	return append(val, prefix, s), nil
}
