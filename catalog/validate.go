package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Grievances collects everything wrong with a set of parameter values
type Grievances []string

func (g *Grievances) log(f string, vs ...interface{}) {
	*g = append(*g, fmt.Sprintf(f, vs...))
}

// Validate checks caller-supplied values against the catalog.
// It reports unknown names, type mismatches and missing required parameters.
// It does not cross-validate parameters against each other.
func (c *Catalog) Validate(values map[string]interface{}) (bool, Grievances) {
	g := make(Grievances, 0)

	unknown := []string{}
	for name := range values {
		if _, ok := c.index[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		g.log("unknown parameter %q", name)
	}

	for _, d := range c.params {
		v, present := d.Resolve(values)
		if !present {
			if d.Required() {
				g.log("missing required parameter %q (%v)", d.Name, d.Type)
			}
			continue
		}
		if err := d.Type.Check(v); err != nil {
			g.log("parameter %q: %v", d.Name, err)
		}
	}
	return len(g) == 0, g
}

// CheckTypes returns an error naming every value that does not fit its parameter type.
// Unknown names and missing values are not its concern.
func (c *Catalog) CheckTypes(values map[string]interface{}) error {
	g := make(Grievances, 0)
	for _, d := range c.params {
		if v, present := d.Resolve(values); present {
			if err := d.Type.Check(v); err != nil {
				g.log("parameter %q: %v", d.Name, err)
			}
		}
	}
	if len(g) == 0 {
		return nil
	}
	return errors.New(strings.Join(g, "; "))
}
