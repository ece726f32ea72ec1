package nfwrap

import (
	"github.com/jinzhu/copier"
	"github.com/uc-cdis/nfwrap/catalog"
	"github.com/uc-cdis/nfwrap/logging"
)

// Invocation is a fully built engine command and the environment it runs in
type Invocation struct {
	Args    []string
	Dir     string
	Env     map[string]string // overlaid on the ambient environment
	LogPath string            // where the engine is expected to write its log

	Params []logging.Param
}

// BaseCommand is the fixed part of the engine command line
func (conf *EngineConfig) BaseCommand() []string {
	return []string{
		conf.Executable,
		"run",
		conf.EntryPointPath(),
		"-work-dir",
		conf.WorkDir,
		"-profile",
		conf.Profile,
		"-c",
		conf.ConfigFile,
	}
}

// EnvOverlay is the engine environment for a run on the given storage claim
func (conf *EngineConfig) EnvOverlay(storageClaim string) map[string]string {
	env := map[string]string{}
	for k, v := range conf.Env {
		env[k] = v
	}
	env["NXF_HOME"] = conf.Home
	env["NXF_OPTS"] = conf.Opts
	env["K8S_STORAGE_CLAIM_NAME"] = storageClaim
	env["NXF_DISABLE_CHECK_LATEST"] = "true"
	return env
}

// BuildCommand translates every catalog entry, in catalog order, and appends
// the tokens to the fixed prefix. Values are resolved against the catalog defaults.
func BuildCommand(cat *catalog.Catalog, values map[string]interface{}, conf EngineConfig) (*Invocation, error) {
	inv := &Invocation{
		Args:    conf.BaseCommand(),
		Dir:     conf.WorkDir,
		LogPath: conf.LogPath(),
	}
	for _, d := range cat.Descriptors() {
		v, _ := d.Resolve(values)
		flags, err := Flag(d, v)
		if err != nil {
			return nil, err
		}
		inv.Args = append(inv.Args, flags...)

		p := logging.Param{}
		if err = copier.Copy(&p, &d); err != nil {
			return nil, err
		}
		p.Value = v
		p.Flags = flags
		inv.Params = append(inv.Params, p)
	}
	return inv, nil
}
