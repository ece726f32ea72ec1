package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/uc-cdis/nfwrap/catalog"
	"github.com/uc-cdis/nfwrap/database"
	"github.com/uc-cdis/nfwrap/execution"
	"github.com/uc-cdis/nfwrap/nfwrap"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v2"
)

/*
nfwrap runs nf-core/smrnaseq as a typed platform task.

usage:
 - run the pipeline: `nfwrap run --values values.json`
 - show the parameter catalog: `nfwrap params`
 - check values without running anything: `nfwrap validate --values values.json`
 - serve the catalog and run history: `nfwrap listen`
*/
func main() {
	app := cli.NewApp()
	app.Name = "nfwrap"
	app.Usage = "Run nf-core/smrnaseq as a typed task"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			Usage:  "yaml config file",
			EnvVar: "NFWRAP_CONFIG",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "overrides log_level from the config",
		},
	}
	valueFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "values",
			Usage: "json or yaml file with parameter values",
		},
		cli.StringSliceFlag{
			Name:  "set",
			Usage: "name=value, may be repeated; wins over --values",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "provision storage, stage the pipeline and run it",
			Flags:  valueFlags,
			Action: runCommand,
		},
		{
			Name:  "params",
			Usage: "print the parameter catalog",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "json", Usage: "print as json"},
			},
			Action: paramsCommand,
		},
		{
			Name:   "validate",
			Usage:  "check parameter values against the catalog",
			Flags:  valueFlags,
			Action: validateCommand,
		},
		{
			Name:  "listen",
			Usage: "serve the catalog and run history over http",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "port", Usage: "overrides server.port from the config"},
			},
			Action: listenCommand,
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

// setup loads the config and catalog and configures logging.
// Only run validates the config; the other commands never touch storage.
func setup(c *cli.Context) (*nfwrap.Config, *catalog.Catalog, error) {
	conf, err := nfwrap.LoadConfig(c.GlobalString("config"))
	if err != nil {
		return nil, nil, err
	}
	conf.FromEnv(os.Getenv)
	if lvl := c.GlobalString("log-level"); lvl != "" {
		conf.LogLevel = lvl
	}
	if err = setupLogging(conf); err != nil {
		return nil, nil, err
	}

	var cat *catalog.Catalog
	if conf.Catalog != "" {
		cat, err = catalog.LoadFile(conf.Catalog)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		return nil, nil, err
	}
	return conf, cat, nil
}

func setupLogging(conf *nfwrap.Config) error {
	level, err := log.ParseLevel(conf.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	switch conf.LogFormat {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func runCommand(c *cli.Context) error {
	conf, cat, err := setup(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if err = conf.Validate(); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	values, err := loadValues(cat, c.String("values"), c.StringSlice("set"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	runner, err := newRunner(conf, cat)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if runner.History != nil {
		defer runner.History.KillDao()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("running %v (%v)", cat.DisplayName(), conf)
	result, err := runner.Run(ctx, values)
	for _, w := range result.Warnings {
		log.Warnf("log delivery: %v", w)
	}
	return exitError(err)
}

// the engine's own exit code is passed on; any other failure exits 1
func exitError(err error) error {
	if err == nil {
		return nil
	}
	var engineErr *nfwrap.EngineExecutionError
	if errors.As(err, &engineErr) && engineErr.ExitCode > 0 {
		return cli.NewExitError(err.Error(), engineErr.ExitCode)
	}
	return cli.NewExitError(err.Error(), 1)
}

func newRunner(conf *nfwrap.Config, cat *catalog.Catalog) (*nfwrap.Runner, error) {
	store, err := nfwrap.NewLogStore(conf.Storage)
	if err != nil {
		return nil, err
	}
	runner := &nfwrap.Runner{
		Config:      conf,
		Catalog:     cat,
		Provisioner: nfwrap.NewDispatcherProvisioner(conf.Provisioner),
		Launcher:    nfwrap.NewProcessLauncher(conf.Engine.StopGracePeriod),
		Store:       store,
		Names:       execution.NewResolver(conf.Execution.Name, conf.Execution.Namespace, conf.Execution.Pod, conf.Execution.NameLabel),
	}
	runner.History = history(conf)
	return runner, nil
}

// run history is optional; a database that cannot be reached only costs the history
func history(conf *nfwrap.Config) database.Dao {
	if conf.Database.CredsFile == "" {
		return nil
	}
	dao, err := database.DaoFactory("psql", conf.Database.CredsFile)
	if err != nil {
		log.Warnf("run history disabled: %v", err)
		return nil
	}
	return dao
}

func paramsCommand(c *cli.Context) error {
	_, cat, err := setup(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if c.Bool("json") {
		b, err := json.MarshalIndent(catalogJSON(cat), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	}
	return printCatalog(os.Stdout, cat)
}

func printCatalog(out io.Writer, cat *catalog.Catalog) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, section := range cat.Sections() {
		fmt.Fprintf(w, "\n%v\n", section.Title)
		for _, name := range section.Parameters {
			d, _ := cat.Lookup(name)
			def := ""
			if d.HasDefault() {
				def = fmt.Sprintf("%v", d.Default)
			}
			fmt.Fprintf(w, "  --%v\t%v\t%v\t%v\n", d.Name, d.Type, def, d.Description)
		}
	}
	return w.Flush()
}

func validateCommand(c *cli.Context) error {
	_, cat, err := setup(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	values, err := loadValues(cat, c.String("values"), c.StringSlice("set"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	valid, grievances := cat.Validate(values)
	if !valid {
		for _, g := range grievances {
			fmt.Println(g)
		}
		return cli.NewExitError(fmt.Sprintf("%d problem(s) with parameter values", len(grievances)), 1)
	}
	fmt.Println("parameter values are valid")
	return nil
}

func listenCommand(c *cli.Context) error {
	conf, cat, err := setup(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if port := c.Int("port"); port != 0 {
		conf.Server.Port = port
	}
	dao := history(conf)
	if dao != nil {
		defer dao.KillDao()
	}
	return server(conf.Server.Port, cat, dao)
}

// loadValues reads the values file, then applies --set overrides
func loadValues(cat *catalog.Catalog, path string, sets []string) (map[string]interface{}, error) {
	values := map[string]interface{}{}
	if path != "" {
		b, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			raw := map[interface{}]interface{}{}
			if err = yaml.Unmarshal(b, &raw); err != nil {
				return nil, fmt.Errorf("failed to parse values file: %v", err)
			}
			for k, v := range raw {
				values[fmt.Sprintf("%v", k)] = v
			}
		default:
			d := json.NewDecoder(bytes.NewReader(b))
			d.UseNumber()
			if err = d.Decode(&values); err != nil {
				return nil, fmt.Errorf("failed to parse values file: %v", err)
			}
		}
	}
	for _, s := range sets {
		name, raw, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("--set expects name=value, got %q", s)
		}
		v, err := parseSetValue(cat, name, raw)
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	return values, nil
}

// booleans and integers are parsed as yaml scalars; everything else stays a string
func parseSetValue(cat *catalog.Catalog, name, raw string) (interface{}, error) {
	if raw == "null" {
		return nil, nil
	}
	d, ok := cat.Lookup(name)
	if !ok {
		return raw, nil
	}
	switch d.Type.Kind {
	case catalog.Boolean, catalog.Integer:
		var v interface{}
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("--set %v: %v", name, err)
		}
		return v, nil
	}
	return raw, nil
}
