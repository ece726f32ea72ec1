package nfwrap

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uc-cdis/nfwrap/catalog"
	"github.com/uc-cdis/nfwrap/database"
	"github.com/uc-cdis/nfwrap/execution"
	"github.com/uc-cdis/nfwrap/logging"
)

const (
	success = "success"
	failure = "failure"
)

// Runner drives one pipeline run:
// provision -> stage -> build command -> invoke -> finalize.
// Runs are strictly sequential; a Runner holds no state between them.
type Runner struct {
	Config      *Config
	Catalog     *catalog.Catalog
	Provisioner Provisioner
	Launcher    Launcher
	Store       LogStore
	Names       execution.Resolver
	History     database.Dao // optional
}

// Result is the outcome of a run as the platform sees it
type Result struct {
	Status     string  `json:"status"`
	ExitCode   int     `json:"exitCode"`
	LogPath    string  `json:"logPath,omitempty"`
	RunLogPath string  `json:"runLogPath,omitempty"`
	RunID      int64   `json:"runID,omitempty"`
	Warnings   []error `json:"-"`
}

// Succeeded ..
func (r *Result) Succeeded() bool {
	return r.Status == success
}

func (r *Result) warn(w error) {
	logrus.Warn(w.Error())
	r.Warnings = append(r.Warnings, w)
}

// Run executes the pipeline with the given parameter values.
// Values that do not fit their types fail the run before anything is provisioned.
// Once storage is provisioned, finalize runs exactly once on every exit path,
// including a panic, which is re-raised after finalize.
// Log delivery problems end up in result.Warnings and never in err.
func (r *Runner) Run(ctx context.Context, values map[string]interface{}) (result *Result, err error) {
	result = &Result{Status: failure, ExitCode: -1}
	runLog := logging.InitRunLog(r.Catalog.Pipeline())

	// a value that cannot be rendered must not cost a volume
	if err = r.Catalog.CheckTypes(values); err != nil {
		err = &ConfigurationError{err, "invalid parameter values"}
		logrus.Errorf("%v", err)
		return result, err
	}
	if valid, grievances := r.Catalog.Validate(values); !valid {
		for _, g := range grievances {
			logrus.Warnf("parameter check: %v", g)
			runLog.Main.Event.Warnf("parameter check: %v", g)
		}
	}

	claim, err := r.Provisioner.Provision(ctx, r.Config.ExecutionToken)
	if err != nil {
		logrus.Errorf("%v", err)
		return result, err
	}
	runLog.StorageClaim = claim
	runLog.WorkDir = r.Config.Engine.WorkDir
	runLog.Main.Start()
	runLog.Main.Event.Infof("provisioned storage claim %v", claim)
	result.RunID = r.recordStart(runLog)

	defer func() {
		if p := recover(); p != nil {
			err = &EngineExecutionError{-1, errors.New("unexpected fault during run")}
			runLog.Main.Event.Errorf("panic: %v", p)
			r.finalize(ctx, runLog, result, err)
			panic(p)
		}
		r.finalize(ctx, runLog, result, err)
	}()

	err = r.execute(ctx, values, claim, runLog)
	return result, err
}

func (r *Runner) execute(ctx context.Context, values map[string]interface{}, claim string, runLog *logging.RunLog) error {
	conf := r.Config.Engine

	logrus.Infof("staging %v into %v", conf.SourceDir, conf.WorkDir)
	if err := StageWorkdir(conf.SourceDir, conf.WorkDir, conf.Exclude); err != nil {
		return runLog.Main.Event.Errorf("failed to stage work dir: %v", err)
	}

	inv, err := BuildCommand(r.Catalog, values, conf)
	if err != nil {
		runLog.Main.Event.Errorf("%v", err)
		return err
	}
	inv.Env = conf.EnvOverlay(claim)

	runLog.Lock()
	runLog.Command = inv.Args
	runLog.Params = inv.Params
	runLog.Unlock()

	runLog.Main.Event.Infof("launching engine")
	if err = r.Launcher.Launch(ctx, inv); err != nil {
		runLog.Main.Event.Errorf("%v", err)
		return err
	}
	runLog.Main.Event.Infof("engine exited successfully")
	return nil
}

func (r *Runner) recordStart(runLog *logging.RunLog) int64 {
	if r.History == nil {
		return 0
	}
	id, err := r.History.CreateRun(&database.Run{
		Pipeline:     runLog.Pipeline,
		StorageClaim: runLog.StorageClaim,
		Status:       runLog.Main.Status,
		StartedAt:    runLog.Main.CreatedObj,
	})
	if err != nil {
		logrus.Warnf("failed to record run start: %v", err)
		return 0
	}
	return id
}

func (r *Runner) recordEnd(runLog *logging.RunLog, result *Result, runErr error) error {
	if r.History == nil || result.RunID == 0 {
		return nil
	}
	ended := time.Now()
	run := &database.Run{
		RunID:         result.RunID,
		Pipeline:      runLog.Pipeline,
		ExecutionName: runLog.ExecutionName,
		StorageClaim:  runLog.StorageClaim,
		Command:       strings.Join(runLog.Command, " "),
		Params:        paramValues(runLog.Params),
		Status:        runLog.Main.Status,
		ExitCode:      int64(result.ExitCode),
		LogLocation:   result.LogPath,
		EndedAt:       &ended,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	return r.History.UpdateRun(run)
}

func paramValues(params []logging.Param) database.JsonBytesMap {
	m := database.JsonBytesMap{}
	for _, p := range params {
		if p.Value != nil {
			m[p.Name] = p.Value
		}
	}
	return m
}
