package nfwrap

import (
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uc-cdis/nfwrap/logging"
)

const (
	engineLogName = "nextflow.log"
	runLogName    = "runLog.json"

	finalizeTimeout = 5 * time.Minute
)

// finalize settles the outcome of the run and delivers its logs.
// Nothing in here can change the outcome: every delivery failure
// becomes a LogDeliveryWarning on the result.
func (r *Runner) finalize(ctx context.Context, runLog *logging.RunLog, result *Result, runErr error) {
	// uploads still go out when the run was cancelled
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	settle(result, runErr)
	exitCode := result.ExitCode
	runLog.Lock()
	runLog.Main.Finish(result.Succeeded(), &exitCode)
	runLog.Unlock()

	var engineLog []byte
	logPath := r.Config.Engine.LogPath()
	if _, err := os.Stat(logPath); err == nil {
		engineLog, err = ioutil.ReadFile(logPath)
		if err != nil {
			result.warn(&LogDeliveryWarning{engineLogName, err})
		}
	} else {
		logrus.Infof("no engine log at %v", logPath)
		runLog.Main.Event.Infof("no engine log at %v", logPath)
	}

	name, err := r.Names.ExecutionName(ctx)
	if err != nil {
		result.warn(&LogDeliveryWarning{"logs", errors.New("could not resolve execution name, skipping upload: " + err.Error())})
		r.recordEndOrWarn(runLog, result, runErr)
		return
	}
	runLog.Lock()
	runLog.ExecutionName = name
	runLog.Unlock()
	prefix := path.Join(r.Config.Storage.LogPrefix, name)

	if engineLog != nil {
		key := path.Join(prefix, engineLogName)
		location, err := r.Store.Put(ctx, key, engineLog, "text/plain")
		if err != nil {
			result.warn(&LogDeliveryWarning{engineLogName, err})
		} else {
			logrus.Infof("uploaded engine log to %v", location)
			result.LogPath = location
		}
	}

	r.recordEndOrWarn(runLog, result, runErr)

	j, err := runLog.JSON()
	if err != nil {
		result.warn(&LogDeliveryWarning{runLogName, err})
		return
	}
	location, err := r.Store.Put(ctx, path.Join(prefix, runLogName), j, "application/json")
	if err != nil {
		result.warn(&LogDeliveryWarning{runLogName, err})
		return
	}
	result.RunLogPath = location
}

func (r *Runner) recordEndOrWarn(runLog *logging.RunLog, result *Result, runErr error) {
	if err := r.recordEnd(runLog, result, runErr); err != nil {
		result.warn(&LogDeliveryWarning{"run history", err})
	}
}

// settle derives status and exit code from the error invoke returned
func settle(result *Result, runErr error) {
	if runErr == nil {
		result.Status = success
		result.ExitCode = 0
		return
	}
	result.Status = failure
	result.ExitCode = -1
	var engineErr *EngineExecutionError
	if errors.As(runErr, &engineErr) {
		result.ExitCode = engineErr.ExitCode
	}
}
