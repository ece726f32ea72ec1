package logging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// RunLog is the record of one pipeline run.
// It gets written next to the engine log in durable storage.
type RunLog struct {
	sync.RWMutex  `json:"-"`
	Pipeline      string   `json:"pipeline"`
	ExecutionName string   `json:"executionName,omitempty"`
	StorageClaim  string   `json:"storageClaim,omitempty"`
	WorkDir       string   `json:"workDir,omitempty"`
	Command       []string `json:"command,omitempty"`
	Params        []Param  `json:"params,omitempty"`
	Main          *Log     `json:"main"`
}

// RunLogJSON is what gets marshalled
type RunLogJSON struct {
	Pipeline      string   `json:"pipeline"`
	ExecutionName string   `json:"executionName,omitempty"`
	StorageClaim  string   `json:"storageClaim,omitempty"`
	WorkDir       string   `json:"workDir,omitempty"`
	Command       []string `json:"command,omitempty"`
	Params        []Param  `json:"params,omitempty"`
	Main          *Log     `json:"main"`
}

// Param is the resolved value of one catalog parameter and its command line form
type Param struct {
	Name         string      `json:"name"`
	SectionTitle string      `json:"sectionTitle,omitempty"`
	Output       bool        `json:"output,omitempty"`
	Value        interface{} `json:"value,omitempty"`
	Flags        []string    `json:"flags"`
}

// InitRunLog ..
func InitRunLog(pipeline string) *RunLog {
	return &RunLog{
		Pipeline: pipeline,
		Main:     logger(),
	}
}

// JSON marshals a consistent snapshot of the run log
func (l *RunLog) JSON() ([]byte, error) {
	l.RLock()
	defer l.RUnlock()
	j, err := json.MarshalIndent(RunLogJSON{
		Pipeline:      l.Pipeline,
		ExecutionName: l.ExecutionName,
		StorageClaim:  l.StorageClaim,
		WorkDir:       l.WorkDir,
		Command:       l.Command,
		Params:        l.Params,
		Main:          l.Main,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run log to json: %v", err)
	}
	return j, nil
}

// Log stores the event log and runtime stats for the engine process
type Log struct {
	Created        string    `json:"created,omitempty"`
	CreatedObj     time.Time `json:"-"`
	LastUpdated    string    `json:"lastUpdated,omitempty"`
	LastUpdatedObj time.Time `json:"-"`
	Status         string    `json:"status"`
	Stats          *Stats    `json:"stats"`
	Event          *EventLog `json:"eventLog,omitempty"`
}

// Stats holds runtime stats for the engine process
type Stats struct {
	Duration    float64       `json:"duration"` // seconds
	DurationObj time.Duration `json:"-"`
	ExitCode    *int          `json:"exitCode,omitempty"`
}

// Start is called when the run begins
func (log *Log) Start() {
	t := time.Now()
	log.CreatedObj = t
	log.Created = timef(t)
	log.LastUpdatedObj = t
	log.LastUpdated = timef(t)
	log.Status = running
}

// Finish is called when the run ends; success decides the final status
func (log *Log) Finish(success bool, exitCode *int) {
	t := time.Now()
	log.LastUpdatedObj = t
	log.LastUpdated = timef(t)
	if !log.CreatedObj.IsZero() {
		log.Stats.DurationObj = t.Sub(log.CreatedObj)
		log.Stats.Duration = log.Stats.DurationObj.Seconds()
	}
	log.Stats.ExitCode = exitCode
	if success {
		log.Status = completed
	} else {
		log.Status = failed
	}
}

func logger() *Log {
	logger := &Log{
		Status: notStarted,
		Stats:  &Stats{},
		Event:  &EventLog{},
	}
	logger.Event.info("init log")
	return logger
}

// EventLog is an event logger for a run
type EventLog struct {
	sync.RWMutex
	Events []string `json:"events,omitempty"`
}

// a record is "<timestamp> - <level> - <message>"
func (log *EventLog) Write(level, message string) {
	log.Lock()
	defer log.Unlock()
	timestamp := timef(time.Now())

	record := fmt.Sprintf("%v - %v - %v", timestamp, level, message)
	log.Events = append(log.Events, record)
}

func (log *EventLog) Infof(f string, v ...interface{}) {
	m := fmt.Sprintf(f, v...)
	log.info(m)
}

func (log *EventLog) info(m string) {
	log.Write(infoLogLevel, m)
}

func (log *EventLog) Warnf(f string, v ...interface{}) {
	m := fmt.Sprintf(f, v...)
	log.warn(m)
}

func (log *EventLog) warn(m string) {
	log.Write(warningLogLevel, m)
}

func (log *EventLog) Errorf(f string, v ...interface{}) error {
	m := fmt.Sprintf(f, v...)
	return log.error(m)
}

func (log *EventLog) error(m string) error {
	log.Write(errorLogLevel, m)
	return fmt.Errorf("%s", m)
}

func timef(t time.Time) string {
	return t.Format("2006/01/02 15:04:05") // format is yyyy/mm/dd hh:mm:ss
}
