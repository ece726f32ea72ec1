package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type JsonBytesMap map[string]interface{}

func (p JsonBytesMap) Value() (driver.Value, error) {
	j, err := json.Marshal(p)
	return j, err
}

func (p *JsonBytesMap) Scan(src interface{}) error {
	if src == nil {
		*p = nil
		return nil
	}
	var source []byte
	switch s := src.(type) {
	case []byte:
		source = s
	case string:
		source = []byte(s)
	default:
		return fmt.Errorf("type assertion .([]byte) failed")
	}

	var i interface{}
	err := json.Unmarshal(source, &i)
	if err != nil {
		return err
	}

	m, ok := i.(map[string]interface{})
	if !ok {
		return fmt.Errorf("type assertion .(map[string]interface{}) failed")
	}
	*p = m

	return nil
}

// Run is one invocation of the pipeline
type Run struct {
	RunID         int64        `db:"run_id" json:"runID"`
	Pipeline      string       `db:"pipeline" json:"pipeline"`
	ExecutionName string       `db:"execution_name" json:"executionName"`
	StorageClaim  string       `db:"storage_claim" json:"storageClaim"`
	Command       string       `db:"command" json:"command"`
	Params        JsonBytesMap `db:"params" json:"params"`
	Status        string       `db:"status" json:"status"`
	ExitCode      int64        `db:"exit_code" json:"exitCode"`
	Error         string       `db:"error" json:"error,omitempty"`
	LogLocation   string       `db:"log_location" json:"logLocation,omitempty"`
	StartedAt     time.Time    `db:"started_at" json:"startedAt"`
	EndedAt       *time.Time   `db:"ended_at" json:"endedAt,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updatedAt"`
}
