package database

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	logrus "github.com/sirupsen/logrus"
)

const runColumns = "run_id, pipeline, execution_name, storage_claim, command, params, status, exit_code, error, log_location, started_at, ended_at, created_at, updated_at"

// Schema creates the run table if it is missing
const Schema = `CREATE TABLE IF NOT EXISTS run (
	run_id         BIGSERIAL PRIMARY KEY,
	pipeline       TEXT NOT NULL,
	execution_name TEXT NOT NULL DEFAULT '',
	storage_claim  TEXT NOT NULL DEFAULT '',
	command        TEXT NOT NULL DEFAULT '',
	params         JSONB,
	status         TEXT NOT NULL,
	exit_code      BIGINT NOT NULL DEFAULT 0,
	error          TEXT NOT NULL DEFAULT '',
	log_location   TEXT NOT NULL DEFAULT '',
	started_at     TIMESTAMPTZ NOT NULL,
	ended_at       TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type DBCredentials struct {
	Host         string `json:"db_host"`
	User         string `json:"db_username"`
	Password     string `json:"db_password"`
	DatabaseName string `json:"db_database"`
}

type PSQLDao struct {
	Host         string
	User         string
	Password     string
	DBName       string
	DBConnection *sqlx.DB
}

func connect(psqlDao *PSQLDao) (string, error) {
	psqlInfo := fmt.Sprintf("host=%s user=%s "+
		"password=%s dbname=%s sslmode=disable", //pragma: allowlist secret
		psqlDao.Host, psqlDao.User, psqlDao.Password, psqlDao.DBName)

	dbConnection, err := sqlx.Open("postgres", psqlInfo)
	if err != nil {
		logrus.Errorf("connection to database %s failed", psqlDao.DBName)
		return "", fmt.Errorf("connection to database %s failed", psqlDao.DBName)
	}

	err = dbConnection.Ping()
	if err != nil {
		logrus.Errorf("could not ping database %s after connection", psqlDao.DBName)
		dbConnection.Close()
		return "", fmt.Errorf("could not ping database %s after connection", psqlDao.DBName)
	}

	psqlDao.DBConnection = dbConnection

	sucessString := fmt.Sprintf("connection to %s established", psqlDao.DBName)
	logrus.Info(sucessString)
	return sucessString, nil
}

func getCredentials(psqlDao *PSQLDao, path string) error {
	credFile, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open database credential file: %v", err)
	}
	defer credFile.Close()

	byteValue, err := ioutil.ReadAll(credFile)
	if err != nil {
		return fmt.Errorf("could not read database credential file: %v", err)
	}

	var credential DBCredentials
	err = json.Unmarshal(byteValue, &credential)
	if err != nil {
		return fmt.Errorf("unmarshalling credential file failed: %v", err)
	}

	psqlDao.Host = credential.Host
	psqlDao.User = credential.User
	psqlDao.Password = credential.Password //pragma: allowlist secret
	psqlDao.DBName = credential.DatabaseName
	return nil
}

// NewPSQLDao connects with the credentials in the json file at credsPath
// and makes sure the run table exists
func NewPSQLDao(credsPath string) (*PSQLDao, error) {
	var newDao PSQLDao
	if err := getCredentials(&newDao, credsPath); err != nil {
		return nil, err
	}
	if _, err := connect(&newDao); err != nil {
		return nil, err
	}
	if err := newDao.EnsureSchema(); err != nil {
		newDao.KillDao()
		return nil, err
	}
	return &newDao, nil
}

func (psqlDao *PSQLDao) EnsureSchema() error {
	if _, err := psqlDao.DBConnection.Exec(Schema); err != nil {
		logrus.Errorf("Could not create run table, failed with error %s", err)
		return fmt.Errorf("could not create run table")
	}
	return nil
}

func (psqlDao *PSQLDao) GetRunById(id int64) (*Run, error) {
	run := Run{}
	query := fmt.Sprintf("SELECT %s FROM run WHERE run_id=%d", runColumns, id)
	err := psqlDao.DBConnection.Get(&run, query)

	if err != nil {
		logrus.Errorf("Could not retrieve run with id %d, failed with error %s", id, err)
		return nil, fmt.Errorf("could not retrieve run with id %d", id)
	}

	return &run, nil
}

func (psqlDao *PSQLDao) GetAllRuns() ([]Run, error) {
	runs := []Run{}
	query := fmt.Sprintf("SELECT %s FROM run ORDER BY run_id DESC", runColumns)
	err := psqlDao.DBConnection.Select(&runs, query)

	if err != nil {
		logrus.Errorf("Could not retrieve all runs, failed with error %s", err)
		return nil, fmt.Errorf("could not retrieve all runs")
	}

	return runs, nil
}

func (psqlDao *PSQLDao) CreateRun(run *Run) (int64, error) {
	stmt, err := psqlDao.DBConnection.PrepareNamed(`INSERT into run (pipeline,execution_name,storage_claim,command,params,status,started_at) VALUES (:pipeline,:execution_name,:storage_claim,:command,:params,:status,:started_at) RETURNING run_id`)
	if err != nil {
		logrus.Errorf("Could not prepare insert statement for run creation, failed with error %s", err)
		return 0, fmt.Errorf("could not prepare named statement for run creation")
	}
	defer stmt.Close()

	var runId int64
	err = stmt.Get(&runId, run)
	if err != nil {
		logrus.Errorf("Could not create run, failed with error %s", err)
		return 0, fmt.Errorf("could not create run")
	}

	logrus.Infof("Sucessfully created run with id %d", runId)

	return runId, nil
}

func (psqlDao *PSQLDao) UpdateRun(run *Run) error {
	_, err := psqlDao.DBConnection.NamedExec(`UPDATE run SET execution_name=:execution_name, storage_claim=:storage_claim, command=:command, params=:params, status=:status, exit_code=:exit_code, error=:error, log_location=:log_location, ended_at=:ended_at, updated_at=now() WHERE run_id=:run_id`, run)
	if err != nil {
		logrus.Errorf("Could not update run %d, failed with error %s", run.RunID, err)
		return fmt.Errorf("could not update run")
	}

	logrus.Infof("Run %d updated successfully", run.RunID)
	return nil
}

func (psqlDao *PSQLDao) DeleteRun(id int64) error {
	runMap := map[string]interface{}{
		"id": id,
	}

	_, err := psqlDao.DBConnection.NamedExec(`DELETE FROM run WHERE run_id=:id`, runMap)
	if err != nil {
		logrus.Errorf("Delete from table run with id %d failed with error %s", id, err)
		return fmt.Errorf("delete from table run failed")
	}

	logrus.Infof("run with id %d deleted sucessfully", id)
	return nil
}

func (psqlDao *PSQLDao) KillDao() {
	psqlDao.DBConnection.Close()
}
