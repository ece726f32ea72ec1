package database

// Dao is the run history store
type Dao interface {
	GetAllRuns() ([]Run, error)
	CreateRun(run *Run) (int64, error)
	UpdateRun(run *Run) error
	DeleteRun(id int64) error
	GetRunById(id int64) (*Run, error)

	KillDao()
}
