package database

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// DaoFactory returns nil, nil when no database is configured
func DaoFactory(daoType string, credsPath string) (Dao, error) {
	switch daoType {
	case "":
		return nil, nil
	case "psql":
		dao, err := NewPSQLDao(credsPath)
		if err != nil {
			return nil, err
		}
		return dao, nil

	default:
		log.Errorf("There is no current support for the daotype %s. Please select a different supported daotype", daoType)
		return nil, fmt.Errorf("unsupported daotype %s", daoType)
	}
}
