package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/uc-cdis/nfwrap/catalog"
	"github.com/uc-cdis/nfwrap/database"
)

// this file contains the read-only status server:
// health, the parameter catalog, and run history

type Server struct {
	catalog *catalog.Catalog
	dao     database.Dao // nil when no database is configured
}

type CatalogJSON struct {
	Pipeline    string               `json:"pipeline"`
	DisplayName string               `json:"displayName,omitempty"`
	Parameters  []catalog.Descriptor `json:"parameters"`
	Sections    []catalog.Section    `json:"sections"`
}

func catalogJSON(cat *catalog.Catalog) CatalogJSON {
	return CatalogJSON{
		Pipeline:    cat.Pipeline(),
		DisplayName: cat.DisplayName(),
		Parameters:  cat.Descriptors(),
		Sections:    cat.Sections(),
	}
}

func (server *Server) makeRouter() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/_status", server.handleHealthcheck).Methods("GET")
	router.HandleFunc("/parameters", server.handleParameters).Methods("GET")
	router.HandleFunc("/runs", server.handleRuns).Methods("GET")
	router.HandleFunc("/runs/{runID:[0-9]+}", server.handleRun).Methods("GET")
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(router)
}

func server(port int, cat *catalog.Catalog, dao database.Dao) error {
	s := &Server{catalog: cat, dao: dao}
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Handler:      handlers.LoggingHandler(os.Stdout, s.makeRouter()),
	}
	log.Infof("nfwrap serving at %s", httpServer.Addr)
	return httpServer.ListenAndServe()
}

func (server *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Healthy"))
}

func (server *Server) handleParameters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, catalogJSON(server.catalog))
}

func (server *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if server.dao == nil {
		http.Error(w, "run history is not configured", http.StatusServiceUnavailable)
		return
	}
	runs, err := server.dao.GetAllRuns()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

func (server *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if server.dao == nil {
		http.Error(w, "run history is not configured", http.StatusServiceUnavailable)
		return
	}
	runID, err := strconv.ParseInt(mux.Vars(r)["runID"], 10, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	run, err := server.dao.GetRunById(runID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, run)
}

// type names like optional<integer> are written as is
func writeJSON(w http.ResponseWriter, v interface{}) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Errorf("failed to marshal response: %v", err)
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf.Bytes())
}
