// api.go - HTTP submit API, health and metrics endpoints.
package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/rs/zerolog"

	"resourcemachine/internal/rm"
	"resourcemachine/internal/store"
)

// maxTxBytes bounds the request body of a transaction submission.
const maxTxBytes = 16 << 20

type server struct {
	machine *rm.Machine
	store   *store.Store
	log     zerolog.Logger

	applied  atomic.Uint64
	rejected atomic.Uint64
}

func newServer(machine *rm.Machine, st *store.Store, log zerolog.Logger) *server {
	return &server{machine: machine, store: st, log: log}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/transactions", s.handleSubmit)
	mux.HandleFunc("/v1/root", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/metrics", s.handleMetrics)
	return mux
}

// handleSubmit accepts a CBOR-encoded transaction, applies it and persists
// the resulting snapshot.
func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTxBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	var tx rm.Transaction
	if err := tx.UnmarshalBinary(body); err != nil {
		s.rejected.Add(1)
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.machine.Apply(&tx); err != nil {
		s.rejected.Add(1)
		s.writeError(w, rejectionStatus(err), err)
		return
	}
	s.applied.Add(1)
	if err := s.store.SaveSnapshot(s.machine.Snapshot()); err != nil {
		// State is applied in memory; a persistence failure must surface
		// loudly but cannot be rolled back.
		s.log.Error().Err(err).Msg("snapshot persistence failed")
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeRoot(w, http.StatusOK)
}

func (s *server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeRoot(w, http.StatusOK)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "rmd_transactions_applied_total %d\n", s.applied.Load())
	fmt.Fprintf(w, "rmd_transactions_rejected_total %d\n", s.rejected.Load())
	fmt.Fprintf(w, "rmd_commitments_total %d\n", len(s.machine.Commitments()))
}

func (s *server) writeRoot(w http.ResponseWriter, status int) {
	root := s.machine.Root()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"root": hex.EncodeToString(root[:]),
	})
}

func (s *server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// rejectionStatus maps ledger rejections to HTTP statuses: conflicts with
// existing state are 409, everything else about the transaction is 422.
func rejectionStatus(err error) int {
	var revealed *rm.RevealedNullifierError
	var dup *rm.DuplicateCommitmentError
	if errors.As(err, &revealed) || errors.As(err, &dup) {
		return http.StatusConflict
	}
	return http.StatusUnprocessableEntity
}
