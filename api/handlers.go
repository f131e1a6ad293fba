// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/blinklabs-io/proofhound/database/models"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const apiVersion = "0.1.0"

// writeJSON writes a JSON response with the given status code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

// writeError writes an API error response.
func writeError(
	w http.ResponseWriter,
	status int,
	errStr string,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      errStr,
		Message:    message,
	})
}

// parseSetId parses the data set ID path value.
func parseSetId(r *http.Request) (uint64, error) {
	return strconv.ParseUint(r.PathValue("id"), 10, 64)
}

// parseBoolParam parses an optional boolean query parameter, defaulting to
// false when absent.
func parseBoolParam(r *http.Request, name string) (bool, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return false, nil
	}
	ret, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s parameter", name)
	}
	return ret, nil
}

// requireDataSet writes an error response and returns false when the data
// set does not exist or cannot be fetched.
func (s *Server) requireDataSet(
	w http.ResponseWriter,
	setId uint64,
) bool {
	if _, err := s.store.DataSet(setId); err != nil {
		if errors.Is(err, models.ErrDataSetNotFound) {
			writeError(
				w,
				http.StatusNotFound,
				"Not Found",
				"data set not found",
			)
		} else {
			s.logger.Error(
				"failed to get data set",
				"error", err,
			)
			writeError(
				w,
				http.StatusInternalServerError,
				"Internal Server Error",
				"failed to retrieve data set",
			)
		}
		return false
	}
	return true
}

// handleRoot handles GET / and returns API metadata.
func (s *Server) handleRoot(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, RootResponse{
		Service: "proofhound",
		Version: apiVersion,
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Healthy: true,
	})
}

// handleStatus handles GET /api/v1/status and returns the last fully
// processed event log position.
func (s *Server) handleStatus(
	w http.ResponseWriter,
	_ *http.Request,
) {
	cursor, err := s.store.SyncCursor()
	if err != nil {
		s.logger.Error(
			"failed to get sync cursor",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"failed to retrieve sync status",
		)
		return
	}
	resp := StatusResponse{}
	if cursor != nil {
		resp.BlockNumber = cursor.BlockNumber
		resp.BlockHash = hexutil.Encode(cursor.BlockHash)
		resp.LogIndex = cursor.LogIndex
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDataSets handles GET /api/v1/datasets and returns known data sets.
// Deleted data sets are excluded unless the deleted parameter is set.
func (s *Server) handleDataSets(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := ParsePagination(r)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			err.Error(),
		)
		return
	}
	includeDeleted, err := parseBoolParam(r, "deleted")
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			err.Error(),
		)
		return
	}
	total, err := s.store.CountDataSets(includeDeleted)
	if err != nil {
		s.logger.Error(
			"failed to count data sets",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"failed to retrieve data sets",
		)
		return
	}
	dataSets, err := s.store.DataSets(
		includeDeleted,
		params.Desc(),
		params.Offset(),
		params.Count,
	)
	if err != nil {
		s.logger.Error(
			"failed to get data sets",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"failed to retrieve data sets",
		)
		return
	}
	resp := make([]DataSetResponse, 0, len(dataSets))
	for _, dataSet := range dataSets {
		resp = append(resp, dataSetResponse(dataSet))
	}
	SetPaginationHeaders(w, total, params)
	writeJSON(w, http.StatusOK, resp)
}

// handleDataSet handles GET /api/v1/datasets/{id} and returns a single
// data set.
func (s *Server) handleDataSet(
	w http.ResponseWriter,
	r *http.Request,
) {
	setId, err := parseSetId(r)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			"invalid data set ID",
		)
		return
	}
	dataSet, err := s.store.DataSet(setId)
	if err != nil {
		if errors.Is(err, models.ErrDataSetNotFound) {
			writeError(
				w,
				http.StatusNotFound,
				"Not Found",
				"data set not found",
			)
			return
		}
		s.logger.Error(
			"failed to get data set",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"failed to retrieve data set",
		)
		return
	}
	writeJSON(w, http.StatusOK, dataSetResponse(*dataSet))
}

// handlePieces handles GET /api/v1/datasets/{id}/pieces and returns the
// pieces of a data set. Removed pieces are excluded unless the removed
// parameter is set.
func (s *Server) handlePieces(
	w http.ResponseWriter,
	r *http.Request,
) {
	setId, err := parseSetId(r)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			"invalid data set ID",
		)
		return
	}
	params, err := ParsePagination(r)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			err.Error(),
		)
		return
	}
	includeRemoved, err := parseBoolParam(r, "removed")
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			err.Error(),
		)
		return
	}
	if !s.requireDataSet(w, setId) {
		return
	}
	total, err := s.store.CountPieces(setId, includeRemoved)
	if err != nil {
		s.logger.Error(
			"failed to count pieces",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"failed to retrieve pieces",
		)
		return
	}
	pieces, err := s.store.Pieces(
		setId,
		includeRemoved,
		params.Desc(),
		params.Offset(),
		params.Count,
	)
	if err != nil {
		s.logger.Error(
			"failed to get pieces",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"failed to retrieve pieces",
		)
		return
	}
	resp := make([]PieceResponse, 0, len(pieces))
	for _, piece := range pieces {
		resp = append(resp, pieceResponse(piece))
	}
	SetPaginationHeaders(w, total, params)
	writeJSON(w, http.StatusOK, resp)
}

// handlePiece handles GET /api/v1/datasets/{id}/pieces/{pieceId} and
// returns a single piece.
func (s *Server) handlePiece(
	w http.ResponseWriter,
	r *http.Request,
) {
	setId, err := parseSetId(r)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			"invalid data set ID",
		)
		return
	}
	pieceId, err := strconv.ParseUint(
		r.PathValue("pieceId"), 10, 64,
	)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			"invalid piece ID",
		)
		return
	}
	piece, err := s.store.Piece(setId, pieceId)
	if err != nil {
		if errors.Is(err, models.ErrPieceNotFound) {
			writeError(
				w,
				http.StatusNotFound,
				"Not Found",
				"piece not found",
			)
			return
		}
		s.logger.Error(
			"failed to get piece",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"failed to retrieve piece",
		)
		return
	}
	writeJSON(w, http.StatusOK, pieceResponse(*piece))
}

// handleProofs handles GET /api/v1/datasets/{id}/proofs and returns the
// proofs recorded for a data set.
func (s *Server) handleProofs(
	w http.ResponseWriter,
	r *http.Request,
) {
	setId, err := parseSetId(r)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			"invalid data set ID",
		)
		return
	}
	params, err := ParsePagination(r)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			err.Error(),
		)
		return
	}
	if !s.requireDataSet(w, setId) {
		return
	}
	total, err := s.store.CountProofs(setId)
	if err != nil {
		s.logger.Error(
			"failed to count proofs",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"failed to retrieve proofs",
		)
		return
	}
	proofs, err := s.store.Proofs(
		setId,
		params.Desc(),
		params.Offset(),
		params.Count,
	)
	if err != nil {
		s.logger.Error(
			"failed to get proofs",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"failed to retrieve proofs",
		)
		return
	}
	resp := make([]ProofResponse, 0, len(proofs))
	for _, proof := range proofs {
		resp = append(resp, proofResponse(proof))
	}
	SetPaginationHeaders(w, total, params)
	writeJSON(w, http.StatusOK, resp)
}

// handleFaults handles GET /api/v1/datasets/{id}/faults and returns the
// fault records for a data set.
func (s *Server) handleFaults(
	w http.ResponseWriter,
	r *http.Request,
) {
	setId, err := parseSetId(r)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			"invalid data set ID",
		)
		return
	}
	params, err := ParsePagination(r)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			err.Error(),
		)
		return
	}
	if !s.requireDataSet(w, setId) {
		return
	}
	total, err := s.store.CountFaults(setId)
	if err != nil {
		s.logger.Error(
			"failed to count faults",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"failed to retrieve faults",
		)
		return
	}
	faults, err := s.store.Faults(
		setId,
		params.Desc(),
		params.Offset(),
		params.Count,
	)
	if err != nil {
		s.logger.Error(
			"failed to get faults",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"failed to retrieve faults",
		)
		return
	}
	resp := make([]FaultResponse, 0, len(faults))
	for _, fault := range faults {
		resp = append(resp, faultResponse(fault))
	}
	SetPaginationHeaders(w, total, params)
	writeJSON(w, http.StatusOK, resp)
}

// handleProviders handles GET /api/v1/providers and returns known storage
// providers.
func (s *Server) handleProviders(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := ParsePagination(r)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			err.Error(),
		)
		return
	}
	total, err := s.store.CountProviders()
	if err != nil {
		s.logger.Error(
			"failed to count providers",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"failed to retrieve providers",
		)
		return
	}
	providers, err := s.store.Providers(
		params.Desc(),
		params.Offset(),
		params.Count,
	)
	if err != nil {
		s.logger.Error(
			"failed to get providers",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"failed to retrieve providers",
		)
		return
	}
	resp := make([]ProviderResponse, 0, len(providers))
	for _, provider := range providers {
		resp = append(resp, providerResponse(provider))
	}
	SetPaginationHeaders(w, total, params)
	writeJSON(w, http.StatusOK, resp)
}

// handleProvider handles GET /api/v1/providers/{address} and returns a
// single storage provider.
func (s *Server) handleProvider(
	w http.ResponseWriter,
	r *http.Request,
) {
	addressParam := r.PathValue("address")
	if !common.IsHexAddress(addressParam) {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			"invalid provider address",
		)
		return
	}
	provider, err := s.store.Provider(
		common.HexToAddress(addressParam).Bytes(),
	)
	if err != nil {
		if errors.Is(err, models.ErrProviderNotFound) {
			writeError(
				w,
				http.StatusNotFound,
				"Not Found",
				"provider not found",
			)
			return
		}
		s.logger.Error(
			"failed to get provider",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"failed to retrieve provider",
		)
		return
	}
	writeJSON(w, http.StatusOK, providerResponse(*provider))
}
