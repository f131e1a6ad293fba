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
	"github.com/blinklabs-io/proofhound/database/models"
	"github.com/blinklabs-io/proofhound/database/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// RootResponse is returned by GET /.
type RootResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Healthy bool `json:"healthy"`
}

// StatusResponse is returned by GET /api/v1/status and reports the last
// fully processed event log position. All fields are zero before the first
// event has been processed.
type StatusResponse struct {
	BlockHash   string `json:"block_hash"`
	BlockNumber uint64 `json:"block_number"`
	LogIndex    uint32 `json:"log_index"`
}

// DataSetResponse represents a data set.
type DataSetResponse struct {
	StorageProvider    string `json:"storage_provider"`
	Payer              string `json:"payer"`
	Metadata           string `json:"metadata"`
	Signature          string `json:"signature"`
	TotalDataSize      string `json:"total_data_size"`
	SetId              uint64 `json:"set_id"`
	LeafCount          uint64 `json:"leaf_count"`
	ChallengeRange     uint64 `json:"challenge_range"`
	NextChallengeEpoch uint64 `json:"next_challenge_epoch"`
	NextPieceId        uint64 `json:"next_piece_id"`
	AddedBlock         uint64 `json:"added_block"`
	DeletedBlock       uint64 `json:"deleted_block"`
	WithCDN            bool   `json:"with_cdn"`
	Deleted            bool   `json:"deleted"`
}

// PieceResponse represents a piece within a data set.
type PieceResponse struct {
	Metadata         string `json:"metadata"`
	Signature        string `json:"signature"`
	RawSize          string `json:"raw_size"`
	SetId            uint64 `json:"set_id"`
	PieceId          uint64 `json:"piece_id"`
	LeafCount        uint64 `json:"leaf_count"`
	AddedBlock       uint64 `json:"added_block"`
	RemovedBlock     uint64 `json:"removed_block"`
	RemovalScheduled bool   `json:"removal_scheduled"`
	Removed          bool   `json:"removed"`
}

// ProofResponse represents a proven possession along with its derived
// challenges.
type ProofResponse struct {
	Seed           string              `json:"seed"`
	TxHash         string              `json:"tx_hash"`
	Challenges     []ChallengeResponse `json:"challenges"`
	SetId          uint64              `json:"set_id"`
	ChallengeCount uint64              `json:"challenge_count"`
	BlockNumber    uint64              `json:"block_number"`
}

// ChallengeResponse represents a single derived challenge within a proof.
type ChallengeResponse struct {
	Offset         string `json:"offset"`
	ProofIndex     uint64 `json:"proof_index"`
	ChallengeIndex uint64 `json:"challenge_index"`
	PieceId        uint64 `json:"piece_id"`
	Found          bool   `json:"found"`
}

// ProviderResponse represents a registered storage provider.
type ProviderResponse struct {
	Address      string `json:"address"`
	ServiceURL   string `json:"service_url"`
	RetrievalURL string `json:"retrieval_url"`
	AddedBlock   uint64 `json:"added_block"`
}

// FaultResponse represents a recorded proving fault.
type FaultResponse struct {
	PeriodsFaulted string `json:"periods_faulted"`
	Deadline       string `json:"deadline"`
	SetId          uint64 `json:"set_id"`
	BlockNumber    uint64 `json:"block_number"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// bigIntString renders an on-chain quantity as a decimal string. Unset
// values render as zero so clients never see null.
func bigIntString(v types.BigInt) string {
	if v.Int == nil {
		return "0"
	}
	return v.String()
}

func dataSetResponse(dataSet models.DataSet) DataSetResponse {
	return DataSetResponse{
		SetId:              dataSet.SetId,
		StorageProvider:    common.BytesToAddress(dataSet.StorageProvider).Hex(),
		Payer:              common.BytesToAddress(dataSet.Payer).Hex(),
		Metadata:           dataSet.Metadata,
		Signature:          hexutil.Encode(dataSet.Signature),
		TotalDataSize:      bigIntString(dataSet.TotalDataSize),
		LeafCount:          dataSet.LeafCount,
		ChallengeRange:     dataSet.ChallengeRange,
		NextChallengeEpoch: dataSet.NextChallengeEpoch,
		NextPieceId:        dataSet.NextPieceId,
		AddedBlock:         dataSet.AddedBlock,
		DeletedBlock:       dataSet.DeletedBlock,
		WithCDN:            dataSet.WithCDN,
		Deleted:            dataSet.Deleted,
	}
}

func pieceResponse(piece models.Piece) PieceResponse {
	return PieceResponse{
		SetId:            piece.SetId,
		PieceId:          piece.PieceId,
		Metadata:         piece.Metadata,
		Signature:        hexutil.Encode(piece.Signature),
		RawSize:          bigIntString(piece.RawSize),
		LeafCount:        piece.LeafCount,
		AddedBlock:       piece.AddedBlock,
		RemovedBlock:     piece.RemovedBlock,
		RemovalScheduled: piece.RemovalScheduled,
		Removed:          piece.Removed,
	}
}

func proofResponse(proof models.Proof) ProofResponse {
	challenges := make([]ChallengeResponse, 0, len(proof.Challenges))
	for _, challenge := range proof.Challenges {
		challenges = append(challenges, ChallengeResponse{
			ProofIndex:     challenge.ProofIndex,
			ChallengeIndex: challenge.ChallengeIndex,
			PieceId:        challenge.PieceId,
			Offset:         bigIntString(challenge.Offset),
			Found:          challenge.Found,
		})
	}
	return ProofResponse{
		SetId:          proof.SetId,
		Seed:           hexutil.Encode(proof.Seed),
		TxHash:         hexutil.Encode(proof.TxHash),
		Challenges:     challenges,
		ChallengeCount: proof.ChallengeCount,
		BlockNumber:    proof.BlockNumber,
	}
}

func providerResponse(provider models.Provider) ProviderResponse {
	// Rows written by the event handlers always carry an address
	address, err := provider.String()
	if err != nil {
		address = common.Address{}.Hex()
	}
	return ProviderResponse{
		Address:      address,
		ServiceURL:   provider.ServiceURL,
		RetrievalURL: provider.RetrievalURL,
		AddedBlock:   provider.AddedBlock,
	}
}

func faultResponse(fault models.Fault) FaultResponse {
	return FaultResponse{
		SetId:          fault.SetId,
		PeriodsFaulted: bigIntString(fault.PeriodsFaulted),
		Deadline:       bigIntString(fault.Deadline),
		BlockNumber:    fault.BlockNumber,
	}
}
