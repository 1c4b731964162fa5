// Copyright 2025 Docdex Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/docdex/docdex/core"
	"github.com/docdex/docdex/ingestion"
	"github.com/docdex/docdex/storage"
)

type uploadResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

type statusResponse struct {
	DocumentID    string `json:"document_id"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// queryRequest carries the retrieval parameters. The threshold is a pointer
// so an absent field gets the server default while an explicit 0 means
// "no minimum score".
type queryRequest struct {
	Text      string   `json:"text"`
	TopK      int      `json:"top_k"`
	Threshold *float32 `json:"threshold"`
}

type querySource struct {
	Text       string            `json:"text"`
	Confidence float32           `json:"confidence"`
	DocumentID string            `json:"document_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type queryResponse struct {
	Answer     string        `json:"answer"`
	Sources    []querySource `json:"sources"`
	Confidence float32       `json:"confidence"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file field in multipart form")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "reading uploaded file: "+err.Error())
		return
	}

	// Only form fields under the metadata. prefix become document metadata,
	// so incidental fields in the form are not persisted.
	metadata := make(map[string]string)
	for key, values := range r.MultipartForm.Value {
		name, ok := strings.CutPrefix(key, "metadata.")
		if !ok || name == "" || len(values) == 0 {
			continue
		}
		metadata[name] = values[0]
	}
	if len(metadata) == 0 {
		metadata = nil
	}

	doc, err := s.pipeline.Upload(r.Context(), header.Filename, data, &ingestion.UploadOptions{
		ContentType: header.Header.Get("Content-Type"),
		Metadata:    metadata,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	s.logger.Info("document uploaded", "document", doc.Id, "filename", doc.Filename, "bytes", doc.SizeBytes)
	s.writeJSON(w, http.StatusAccepted, uploadResponse{
		DocumentID: doc.Id,
		Status:     doc.Status.String(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	status, reason, err := s.pipeline.Status(r.Context(), id)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, statusResponse{
		DocumentID:    id,
		Status:        status.String(),
		FailureReason: reason,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.purger.Purge(r.Context(), id); err != nil {
		s.writeFailure(w, err)
		return
	}

	s.logger.Info("document deleted", "document", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	resp, err := s.engine.Answer(r.Context(), core.Query{
		Text:      req.Text,
		TopK:      req.TopK,
		Threshold: req.Threshold,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	sources := make([]querySource, len(resp.Sources))
	for i, src := range resp.Sources {
		sources[i] = querySource{
			Text:       src.Text,
			Confidence: src.Score,
			DocumentID: src.DocumentId,
			Metadata:   src.Metadata,
		}
	}

	s.writeJSON(w, http.StatusOK, queryResponse{
		Answer:     resp.Answer,
		Sources:    sources,
		Confidence: resp.Confidence,
	})
}

// handleHealth always answers 200: the report's status field says whether
// the service is healthy or degraded, and a degraded service still serves
// reads and deletes.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	s.writeJSON(w, http.StatusOK, report)
}

// writeFailure maps domain errors onto HTTP status codes.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidQuery),
		errors.Is(err, core.ErrEmptyInput),
		errors.Is(err, core.ErrDecode):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	s.writeJSON(w, code, errorResponse{Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "err", err)
	}
}
