// internal/server/handlers.go
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/colebrumley/regexlab/internal/session"
)

// Control commands accepted on /api/control
const (
	CommandClearCache     = "clearCache"
	CommandResetToDefault = "resetToDefault"
)

const maxBodyBytes = 1 << 20

var stateKeys = map[string]bool{
	"regex":       true,
	"flags":       true,
	"replacement": true,
	"depth":       true,
	"sources":     true,
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.sess.Status()
	sources := len(s.sess.State().Sources)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.startTime).Truncate(time.Second).String(),
		"slot":    s.slotKey,
		"pattern": status,
		"sources": sources,
	})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	res := s.sess.Result()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, res)
}

// handlePutState applies a partial update; absent fields keep their value
func (s *Server) handlePutState(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := applyPatch(s.sess.State(), body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res := s.sess.Update(st)
	s.commit(res)
	writeJSON(w, http.StatusOK, res)
}

// handlePreview renders a full record without touching the session
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	st, err := session.DecodeState(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding state: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, session.New(st, s.opts).Result())
}

type sourceRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.sess.AddSource(req.Text)
	s.commit(res)
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleEditSource(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid source index %q", r.PathValue("index")))
		return
	}
	var req sourceRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.sess.EditSource(idx, req.Text)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.commit(res)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid source index %q", r.PathValue("index")))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.sess.DeleteSource(idx)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.commit(res)
	writeJSON(w, http.StatusOK, res)
}

type controlRequest struct {
	Command string `json:"command"`
}

// handleControl serves the two host control messages. clearCache wipes the
// slot but leaves the live session alone; resetToDefault also reloads the
// defaults into the session.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Command {
	case CommandClearCache:
		if err := s.store.Clear(s.slotKey); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.logger.Info("persisted state cleared")
		writeJSON(w, http.StatusOK, s.sess.Result())
	case CommandResetToDefault:
		st, err := s.store.Reset(s.slotKey)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		res := s.sess.Update(st)
		s.logger.Info("state reset to defaults")
		writeJSON(w, http.StatusOK, res)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown command %q", req.Command))
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", l))
			return
		}
		limit = min(n, 500)
	}

	records, err := s.store.GetHistory(s.slotKey, status, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("querying history: %w", err))
		return
	}
	if records == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// applyPatch overlays the fields present in body onto cur
func applyPatch(cur session.State, body []byte) (session.State, error) {
	var patch map[string]json.RawMessage
	if err := json.Unmarshal(body, &patch); err != nil {
		return cur, fmt.Errorf("decoding request: %w", err)
	}
	for k := range patch {
		if !stateKeys[k] {
			return cur, fmt.Errorf("unknown field %q", k)
		}
	}

	base, err := session.EncodeState(cur)
	if err != nil {
		return cur, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return cur, err
	}
	for k, v := range patch {
		merged[k] = v
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return cur, err
	}
	st, err := session.DecodeState(data)
	if err != nil {
		return cur, fmt.Errorf("decoding state: %w", err)
	}
	return st, nil
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading request: %w", err)
	}
	return body, nil
}

// decodeOptional decodes a JSON body into v, accepting an empty body
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding request: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
