package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

// transactionRequest is the JSON body of a create or update. Amount is kept
// raw so both 12.5 and "12,50" are accepted.
type transactionRequest struct {
	Type     string          `json:"type"`
	Category string          `json:"category"`
	Amount   json.RawMessage `json:"amount"`
	Date     string          `json:"date"`
}

// decodeTransaction reads a transaction body. Unknown fields, including any
// attempt to set the owner, are rejected.
func decodeTransaction(r *http.Request, maxBytes int64) (core.TransactionInput, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return core.TransactionInput{}, fmt.Errorf("%w: read body: %w", core.ErrInvalidInput, err)
	}
	if int64(len(body)) > maxBytes {
		return core.TransactionInput{}, fmt.Errorf("%w: request body too large", core.ErrInvalidInput)
	}

	var req transactionRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return core.TransactionInput{}, fmt.Errorf("%w: malformed JSON body: %w", core.ErrInvalidInput, err)
	}
	if dec.More() {
		return core.TransactionInput{}, fmt.Errorf("%w: body must contain a single JSON object", core.ErrInvalidInput)
	}

	return req.toInput()
}

func (req transactionRequest) toInput() (core.TransactionInput, error) {
	kind, err := core.ParseKind(strings.TrimSpace(req.Type))
	if err != nil {
		return core.TransactionInput{}, err
	}
	category, err := core.ParseCategory(strings.TrimSpace(req.Category))
	if err != nil {
		return core.TransactionInput{}, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.TransactionInput{}, err
	}

	in := core.TransactionInput{Kind: kind, Category: category, Amount: amount}
	if strings.TrimSpace(req.Date) != "" {
		if in.OccurredAt, err = core.ParseDate(req.Date); err != nil {
			return core.TransactionInput{}, err
		}
	}
	return in, nil
}

// parseAmount accepts a JSON number or a decimal string.
func parseAmount(raw json.RawMessage) (core.Money, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return core.Money{}, fmt.Errorf("%w: amount is required", core.ErrInvalidInput)
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return core.Money{}, fmt.Errorf("%w: %w", core.ErrInvalidInput, core.ErrInvalidAmount)
		}
		return core.ParseAmount(s)
	}
	return core.ParseAmount(string(raw))
}

// parsePeriods reads the forecast horizon. Range checks belong to the
// forecast adapter, so only syntax is checked here.
func parsePeriods(r *http.Request, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("periods"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: periods must be an integer, got %q", core.ErrInvalidInput, v)
	}
	return n, nil
}

var errEmptyID = errors.New("transaction id is required")
