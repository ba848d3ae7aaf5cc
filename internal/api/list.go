package api

import (
	"bytes"
	"encoding/json"
	"errors"
)

var ErrNotAList = errors.New("response is neither a list nor a {results: [...]} envelope")

// UnwrapList accepts either a bare JSON array or a DRF paginated envelope
// ({"count":..,"results":[...]}) and returns the items in order.
func UnwrapList(raw []byte) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrNotAList
	}
	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		if items == nil {
			items = []json.RawMessage{}
		}
		return items, nil
	case '{':
		var env struct {
			Results *[]json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, err
		}
		if env.Results == nil {
			return nil, ErrNotAList
		}
		if *env.Results == nil {
			return []json.RawMessage{}, nil
		}
		return *env.Results, nil
	}
	return nil, ErrNotAList
}
