package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrSkipped is wrapped by item functions that had nothing to do.
var ErrSkipped = errors.New("skipped")

// Item outcome values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Result represents the outcome of a single item in a batch
type Result struct {
	Item   string `json:"item"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchResult represents the aggregated results of a batch operation
type BatchResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Skipped    int      `json:"skipped,omitempty"`
	Results    []Result `json:"results"`
	// Note carries batch-wide information, e.g. a timeout while waiting
	// for acknowledgements.
	Note string `json:"note,omitempty"`
}

// ParseStringOrArray parses a parameter that can be a single string, an
// array of strings, or a string holding a JSON array of strings.
func ParseStringOrArray(param interface{}, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	var items []interface{}

	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		// Some clients send arrays as JSON text.
		var decoded []string
		if strings.HasPrefix(strings.TrimSpace(v), "[") && json.Unmarshal([]byte(v), &decoded) == nil {
			return ParseStringOrArray(decoded, paramName)
		}
		return []string{v}, nil
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	case []interface{}:
		items = v
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", paramName)
	}

	result := make([]string, 0, len(items))
	for i, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
		}
		if str == "" {
			return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
		}
		result = append(result, str)
	}
	return result, nil
}

// Summarize aggregates per-item results.
func Summarize(results []Result) BatchResult {
	br := BatchResult{
		Total:   len(results),
		Results: results,
	}

	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			br.Successful++
		case StatusSkipped:
			br.Skipped++
		default:
			br.Failed++
		}
	}
	return br
}

// FormatResults creates a formatted JSON string from batch results
func FormatResults(br BatchResult) string {
	jsonBytes, _ := json.MarshalIndent(br, "", "  ")
	return string(jsonBytes)
}

// ProcessBatch runs fn for each item in order and collects the outcomes.
// Items whose error wraps ErrSkipped, and items left when ctx is done, are
// reported as skipped.
func ProcessBatch(ctx context.Context, items []string, fn func(ctx context.Context, item string) (string, error)) []Result {
	results := make([]Result, 0, len(items))

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Item: item, Status: StatusSkipped, Error: err.Error()})
			continue
		}

		res, err := fn(ctx, item)
		if errors.Is(err, ErrSkipped) {
			results = append(results, Result{Item: item, Status: StatusSkipped, Error: err.Error()})
			continue
		}
		if err != nil {
			results = append(results, NewErrorResult(item, err))
			continue
		}
		results = append(results, NewSuccessResult(item, res))
	}

	return results
}

// NewSuccessResult creates a success result
func NewSuccessResult(item, message string) Result {
	return Result{
		Item:   item,
		Status: StatusSuccess,
		Result: message,
	}
}

// NewErrorResult creates an error result
func NewErrorResult(item string, err error) Result {
	return Result{
		Item:   item,
		Status: StatusError,
		Error:  err.Error(),
	}
}
