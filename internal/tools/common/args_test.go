package common

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func requestWith(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestStringArg(t *testing.T) {
	req := requestWith(map[string]interface{}{"name": "Acme", "count": 3.0})

	if got := StringArg(req, "name"); got != "Acme" {
		t.Errorf("StringArg(name) = %q, want %q", got, "Acme")
	}
	if got := StringArg(req, "count"); got != "" {
		t.Errorf("StringArg(count) = %q, want empty", got)
	}
	if got := StringArg(req, "missing"); got != "" {
		t.Errorf("StringArg(missing) = %q, want empty", got)
	}

	if _, err := RequiredStringArg(req, "missing"); err == nil {
		t.Error("RequiredStringArg(missing) expected error, got nil")
	}
	if got, err := RequiredStringArg(req, "name"); err != nil || got != "Acme" {
		t.Errorf("RequiredStringArg(name) = %q, %v", got, err)
	}
}

func TestIntArg(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]interface{}
		want    int
		wantErr bool
	}{
		{"absent uses default", map[string]interface{}{}, 7, false},
		{"null uses default", map[string]interface{}{"n": nil}, 7, false},
		{"json number", map[string]interface{}{"n": 2.0}, 2, false},
		{"negative", map[string]interface{}{"n": -1.0}, -1, false},
		{"int", map[string]interface{}{"n": 4}, 4, false},
		{"numeric string", map[string]interface{}{"n": "3"}, 3, false},
		{"fraction", map[string]interface{}{"n": 1.5}, 0, true},
		{"word", map[string]interface{}{"n": "three"}, 0, true},
		{"bool", map[string]interface{}{"n": true}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IntArg(requestWith(tt.args), "n", 7)
			if (err != nil) != tt.wantErr {
				t.Fatalf("IntArg() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("IntArg() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBoolArg(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
		want bool
	}{
		{"absent uses default", map[string]interface{}{}, true},
		{"false", map[string]interface{}{"b": false}, false},
		{"string false", map[string]interface{}{"b": "false"}, false},
		{"garbage uses default", map[string]interface{}{"b": "nope"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BoolArg(requestWith(tt.args), "b", true); got != tt.want {
				t.Errorf("BoolArg() = %v, want %v", got, tt.want)
			}
		})
	}
}
