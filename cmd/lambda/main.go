//go:build lambda

package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/destiny-opt/destiny-gear-optimizer/internal/catalog"
	"github.com/destiny-opt/destiny-gear-optimizer/internal/gear"
	"github.com/destiny-opt/destiny-gear-optimizer/internal/solver"
)

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

// engine survives across warm invocations, so its table keeps growing.
var engine *solver.Engine

type planRequest struct {
	Slots  []int `json:"slots"`
	Budget []int `json:"budget"`
}

type planResult struct {
	Start      string  `json:"start"`
	Terminal   bool    `json:"terminal"`
	Action     int     `json:"action"`
	ActionName string  `json:"actionName,omitempty"`
	Score      float64 `json:"score"`
	Entries    int     `json:"entries"`
}

func handler(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errResp(400, "invalid base64 body")
		}
		body = string(decoded)
	}

	var req planRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return errResp(400, "invalid JSON: "+err.Error())
	}
	if len(req.Slots) != gear.NumSlots {
		return errResp(400, fmt.Sprintf("slots: want %d values, got %d", gear.NumSlots, len(req.Slots)))
	}

	cfg := engine.Config()
	var slots gear.Slots
	copy(slots[:], req.Slots)
	budget := cfg.Caps()
	if req.Budget != nil {
		if len(req.Budget) != len(cfg.Actions) {
			return errResp(400, fmt.Sprintf("budget: want %d values, got %d", len(cfg.Actions), len(req.Budget)))
		}
		budget = gear.Budget{}
		for i, v := range req.Budget {
			if v < 0 || v > gear.MaxArity {
				return errResp(400, fmt.Sprintf("budget entry %d out of range", i))
			}
			budget[i] = uint8(v)
		}
	}

	plan, err := engine.Solve(ctx, slots, budget)
	if err != nil {
		if errors.Is(err, solver.ErrInvalidBudget) || errors.Is(err, gear.ErrInvariant) {
			return errResp(400, err.Error())
		}
		return errResp(500, err.Error())
	}

	resp := planResult{
		Start:      plan.Start.String(),
		Terminal:   plan.Terminal,
		Action:     plan.Action,
		ActionName: plan.ActionName,
		Score:      plan.Score,
		Entries:    engine.Table().Len(),
	}
	respJSON, _ := json.Marshal(resp)
	return events.LambdaFunctionURLResponse{StatusCode: 200, Headers: jsonHeader, Body: string(respJSON)}, nil
}

func errResp(code int, msg string) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}

func main() {
	cfg := catalog.Default()
	if path := os.Getenv("GEAROPT_CATALOG"); path != "" {
		loaded, err := catalog.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load catalog: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	var err error
	engine, err = solver.NewEngine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "new engine: %v\n", err)
		os.Exit(1)
	}
	lambda.Start(handler)
}
