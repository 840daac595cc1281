// Command calcserver exposes the clinical calculators as an MCP tool server
// over stdio, for the docther CLI or any other MCP client to spawn.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/docther/docther/pkg/calculators"
	"github.com/docther/docther/pkg/mcp"
)

const serverVersion = "1.0.0"

func main() {
	logger := log.New(os.Stderr, "calcserver ", log.LstdFlags)

	server := mcp.NewServer("womens-health-calculators", serverVersion, logger)
	if err := registerTools(server); err != nil {
		logger.Fatalf("registering tools: %v", err)
	}

	if err := server.Serve(context.Background(), os.Stdin, os.Stdout); err != nil {
		logger.Fatalf("serve: %v", err)
	}
}

func registerTools(server *mcp.Server) error {
	if err := server.Register(mcp.ToolDefinition{
		Name:        "assess_ovarian_reserve",
		Description: "Assess ovarian reserve from age and AMH (ng/mL), optionally refined by FSH (mIU/mL) and antral follicle count, using ASRM criteria.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"age": {"type": "integer", "description": "Patient age in years"},
				"amh": {"type": "number", "description": "Anti-Müllerian hormone in ng/mL"},
				"fsh": {"type": "number", "description": "Follicle stimulating hormone in mIU/mL"},
				"antral_follicle_count": {"type": "integer", "description": "AFC from ultrasound"}
			},
			"required": ["age", "amh"]
		}`),
	}, assessOvarianReserve); err != nil {
		return err
	}

	if err := server.Register(mcp.ToolDefinition{
		Name:        "predict_ivf_success",
		Description: "Predict per-cycle IVF live birth rate from SART national data, adjusted for AMH, pregnancy history, BMI and diagnosis.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"age": {"type": "integer", "description": "Patient age in years"},
				"amh": {"type": "number", "description": "AMH in ng/mL"},
				"cycle_type": {"type": "string", "enum": ["fresh", "frozen"], "description": "Embryo transfer cycle type"},
				"prior_pregnancies": {"type": "integer", "description": "Number of prior pregnancies"},
				"bmi": {"type": "number", "description": "Body mass index"},
				"diagnosis": {"type": "string", "description": "Primary infertility diagnosis"}
			},
			"required": ["age", "amh"]
		}`),
	}, predictIVFSuccess); err != nil {
		return err
	}

	return server.Register(mcp.ToolDefinition{
		Name:        "predict_menopause_timing",
		Description: "Predict menopause timing from age and AMH with SWAN cohort factor effects (smoking, BMI, family history, ethnicity, parity).",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"age": {"type": "integer", "description": "Current age in years"},
				"amh": {"type": "number", "description": "AMH in ng/mL"},
				"smoking": {"type": "boolean", "description": "Current smoking status"},
				"bmi": {"type": "number", "description": "Body mass index"},
				"family_history": {"type": "string", "enum": ["early", "normal", "late"], "description": "Maternal menopause timing"},
				"ethnicity": {"type": "string", "description": "Patient ethnicity"},
				"parity": {"type": "integer", "description": "Number of live births"}
			},
			"required": ["age", "amh"]
		}`),
	}, predictMenopauseTiming)
}

func jsonResult(v any) (*mcp.ToolResult, error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.TextResult(string(payload)), nil
}

func assessOvarianReserve(_ context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
	var in struct {
		Age int      `json:"age"`
		AMH float64  `json:"amh"`
		FSH *float64 `json:"fsh"`
		AFC *int     `json:"antral_follicle_count"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	result, err := calculators.AssessOvarianReserve(calculators.OvarianReserveInput{
		Age: in.Age,
		AMH: in.AMH,
		FSH: in.FSH,
		AFC: in.AFC,
	})
	if err != nil {
		return nil, err
	}
	return jsonResult(result)
}

func predictIVFSuccess(_ context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
	var in struct {
		Age              int      `json:"age"`
		AMH              float64  `json:"amh"`
		CycleType        string   `json:"cycle_type"`
		PriorPregnancies int      `json:"prior_pregnancies"`
		BMI              *float64 `json:"bmi"`
		Diagnosis        string   `json:"diagnosis"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	result, err := calculators.PredictIVFSuccess(calculators.IVFInput{
		Age:              in.Age,
		AMH:              in.AMH,
		CycleType:        in.CycleType,
		PriorPregnancies: in.PriorPregnancies,
		BMI:              in.BMI,
		Diagnosis:        in.Diagnosis,
	})
	if err != nil {
		return nil, err
	}
	return jsonResult(result)
}

func predictMenopauseTiming(_ context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
	var in struct {
		Age           int      `json:"age"`
		AMH           float64  `json:"amh"`
		Smoking       bool     `json:"smoking"`
		BMI           *float64 `json:"bmi"`
		FamilyHistory string   `json:"family_history"`
		Ethnicity     string   `json:"ethnicity"`
		Parity        int      `json:"parity"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	result, err := calculators.PredictMenopauseTiming(calculators.MenopauseInput{
		Age:           in.Age,
		AMH:           in.AMH,
		Smoking:       in.Smoking,
		BMI:           in.BMI,
		FamilyHistory: in.FamilyHistory,
		Ethnicity:     in.Ethnicity,
		Parity:        in.Parity,
	})
	if err != nil {
		return nil, err
	}
	return jsonResult(result)
}
