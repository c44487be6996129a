package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harrison/driftguard/internal/models"
)

// Tool names.
const (
	ToolContractValidate = "repo.contract_validate"
	ToolDriftCheck       = "drift.check"
	ToolVerifyRun        = "verify.run"
)

// ContractTool handles repo.contract_validate.
type ContractTool struct {
	ops Operations
	mu  *sync.Mutex
}

// NewContractTool creates the contract tool.
func NewContractTool(ops Operations, mu *sync.Mutex) *ContractTool {
	return &ContractTool{ops: ops, mu: mu}
}

// Definition returns the MCP tool definition.
func (t *ContractTool) Definition() mcp.Tool {
	return mcp.NewTool(ToolContractValidate,
		mcp.WithDescription("Check that the repository contains every file its contract requires. "+
			"Returns {ok, required_files, present, missing, authoritative, source}."),
	)
}

// Handle runs the contract validation.
func (t *ContractTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	report, err := t.ops.ContractValidate(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(report)
}

// DriftTool handles drift.check.
type DriftTool struct {
	ops Operations
	mu  *sync.Mutex
}

// NewDriftTool creates the drift tool.
func NewDriftTool(ops Operations, mu *sync.Mutex) *DriftTool {
	return &DriftTool{ops: ops, mu: mu}
}

// Definition returns the MCP tool definition.
func (t *DriftTool) Definition() mcp.Tool {
	return mcp.NewTool(ToolDriftCheck,
		mcp.WithDescription("Report code changes not reflected in the documentation freshness marker. "+
			"Returns {ok, changed_paths, marker_is_stale, evidence, reasoning, failures, ...}."),
	)
}

// Handle runs the drift check.
func (t *DriftTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	evidence, err := t.ops.DriftCheck(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(evidence)
}

// VerifyTool handles verify.run.
type VerifyTool struct {
	ops Operations
	mu  *sync.Mutex
}

// NewVerifyTool creates the verification tool.
func NewVerifyTool(ops Operations, mu *sync.Mutex) *VerifyTool {
	return &VerifyTool{ops: ops, mu: mu}
}

// Definition returns the MCP tool definition.
func (t *VerifyTool) Definition() mcp.Tool {
	return mcp.NewTool(ToolVerifyRun,
		mcp.WithDescription("Run a verification profile from the instructions document. "+
			"Commands run in order and the run stops at the first failure."),
		mcp.WithString("profile",
			mcp.Description(fmt.Sprintf("Profile name (default %q)", models.DefaultProfile)),
		),
	)
}

// Handle runs the requested profile.
func (t *VerifyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profile, err := profileArgument(req)
	if err != nil {
		return errorResult(err), nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	result, err := t.ops.VerifyRun(ctx, profile)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result)
}

// profileArgument returns the optional "profile" argument; absent or null
// means the default profile.
func profileArgument(req mcp.CallToolRequest) (string, error) {
	raw, ok := req.GetArguments()["profile"]
	if !ok || raw == nil {
		return "", nil
	}
	name, ok := raw.(string)
	if !ok {
		return "", models.NewGuardError(models.KindUnknownProfile,
			fmt.Sprintf("profile must be a string, got %T", raw), nil)
	}
	return name, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(models.NewGuardError(models.KindInternal, "failed to encode result", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	data, marshalErr := json.Marshal(models.ToToolError(err))
	if marshalErr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(data))
}
