package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/driftguard/internal/models"
)

type fakeOps struct {
	mu       sync.Mutex
	profiles []string
	inFlight int
	maxSeen  int
	verifyFn func(profile string) (*models.VerificationResult, error)
}

func (f *fakeOps) ContractValidate(ctx context.Context) (models.ContractReport, error) {
	return models.ContractReport{OK: true, RequiredFiles: []string{"AGENTS.md"}, Present: []string{"AGENTS.md"}, Missing: []string{}}, nil
}

func (f *fakeOps) DriftCheck(ctx context.Context) (models.DriftEvidence, error) {
	ge := models.NewGuardError(models.KindMissingFreshnessMarker, "freshness marker file does not exist", nil)
	ge.Path = "docs/current_state.md"
	return models.DriftEvidence{}, ge
}

func (f *fakeOps) VerifyRun(ctx context.Context, profile string) (*models.VerificationResult, error) {
	f.mu.Lock()
	f.profiles = append(f.profiles, profile)
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.verifyFn != nil {
		return f.verifyFn(profile)
	}
	name := profile
	if name == "" {
		name = models.DefaultProfile
	}
	return &models.VerificationResult{Profile: name, OverallOK: true, State: models.StateCompleted}, nil
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestContractToolReturnsJSON(t *testing.T) {
	tool := NewContractTool(&fakeOps{}, &sync.Mutex{})
	assert.Equal(t, ToolContractValidate, tool.Definition().Name)

	res, err := tool.Handle(context.Background(), callRequest(ToolContractValidate, nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var report models.ContractReport
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &report))
	assert.True(t, report.OK)
	assert.Equal(t, []string{"AGENTS.md"}, report.Present)
}

func TestDriftToolReturnsStructuredError(t *testing.T) {
	tool := NewDriftTool(&fakeOps{}, &sync.Mutex{})

	res, err := tool.Handle(context.Background(), callRequest(ToolDriftCheck, nil))
	require.NoError(t, err, "operation failures are tool results, not protocol errors")
	assert.True(t, res.IsError)

	var te models.ToolError
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &te))
	assert.Equal(t, models.KindMissingFreshnessMarker, te.Kind)
	assert.Equal(t, "docs/current_state.md", te.Path)
}

func TestVerifyToolProfileArgument(t *testing.T) {
	ops := &fakeOps{}
	tool := NewVerifyTool(ops, &sync.Mutex{})

	def := tool.Definition()
	assert.Equal(t, ToolVerifyRun, def.Name)
	assert.Contains(t, def.InputSchema.Properties, "profile")
	assert.NotContains(t, def.InputSchema.Required, "profile")

	res, err := tool.Handle(context.Background(), callRequest(ToolVerifyRun, nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = tool.Handle(context.Background(), callRequest(ToolVerifyRun, map[string]any{"profile": "ci"}))
	require.NoError(t, err)
	var result models.VerificationResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &result))
	assert.Equal(t, "ci", result.Profile)

	res, err = tool.Handle(context.Background(), callRequest(ToolVerifyRun, map[string]any{"profile": 7}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	assert.Equal(t, []string{"", "ci"}, ops.profiles)
}

func TestVerifyToolUnknownProfile(t *testing.T) {
	ops := &fakeOps{verifyFn: func(profile string) (*models.VerificationResult, error) {
		ge := models.NewGuardError(models.KindUnknownProfile, "profile not defined", nil)
		ge.Profile = profile
		ge.AvailableProfiles = []string{"ci", "default"}
		return nil, ge
	}}
	tool := NewVerifyTool(ops, &sync.Mutex{})

	res, err := tool.Handle(context.Background(), callRequest(ToolVerifyRun, map[string]any{"profile": "x"}))
	require.NoError(t, err)
	require.True(t, res.IsError)

	var te models.ToolError
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &te))
	assert.Equal(t, models.KindUnknownProfile, te.Kind)
	assert.Equal(t, []string{"ci", "default"}, te.AvailableProfiles)
	assert.Equal(t, "x", te.Profile)
}

func TestToolCallsAreSerialised(t *testing.T) {
	ops := &fakeOps{verifyFn: func(profile string) (*models.VerificationResult, error) {
		time.Sleep(20 * time.Millisecond)
		return &models.VerificationResult{Profile: profile}, nil
	}}
	tool := NewVerifyTool(ops, &sync.Mutex{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tool.Handle(context.Background(), callRequest(ToolVerifyRun, map[string]any{"profile": "p"}))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ops.maxSeen)
}

func TestServeStdioListsTools(t *testing.T) {
	s := New(&fakeOps{})

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"repo.contract_validate","arguments":{}}}`,
	}, "\n") + "\n"

	pr, pw := io.Pipe()
	var out syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- ServeStdio(ctx, s, pr, &out, io.Discard) }()

	_, err := pw.Write([]byte(input))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "\n") >= 3
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	pw.Close()
	<-done

	got := out.String()
	assert.Contains(t, got, `"drift-guard"`)
	for _, name := range []string{ToolContractValidate, ToolDriftCheck, ToolVerifyRun} {
		assert.Contains(t, got, `"`+name+`"`)
	}
	assert.Contains(t, got, `\"ok\": true`)
}

// syncBuffer is a bytes.Buffer safe for one writer and concurrent readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
