// Package server exposes drift-guard's operations as MCP tools over stdio.
//
// Handlers are thin: they call into the service layer and encode the result
// or the structured error as JSON text content.
package server

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/harrison/driftguard/internal/models"
	"github.com/harrison/driftguard/internal/service"
)

// Name is the server name announced during initialisation.
const Name = "drift-guard"

// Version is set at build time via ldflags.
var Version = "dev"

// Operations are the calls the tools dispatch to. *service.Service
// implements it.
type Operations interface {
	ContractValidate(ctx context.Context) (models.ContractReport, error)
	DriftCheck(ctx context.Context) (models.DriftEvidence, error)
	VerifyRun(ctx context.Context, profile string) (*models.VerificationResult, error)
}

var _ Operations = (*service.Service)(nil)

// New creates the MCP server with the three tools registered against ops.
// Tool calls are serialised: at most one operation runs at a time.
func New(ops Operations) *server.MCPServer {
	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	var mu sync.Mutex

	contractTool := NewContractTool(ops, &mu)
	s.AddTool(contractTool.Definition(), contractTool.Handle)

	driftTool := NewDriftTool(ops, &mu)
	s.AddTool(driftTool.Definition(), driftTool.Handle)

	verifyTool := NewVerifyTool(ops, &mu)
	s.AddTool(verifyTool.Definition(), verifyTool.Handle)

	return s
}

// ServeStdio runs the server on in/out until ctx is cancelled or in closes.
// Protocol errors are written to errLog, never to out.
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer, errLog io.Writer) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(log.New(errLog, "drift-guard: ", log.LstdFlags))
	return stdio.Listen(ctx, in, out)
}

func serverInstructions() string {
	return `drift-guard checks that a repository's governance documents keep up with its code.

Tools:
- repo.contract_validate: reports which required governance files are present or missing.
- drift.check: reports code changes made since the documentation freshness marker was last updated.
- verify.run: runs a verification profile from the instructions document (default profile "default") and stops at the first failing command.

Results are JSON. Failures are returned as tool errors whose text is a JSON object with "kind" and "message".`
}
