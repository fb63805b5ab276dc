package helper

import (
	"context"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Session is a live connection to an MCP server.
type Session interface {
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	Close() error
}

// Launcher starts an MCP server from a registry entry.
type Launcher interface {
	Launch(ctx context.Context, e Registered) (Session, error)
}

// StdioLauncher runs the entry's command as a subprocess and speaks MCP over
// its stdin and stdout.
type StdioLauncher struct{}

func (StdioLauncher) Launch(_ context.Context, e Registered) (Session, error) {
	env := make([]string, 0, len(e.Env))
	for k, v := range e.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return client.NewStdioMCPClient(e.Command, env, e.Args...)
}

// Verification is the outcome of a Verify call.
type Verification struct {
	Name          string   `json:"name"`
	Success       bool     `json:"success"`
	Message       string   `json:"message,omitempty"`
	ServerName    string   `json:"serverName,omitempty"`
	ServerVersion string   `json:"serverVersion,omitempty"`
	Protocol      string   `json:"protocol,omitempty"`
	Tools         []string `json:"tools,omitempty"`
}

// ClientVersion is sent as clientInfo.version during the handshake.
var ClientVersion = "dev"

// Verify launches the registered server for name, performs the MCP
// initialize handshake and lists its tools. It never modifies any file.
func (r *Registrar) Verify(ctx context.Context, name string) Verification {
	v := Verification{Name: name}

	entry, err := r.Lookup(name)
	if err != nil {
		v.Message = err.Error()
		return v
	}
	v.Name = entry.Name

	session, err := r.launcher.Launch(ctx, entry)
	if err != nil {
		v.Message = fmt.Sprintf("starting %s: %v", entry.Command, err)
		return v
	}
	defer func() { _ = session.Close() }()

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "ccg", Version: ClientVersion}

	info, err := session.Initialize(ctx, req)
	if err != nil {
		v.Message = fmt.Sprintf("initialize: %v", err)
		return v
	}
	v.ServerName = info.ServerInfo.Name
	v.ServerVersion = info.ServerInfo.Version
	v.Protocol = info.ProtocolVersion

	list, err := session.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		v.Message = fmt.Sprintf("tools/list: %v", err)
		return v
	}
	for _, t := range list.Tools {
		v.Tools = append(v.Tools, t.Name)
	}
	sort.Strings(v.Tools)

	v.Success = true
	r.log.Info().Str("tool", v.Name).Int("tools", len(v.Tools)).Msg("helper tool verified")
	return v
}
