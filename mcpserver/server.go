// Package mcpserver exposes the pricing operations as MCP tools.
//
// Tool calls go through the same registry as HTTP calls, so MCP traffic
// shares the cache, rate limits and usage counters.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jonwraymond/rxprice/observe"
	"github.com/jonwraymond/rxprice/pricing"
	"github.com/jonwraymond/rxprice/resilience"
	"github.com/jonwraymond/rxprice/tool"
)

// Name is the server name reported during initialization.
const Name = "rxprice"

// EndpointPath is where the streamable HTTP transport is mounted.
const EndpointPath = "/mcp"

// Server wraps an mcp-go server bound to an invoker.
type Server struct {
	mcp     *server.MCPServer
	invoker pricing.Invoker
	logger  observe.Logger
}

// New creates an MCP server whose tools call invoker.
func New(invoker pricing.Invoker, version string, logger observe.Logger) *Server {
	if logger == nil {
		logger = observe.NopLogger()
	}
	s := &Server{
		mcp: server.NewMCPServer(Name, version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		invoker: invoker,
		logger:  logger,
	}
	for _, t := range Tools() {
		s.mcp.AddTool(t, s.handle)
	}
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// HTTPHandler returns a stateless streamable HTTP handler.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp,
		server.WithEndpointPath(EndpointPath),
		server.WithStateLess(true),
	)
}

// Tools returns the tool definitions in the order of pricing.Descriptors.
func Tools() []mcp.Tool {
	desc := make(map[string]string)
	for _, d := range pricing.Descriptors() {
		desc[d.Name] = d.Description
	}
	return []mcp.Tool{
		mcp.NewTool(pricing.OpSearchPrice,
			mcp.WithDescription(desc[pricing.OpSearchPrice]),
			mcp.WithString("medication_name", mcp.Required(), mcp.Description("Name of the medication")),
			mcp.WithString("dosage", mcp.Description("Dosage, e.g. 500mg")),
			mcp.WithNumber("quantity", mcp.Description("Number of units")),
			mcp.WithString("location", mcp.Description("City or ZIP code")),
			mcp.WithString("insurance_type", mcp.Description("Insurance type, if any")),
		),
		mcp.NewTool(pricing.OpGenericAlternatives,
			mcp.WithDescription(desc[pricing.OpGenericAlternatives]),
			mcp.WithString("brand_name", mcp.Required(), mcp.Description("Brand-name medication")),
			mcp.WithBoolean("include_prices", mcp.Description("Include prices when found"), mcp.DefaultBool(true)),
		),
		mcp.NewTool(pricing.OpFindPharmacies,
			mcp.WithDescription(desc[pricing.OpFindPharmacies]),
			mcp.WithString("location", mcp.Required(), mcp.Description("City or ZIP code")),
			mcp.WithNumber("radius_miles", mcp.Description("Search radius in miles"), mcp.DefaultNumber(5)),
			mcp.WithString("medication_name", mcp.Description("Medication the pharmacy should stock")),
		),
		mcp.NewTool(pricing.OpComparePrices,
			mcp.WithDescription(desc[pricing.OpComparePrices]),
			mcp.WithString("medication_name", mcp.Required(), mcp.Description("Name of the medication")),
			mcp.WithString("dosage", mcp.Description("Dosage, e.g. 500mg")),
			mcp.WithNumber("quantity", mcp.Description("Number of units")),
			mcp.WithArray("pharmacy_types",
				mcp.Description("Pharmacy types to compare"),
				mcp.Items(map[string]any{"type": "string", "enum": pricing.DefaultPharmacyTypes}),
			),
		),
	}
}

func (s *Server) handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.Params.Name
	v, err := s.invoker.Invoke(ctx, tool.Call{Name: name, Kwargs: req.GetArguments()})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		s.logger.Warn(ctx, "mcp tool call failed",
			observe.F("tool", name),
			observe.F("error", err.Error()),
		)
		return mcp.NewToolResultError(errorMessage(err)), nil
	}

	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode %s result: %w", name, err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorMessage(err error) string {
	var (
		rateErr  *resilience.RateLimitError
		validErr *pricing.ValidationError
	)
	switch {
	case errors.As(err, &rateErr):
		return fmt.Sprintf("Rate limit exceeded for %s. Retry after %.1f seconds.",
			rateErr.Operation, rateErr.RetryAfter.Seconds())
	case errors.As(err, &validErr):
		return validErr.Error()
	case errors.Is(err, resilience.ErrTimeout):
		return "operation timed out"
	default:
		return err.Error()
	}
}
