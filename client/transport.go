package client

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// Default RPC procedure paths for the agent runtime.
const (
	defaultQueryProcedure   = "/agent.v1.AgentService/Query"
	defaultRespondProcedure = "/agent.v1.AgentService/RespondTool"
)

// MessageStream is one open inbound stream of agent messages. Receive
// advances to the next message; when it returns false, Err distinguishes
// clean end-of-stream (nil) from failure.
type MessageStream interface {
	Receive() bool
	Msg() *AgentMessage
	Err() error
	Close() error
}

// Transport opens query streams and delivers tool responses. The connect
// implementation is the production transport; tests substitute fakes.
type Transport interface {
	Open(ctx context.Context, req *QueryRequest) (MessageStream, error)
	Respond(ctx context.Context, resp *ToolResponse) error
}

type connectTransport struct {
	query   *connect.Client[QueryRequest, AgentMessage]
	respond *connect.Client[ToolResponse, ToolResponseAck]
}

// NewConnectTransport builds the production Transport against the agent
// runtime at baseURL. The custom codec speaks the runtime's plain JSON
// wire format.
func NewConnectTransport(httpClient *http.Client, baseURL string) Transport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	codec := connect.WithCodec(jsonCodec{})
	return &connectTransport{
		query:   connect.NewClient[QueryRequest, AgentMessage](httpClient, baseURL+defaultQueryProcedure, codec),
		respond: connect.NewClient[ToolResponse, ToolResponseAck](httpClient, baseURL+defaultRespondProcedure, codec),
	}
}

func (t *connectTransport) Open(ctx context.Context, req *QueryRequest) (MessageStream, error) {
	stream, err := t.query.CallServerStream(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, classify(err)
	}
	return &connectStream{stream: stream}, nil
}

func (t *connectTransport) Respond(ctx context.Context, resp *ToolResponse) error {
	_, err := t.respond.CallUnary(ctx, connect.NewRequest(resp))
	return classify(err)
}

type connectStream struct {
	stream *connect.ServerStreamForClient[AgentMessage]
}

func (s *connectStream) Receive() bool      { return s.stream.Receive() }
func (s *connectStream) Msg() *AgentMessage { return s.stream.Msg() }
func (s *connectStream) Err() error         { return classify(s.stream.Err()) }
func (s *connectStream) Close() error       { return s.stream.Close() }
