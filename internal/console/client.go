package console

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/rmacdonaldsmith/loghub-go/pkg/history"
)

// Status is the decoded reply of the Status call
type Status struct {
	Available            bool
	Length               int
	Capacity             int
	Subscribers          int
	SubscribersAvailable bool
}

// Client calls the LogConsole service
type Client struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn
}

// Dial connects to a console at address without transport security
func Dial(address string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to console: %w", err)
	}
	return &Client{cc: conn, conn: conn}, nil
}

// NewClient wraps an existing connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Close closes the connection if the client opened it
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// History fetches every retained event
func (c *Client) History(ctx context.Context) ([]history.Event, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, historyMethod, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}

	values := out.GetFields()["events"].GetListValue().GetValues()
	events := make([]history.Event, 0, len(values))
	for _, v := range values {
		fields := v.GetStructValue().GetFields()
		level, err := history.ParseLevel(fields["level"].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("bad event in reply: %w", err)
		}
		events = append(events, history.NewEvent(level, fields["message"].GetStringValue()))
	}
	return events, nil
}

// Status fetches the hub snapshot
func (c *Client) Status(ctx context.Context) (Status, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, statusMethod, &emptypb.Empty{}, out); err != nil {
		return Status{}, err
	}
	fields := out.GetFields()
	return Status{
		Available:            fields["available"].GetBoolValue(),
		Length:               int(fields["length"].GetNumberValue()),
		Capacity:             int(fields["capacity"].GetNumberValue()),
		Subscribers:          int(fields["subscribers"].GetNumberValue()),
		SubscribersAvailable: fields["subscribersAvailable"].GetBoolValue(),
	}, nil
}

// TailClient receives lines from a Tail call
type TailClient struct {
	stream grpc.ClientStream
}

// Recv blocks for the next line. It returns io.EOF when the server ends the stream.
func (t *TailClient) Recv() (string, error) {
	m := new(wrapperspb.StringValue)
	if err := t.stream.RecvMsg(m); err != nil {
		return "", err
	}
	return m.GetValue(), nil
}

// Tail opens a live tail. Cancel ctx to close it.
func (c *Client) Tail(ctx context.Context, replay bool) (*TailClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], tailMethod)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(wrapperspb.Bool(replay)); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &TailClient{stream: stream}, nil
}
