package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/willmacd/dql-tetris/relay"
	"github.com/willmacd/dql-tetris/tetris"
)

// Remote publishes the frames of one game to the relay server.
type Remote struct {
	Name   string
	Logger *slog.Logger

	conn   *grpc.ClientConn
	stream grpc.ClientStreamingClient[structpb.Struct, structpb.Struct]
	cancel context.CancelFunc
}

// Dial connects to the relay at addr and opens a Publish stream.
func Dial(ctx context.Context, addr, name string, l *slog.Logger, opts ...grpc.DialOption) (*Remote, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create gRPC client: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	stream, err := relay.NewRelayClient(conn).Publish(ctx)
	if err != nil {
		cancel()
		conn.Close() //nolint: errcheck
		return nil, fmt.Errorf("unable to create gRPC Publish stream: %w", err)
	}
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Remote{Name: name, Logger: l, conn: conn, stream: stream, cancel: cancel}, nil
}

func (r *Remote) Publish(s tetris.Snapshot) error {
	msg, err := relay.FromSnapshot(r.Name, s).Struct()
	if err != nil {
		return err
	}
	if err := r.stream.Send(msg); err != nil {
		if errors.Is(err, io.EOF) {
			// the server ended the stream, the reason comes with CloseAndRecv.
			_, err = r.stream.CloseAndRecv()
		}
		return fmt.Errorf("send() unable to send frame: %w", err)
	}
	return nil
}

// Close ends the stream and returns the id the relay gave the session.
func (r *Remote) Close() (string, error) {
	defer func() {
		r.cancel()
		if err := r.conn.Close(); err != nil {
			r.Logger.Error("unable to close gRPC client", slog.String("error", err.Error()))
		}
	}()
	resp, err := r.stream.CloseAndRecv()
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == codes.Canceled {
			r.Logger.Debug("publish stream closed with Cancel", slog.String("msg", st.Message()))
			return "", nil
		}
		return "", fmt.Errorf("unable to close Publish stream: %w", err)
	}
	return relay.SessionID(resp), nil
}
