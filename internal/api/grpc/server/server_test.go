package server

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type failingLayer struct{}

func (failingLayer) Listen(string, string) (net.Listener, error) {
	return nil, errors.New("address in use")
}

func TestGRPCServer_Start_ListenError(t *testing.T) {
	err := NewGRPCServer(grpc.NewServer(), ":0").Start(failingLayer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}

func TestGRPCServer_ServeAndStop(t *testing.T) {
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, health.NewServer())
	srv := NewGRPCServer(gs, "127.0.0.1:0")
	assert.Equal(t, "127.0.0.1:0", srv.Address())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(NewPlainListener()) }()

	require.Eventually(t, func() bool { return srv.Address() != "127.0.0.1:0" }, time.Second, 5*time.Millisecond)

	conn, err := grpc.NewClient(srv.Address(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)

	require.NoError(t, srv.Stop(context.Background()))
	require.NoError(t, <-errCh)
}
