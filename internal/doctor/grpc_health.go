package doctor

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rbright/yatra/internal/server"
)

// checkHealthService asks the proxy's gRPC health service whether it is serving.
func checkHealthService(ctx context.Context, addr string) Check {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	status, err := probeHealth(probeCtx, addr)
	if err != nil {
		return Check{Name: "proxy.grpc", Pass: false, Message: err.Error()}
	}
	if status != healthpb.HealthCheckResponse_SERVING {
		return Check{Name: "proxy.grpc", Pass: false, Message: fmt.Sprintf("%s reports %s", addr, status)}
	}
	return Check{Name: "proxy.grpc", Pass: true, Message: fmt.Sprintf("serving at %s", addr)}
}

func probeHealth(ctx context.Context, addr string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	conn.Connect()
	if err := waitForReady(ctx, conn); err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("connect %s: %w", addr, err)
	}

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: server.ServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health check %s: %w", addr, err)
	}
	return resp.GetStatus(), nil
}

// waitForReady blocks until the connection enters Ready or fails.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection entered shutdown state")
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("grpc readiness wait timed out in state %s", state.String())
		}
	}
}
