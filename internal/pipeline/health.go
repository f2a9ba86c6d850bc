package pipeline

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// #region health-probe

// HealthProbe checks the trainer sidecar's gRPC health endpoint before a
// retrain is dispatched, so an unreachable trainer fails fast instead of
// after a long pipeline timeout.
type HealthProbe struct {
	conn    *grpc.ClientConn
	client  grpc_health_v1.HealthClient
	service string
}

// NewHealthProbe connects to the trainer's gRPC health service.
func NewHealthProbe(addr, service string) (*HealthProbe, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &HealthProbe{
		conn:    conn,
		client:  grpc_health_v1.NewHealthClient(conn),
		service: service,
	}, nil
}

// NewHealthProbeWithClient creates a HealthProbe with an injected health
// client. Used for testing without a real gRPC connection.
func NewHealthProbeWithClient(client grpc_health_v1.HealthClient, service string) *HealthProbe {
	return &HealthProbe{client: client, service: service}
}

// Ready returns nil when the trainer reports SERVING.
func (p *HealthProbe) Ready(ctx context.Context) error {
	resp, err := p.client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: p.service})
	if err != nil {
		return fmt.Errorf("%w: health check: %v", ErrRun, err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: trainer not serving (status %s)", ErrRun, resp.GetStatus())
	}
	return nil
}

// Close closes the underlying connection, if one was dialed.
func (p *HealthProbe) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

// #endregion health-probe
