package grpcapp

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name reported by the health service for this process.
const ServiceName = "orderchat.v1.OrderChat"

type Config struct {
	Port string `yaml:"port" env:"GRPC_PORT" env-default:":50051"`
}

// App serves grpc.health.v1.Health for probes and load balancers.
type App struct {
	log        *slog.Logger
	gRPCServer *grpc.Server
	health     *health.Server
	port       string
}

func New(log *slog.Logger, config *Config) *App {
	gRPCServer := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: 30 * time.Minute,
			Time:              5 * time.Minute,
			Timeout:           20 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             30 * time.Second,
			PermitWithoutStream: true,
		}),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	healthpb.RegisterHealthServer(gRPCServer, hs)
	reflection.Register(gRPCServer)

	return &App{
		log:        log,
		gRPCServer: gRPCServer,
		health:     hs,
		port:       config.Port,
	}
}

func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

func (a *App) Run() error {
	const op = "grpcapp.Run"

	log := a.log.With(slog.String("op", op), slog.String("port", a.port))

	l, err := net.Listen("tcp", a.port)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return a.serve(log, l)
}

func (a *App) serve(log *slog.Logger, l net.Listener) error {
	const op = "grpcapp.serve"

	a.SetServing(true)
	log.Info("grpc server started", slog.String("addr", l.Addr().String()))

	if err := a.gRPCServer.Serve(l); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SetServing flips the reported health of the process.
func (a *App) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}

	a.health.SetServingStatus("", status)
	a.health.SetServingStatus(ServiceName, status)
}

func (a *App) Stop() {
	const op = "grpcapp.Stop"

	a.log.With(slog.String("op", op)).Info("stopping gRPC server")

	a.health.Shutdown()
	a.gRPCServer.GracefulStop()
}
