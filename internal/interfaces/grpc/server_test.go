package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/turtacn/ChemStor-Intelligence/internal/config"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
)

func newCaptureLogger(t *testing.T) (logging.Logger, *zaptest.Buffer) {
	t.Helper()
	buf := &zaptest.Buffer{}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), buf, zapcore.DebugLevel)
	return logging.NewLoggerFromCore(core), buf
}

func serverConfig(mode string) config.ServerConfig {
	return config.ServerConfig{Port: 8080, GRPCPort: 0, Mode: mode}
}

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────────────────────

func TestNewServer_BindsListener(t *testing.T) {
	server, err := NewServer(serverConfig("release"))
	require.NoError(t, err)
	defer func() { _ = server.Stop(context.Background()) }()

	assert.NotEmpty(t, server.Addr())
	assert.NotEqual(t, ":0", server.Addr(), "port 0 should resolve to an OS-assigned port")
}

func TestNewServer_ReflectionOnlyInDebug(t *testing.T) {
	debug, err := NewServer(serverConfig("debug"))
	require.NoError(t, err)
	defer func() { _ = debug.Stop(context.Background()) }()

	release, err := NewServer(serverConfig("release"))
	require.NoError(t, err)
	defer func() { _ = release.Stop(context.Background()) }()

	hasReflection := func(s *Server) bool {
		for name := range s.grpcServer.GetServiceInfo() {
			if name == "grpc.reflection.v1.ServerReflection" || name == "grpc.reflection.v1alpha.ServerReflection" {
				return true
			}
		}
		return false
	}

	assert.True(t, hasReflection(debug))
	assert.False(t, hasReflection(release))
}

func TestServer_StartServesHealth(t *testing.T) {
	server, err := NewServer(serverConfig("release"))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- server.Start() }()

	conn, err := grpc.Dial(server.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	require.NoError(t, server.Stop(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop in time")
	}
}

func TestServer_SetServingFlipsHealth(t *testing.T) {
	server, err := NewServer(serverConfig("release"))
	require.NoError(t, err)

	go func() { _ = server.Start() }()
	defer func() { _ = server.Stop(context.Background()) }()

	conn, err := grpc.Dial(server.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	server.SetServing(false)
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	server.SetServing(true)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestServer_DoubleStartFails(t *testing.T) {
	server, err := NewServer(serverConfig("release"))
	require.NoError(t, err)

	go func() { _ = server.Start() }()
	defer func() { _ = server.Stop(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	assert.Error(t, server.Start())
}

func TestServer_StopBeforeStart(t *testing.T) {
	server, err := NewServer(serverConfig("release"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, server.Stop(ctx))
}

func TestServer_RegisterServiceMarksHealthy(t *testing.T) {
	server, err := NewServer(serverConfig("release"))
	require.NoError(t, err)

	desc := &grpc.ServiceDesc{
		ServiceName: "chemstor.v1.Placeholder",
		HandlerType: (*interface{})(nil),
	}
	server.RegisterService(desc, struct{}{})

	go func() { _ = server.Start() }()
	defer func() { _ = server.Stop(context.Background()) }()

	conn, err := grpc.Dial(server.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: "chemstor.v1.Placeholder"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

// ─────────────────────────────────────────────────────────────────────────────
// Interceptors
// ─────────────────────────────────────────────────────────────────────────────

func unaryInfo(method string) *grpc.UnaryServerInfo {
	return &grpc.UnaryServerInfo{FullMethod: method}
}

func TestRecoveryUnaryInterceptor(t *testing.T) {
	logger, buf := newCaptureLogger(t)
	interceptor := recoveryUnaryInterceptor(logger)

	resp, err := interceptor(context.Background(), "req", unaryInfo("/chemstor.v1.Sorting/Sort"),
		func(ctx context.Context, req interface{}) (interface{}, error) {
			panic("boom")
		})

	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))

	lines := buf.Lines()
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "grpc panic recovered")
	assert.Contains(t, lines[0], "boom")
}

func TestRecoveryUnaryInterceptor_PassThrough(t *testing.T) {
	interceptor := recoveryUnaryInterceptor(logging.NewNopLogger())

	resp, err := interceptor(context.Background(), "req", unaryInfo("/chemstor.v1.Sorting/Sort"),
		func(ctx context.Context, req interface{}) (interface{}, error) {
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestLoggingUnaryInterceptor(t *testing.T) {
	logger, buf := newCaptureLogger(t)
	interceptor := loggingUnaryInterceptor(logger)

	_, err := interceptor(context.Background(), "req", unaryInfo("/chemstor.v1.Sorting/Sort"),
		func(ctx context.Context, req interface{}) (interface{}, error) {
			return "ok", nil
		})
	require.NoError(t, err)

	lines := buf.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "grpc request")
	assert.Contains(t, lines[0], "/chemstor.v1.Sorting/Sort")
	assert.Contains(t, lines[0], `"code":"OK"`)
}

func TestLoggingUnaryInterceptor_SkipsHealthCheck(t *testing.T) {
	logger, buf := newCaptureLogger(t)
	interceptor := loggingUnaryInterceptor(logger)

	_, err := interceptor(context.Background(), "req", unaryInfo("/grpc.health.v1.Health/Check"),
		func(ctx context.Context, req interface{}) (interface{}, error) {
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Empty(t, buf.Lines())
}

func TestLoggingUnaryInterceptor_ErrorCode(t *testing.T) {
	logger, buf := newCaptureLogger(t)
	interceptor := loggingUnaryInterceptor(logger)

	_, err := interceptor(context.Background(), "req", unaryInfo("/chemstor.v1.Sorting/Sort"),
		func(ctx context.Context, req interface{}) (interface{}, error) {
			return nil, status.Error(codes.NotFound, "no such run")
		})

	require.Error(t, err)
	require.Len(t, buf.Lines(), 1)
	assert.Contains(t, buf.Lines()[0], `"code":"NotFound"`)
}

func TestMetricsUnaryInterceptor_NilMetricsPassesThrough(t *testing.T) {
	interceptor := metricsUnaryInterceptor(nil)

	resp, err := interceptor(context.Background(), "req", unaryInfo("/chemstor.v1.Sorting/Sort"),
		func(ctx context.Context, req interface{}) (interface{}, error) {
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

type selfValidatingRequest struct {
	fail bool
}

func (r *selfValidatingRequest) Validate() error {
	if r.fail {
		return assert.AnError
	}
	return nil
}

func TestValidationUnaryInterceptor(t *testing.T) {
	interceptor := validationUnaryInterceptor()

	t.Run("valid request reaches handler", func(t *testing.T) {
		resp, err := interceptor(context.Background(), &selfValidatingRequest{}, unaryInfo("/x/Y"),
			func(ctx context.Context, req interface{}) (interface{}, error) {
				return "ok", nil
			})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)
	})

	t.Run("invalid request is rejected", func(t *testing.T) {
		called := false
		_, err := interceptor(context.Background(), &selfValidatingRequest{fail: true}, unaryInfo("/x/Y"),
			func(ctx context.Context, req interface{}) (interface{}, error) {
				called = true
				return "ok", nil
			})
		require.Error(t, err)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
		assert.False(t, called)
	})

	t.Run("plain request passes untouched", func(t *testing.T) {
		resp, err := interceptor(context.Background(), "plain", unaryInfo("/x/Y"),
			func(ctx context.Context, req interface{}) (interface{}, error) {
				return "ok", nil
			})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)
	})
}

func TestSplitMethodName(t *testing.T) {
	tests := []struct {
		full    string
		service string
		method  string
	}{
		{"/chemstor.v1.Sorting/Sort", "chemstor.v1.Sorting", "Sort"},
		{"/grpc.health.v1.Health/Check", "grpc.health.v1.Health", "Check"},
		{"bare", "unknown", "bare"},
	}
	for _, tt := range tests {
		service, method := splitMethodName(tt.full)
		assert.Equal(t, tt.service, service, tt.full)
		assert.Equal(t, tt.method, method, tt.full)
	}
}

//Personal.AI order the ending
