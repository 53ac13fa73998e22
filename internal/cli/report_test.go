package cli

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	telemetryv1 "runtelemetry/api/telemetry/v1"
	"runtelemetry/internal/telemetry/domain"
	"runtelemetry/internal/telemetry/handler"
)

type chanEmitter chan *domain.Report

func (c chanEmitter) Emit(_ context.Context, report *domain.Report) error {
	c <- report
	return nil
}

func startIngest(t *testing.T) (addr string, received chanEmitter) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen on loopback: %v", err)
	}
	received = make(chanEmitter, 4)
	s := grpc.NewServer(grpc.ForceServerCodec(telemetryv1.Codec{}))
	telemetryv1.RegisterTelemetryServiceServer(s, handler.NewServer(handler.Deps{Emitter: received}))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)
	return lis.Addr().String(), received
}

func waitReport(t *testing.T, c chanEmitter) *domain.Report {
	t.Helper()
	select {
	case rep := <-c:
		return rep
	case <-time.After(5 * time.Second):
		t.Fatal("no report reached the ingestion service")
		return nil
	}
}

func TestReport_SendsRecord(t *testing.T) {
	isolateSettings(t)
	t.Setenv("TRACKER_ENTITY", "team")
	t.Setenv("TRACKER_PROJECT", "vision")
	addr, received := startIngest(t)

	base := filepath.Join(t.TempDir(), "record.json")
	require.NoError(t, os.WriteFile(base, []byte(`{"python_version":"3.11.4","feature":{"save":true}}`), 0o600))

	out, err := run(t, "", "report", "--addr", addr, "--insecure", "--run-id", "run-42",
		"-f", base, "--init", "torch", "--finish", "torch,transformers")
	require.NoError(t, err)
	assert.Equal(t, "accepted run run-42\n", out)

	rep := waitReport(t, received)
	assert.Equal(t, "run-42", rep.RunID)
	assert.Equal(t, "team", rep.Entity)
	assert.Equal(t, "vision", rep.Project)
	assert.Equal(t, "3.11.4", rep.Record.GetPythonVersion())
	assert.Equal(t, Version, rep.Record.GetCLIVersion())
	require.True(t, rep.Record.HasFeature())
	assert.True(t, rep.Record.Feature.Save)
	require.True(t, rep.Record.HasImportsInit())
	assert.True(t, rep.Record.ImportsInit.Torch)
	require.True(t, rep.Record.HasImportsFinish())
	assert.True(t, rep.Record.ImportsFinish.Transformers)
	assert.Equal(t, "transformers", rep.Record.GetFramework())
}

func TestReport_KeepsRecordedCLIVersion(t *testing.T) {
	isolateSettings(t)
	addr, received := startIngest(t)

	base := filepath.Join(t.TempDir(), "record.json")
	require.NoError(t, os.WriteFile(base, []byte(`{"cli_version":"0.10.30"}`), 0o600))

	_, err := run(t, "", "report", "--addr", addr, "--insecure", "--run-id", "r", "-f", base)
	require.NoError(t, err)
	assert.Equal(t, "0.10.30", waitReport(t, received).Record.GetCLIVersion())
}

func TestReport_GeneratesRunID(t *testing.T) {
	isolateSettings(t)
	addr, received := startIngest(t)

	_, err := run(t, "", "report", "--addr", addr, "--insecure")
	require.NoError(t, err)
	assert.Len(t, waitReport(t, received).RunID, 36)
}

func TestReport_BadRecordFile(t *testing.T) {
	isolateSettings(t)
	base := filepath.Join(t.TempDir(), "record.json")
	require.NoError(t, os.WriteFile(base, []byte(`{`), 0o600))

	_, err := run(t, "", "report", "--addr", "127.0.0.1:1", "--insecure", "-f", base)
	assert.Error(t, err)
}

func TestReport_DeprecatedAndWatch(t *testing.T) {
	isolateSettings(t)
	addr, received := startIngest(t)

	weights := filepath.Join(t.TempDir(), "fc1.weight.txt")
	require.NoError(t, os.WriteFile(weights, []byte("0 1 2\n3 4"), 0o600))

	out, err := run(t, "", "report", "--addr", addr, "--insecure", "--run-id", "watched",
		"--deprecated", "run__join,run__mode", "--watch", weights, "--watch-bins", "4")
	require.NoError(t, err)
	assert.Equal(t, "parameters/fc1.weight: 5 values in 4 bins\naccepted run watched\n", out)

	rep := waitReport(t, received)
	require.True(t, rep.Record.HasDeprecated())
	assert.True(t, rep.Record.Deprecated.RunJoin)
	assert.True(t, rep.Record.Deprecated.RunMode)
	assert.False(t, rep.Record.Deprecated.RunSaveNoArgs)
	require.True(t, rep.Record.HasFeature())
	assert.True(t, rep.Record.Feature.Watch)
	assert.True(t, rep.Record.Feature.Finish)
}

func TestReport_UnknownDeprecatedFeature(t *testing.T) {
	isolateSettings(t)
	_, err := run(t, "", "report", "--addr", "127.0.0.1:1", "--insecure", "--deprecated", "run__teleport")
	assert.ErrorIs(t, err, domain.ErrUnknownFlag)
}

func TestReport_BadWatchFile(t *testing.T) {
	isolateSettings(t)
	weights := filepath.Join(t.TempDir(), "w.txt")
	require.NoError(t, os.WriteFile(weights, []byte("1 x"), 0o600))

	_, err := run(t, "", "report", "--addr", "127.0.0.1:1", "--insecure", "--watch", weights)
	assert.Error(t, err)
}

func TestReport_DetectsEnvironment(t *testing.T) {
	isolateSettings(t)
	t.Setenv("KAGGLE_KERNEL_RUN_TYPE", "Batch")
	t.Setenv("JPY_PARENT_PID", "")
	addr, received := startIngest(t)

	_, err := run(t, "", "report", "--addr", addr, "--insecure", "--run-id", "kaggle-run")
	require.NoError(t, err)

	rep := waitReport(t, received)
	require.True(t, rep.Record.HasEnv())
	assert.True(t, rep.Record.Env.Kaggle)
	assert.False(t, rep.Record.Env.Jupyter)
}

func TestReport_NoEnvironmentLeavesEnvAbsent(t *testing.T) {
	isolateSettings(t)
	t.Setenv("KAGGLE_KERNEL_RUN_TYPE", "")
	t.Setenv("JPY_PARENT_PID", "")
	addr, received := startIngest(t)

	_, err := run(t, "", "report", "--addr", addr, "--insecure", "--run-id", "plain")
	require.NoError(t, err)
	assert.False(t, waitReport(t, received).Record.HasEnv())
}
