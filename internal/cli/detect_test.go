package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runtelemetry/internal/telemetry/domain"
)

func TestDetect_Imports(t *testing.T) {
	out, err := run(t, "", "detect", "--init", "torch,pytorch_lightning.trainer", "--finish", "transformers")
	require.NoError(t, err)

	var rec domain.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	require.True(t, rec.HasImportsInit())
	assert.True(t, rec.ImportsInit.Torch)
	assert.True(t, rec.ImportsInit.PytorchLightning)
	require.True(t, rec.HasImportsFinish())
	assert.True(t, rec.ImportsFinish.Transformers)
	assert.Equal(t, "transformers", rec.GetFramework())
	assert.False(t, rec.HasEnv())
}

func TestDetect_EmptyInitIsObserved(t *testing.T) {
	out, err := run(t, "", "detect", "--init", "")
	require.NoError(t, err)

	var rec domain.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.True(t, rec.HasImportsInit())
	assert.False(t, rec.HasImportsFinish())
	assert.False(t, rec.HasFramework())
}

func TestDetect_Env(t *testing.T) {
	t.Setenv("KAGGLE_KERNEL_RUN_TYPE", "Interactive")
	out, err := run(t, "", "detect", "--env")
	require.NoError(t, err)

	var rec domain.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	require.True(t, rec.HasEnv())
	assert.True(t, rec.Env.Kaggle)
}
