package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TEAMuP-dev/HARP-sub001/internal/audio"
	"github.com/TEAMuP-dev/HARP-sub001/internal/config"
	"github.com/TEAMuP-dev/HARP-sub001/internal/inference"
	"github.com/TEAMuP-dev/HARP-sub001/internal/protocol"
	"github.com/TEAMuP-dev/HARP-sub001/internal/wave2wave"
)

func TestFactoryBuildsLocal(t *testing.T) {
	resampler, err := NewResampler(config.ResamplerConfig{ModelPath: "builtin:resample"}, testLogger(), nil)
	require.NoError(t, err)

	build := NewFactory(resampler, testLogger(), nil)
	processor, err := build(config.ModelConfig{
		Name:    "identity",
		Backend: config.BackendLocal,
		Local:   config.LocalModelConfig{ModelPath: "builtin:identity", ModelSampleRate: 16000},
	})
	require.NoError(t, err)
	defer processor.Close()

	local, ok := processor.(*wave2wave.Local)
	require.True(t, ok)
	assert.Equal(t, 16000, local.ModelSampleRate)
	assert.True(t, local.Ready())

	buf := audio.NewBuffer(1, 4410)
	require.NoError(t, processor.Process(context.Background(), buf, 44100))
	assert.Equal(t, 1, buf.NumChannels())
	assert.Equal(t, 4410, buf.NumSamples())
}

func TestFactoryBuildsRemote(t *testing.T) {
	build := NewFactory(nil, testLogger(), nil)
	processor, err := build(config.ModelConfig{
		Name:    "remote",
		Backend: config.BackendRemote,
		Remote:  config.RemoteModelConfig{URL: "http://localhost:7860", APIName: "/process", Timeout: 5},
	})
	require.NoError(t, err)
	defer processor.Close()

	_, ok := processor.(*wave2wave.Remote)
	assert.True(t, ok)
	assert.True(t, processor.Ready())
}

func TestFactoryErrors(t *testing.T) {
	build := NewFactory(nil, testLogger(), nil)

	_, err := build(config.ModelConfig{Name: "x", Backend: "gpu"})
	assert.ErrorIs(t, err, inference.ErrConfiguration)

	_, err = build(config.ModelConfig{Name: "x", Backend: config.BackendLocal})
	assert.Error(t, err)

	_, err = build(config.ModelConfig{
		Name:    "x",
		Backend: config.BackendRemote,
		Remote:  config.RemoteModelConfig{URL: "ftp://example.com"},
	})
	assert.ErrorIs(t, err, inference.ErrConfiguration)
}

func TestFactoryRequiresResamplerForModelRate(t *testing.T) {
	build := NewFactory(nil, testLogger(), nil)
	_, err := build(config.ModelConfig{
		Name:    "identity",
		Backend: config.BackendLocal,
		Local:   config.LocalModelConfig{ModelPath: "builtin:identity", ModelSampleRate: 16000},
	})
	assert.ErrorIs(t, err, inference.ErrConfiguration)
}

func TestPipelineInfoIncludesBackendStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := protocol.DecodePredictRequest(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Write(req.Audio())
	}))
	defer srv.Close()

	models := []config.ModelConfig{
		{Name: "identity", Backend: config.BackendLocal, Local: config.LocalModelConfig{ModelPath: "builtin:identity"}},
		{
			Name:    "echo",
			Backend: config.BackendRemote,
			Remote:  config.RemoteModelConfig{URL: srv.URL, APIName: "/process", TempDir: t.TempDir()},
		},
	}
	mgr, err := NewManager(testLogger(), ManagerConfig{Models: models, Factory: NewFactory(nil, testLogger(), nil)}, nil)
	require.NoError(t, err)
	defer mgr.Stop()

	for _, name := range []string{"identity", "echo"} {
		require.NoError(t, mgr.Process(context.Background(), name, audio.NewBuffer(1, 160), 16000))
	}

	infos := mgr.Info()
	require.Len(t, infos, 2)
	byName := map[string]PipelineInfo{}
	for _, info := range infos {
		byName[info.Name] = info
	}

	identity := byName["identity"]
	require.NotNil(t, identity.LocalStats)
	assert.Nil(t, identity.RemoteStats)
	assert.Equal(t, uint64(1), identity.LocalStats.Forwards)
	assert.True(t, identity.LocalStats.Ready)

	echo := byName["echo"]
	require.NotNil(t, echo.RemoteStats)
	assert.Nil(t, echo.LocalStats)
	assert.Equal(t, uint64(1), echo.RemoteStats.SuccessRequests)
}

func TestNewResamplerMissingModel(t *testing.T) {
	_, err := NewResampler(config.ResamplerConfig{ModelPath: "builtin:nope"}, testLogger(), nil)
	assert.ErrorIs(t, err, inference.ErrModelLoad)
}
