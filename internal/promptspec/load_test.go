package promptspec_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleybot/parley/internal/kind"
	"github.com/parleybot/parley/internal/promptspec"
)

func TestLoad_ValidPack(t *testing.T) {
	pack, err := promptspec.Load(filepath.Join("testdata", "valid"))
	require.NoError(t, err)
	require.NotNil(t, pack)

	assert.Equal(t, 1, pack.FileCount)
	require.Len(t, pack.Prompts, 4)

	// Prompts are sorted by name for deterministic registration order.
	names := make([]string, len(pack.Prompts))
	for i, p := range pack.Prompts {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"proceed", "region", "replicas", "version"}, names)

	replicas := pack.Prompts[2]
	assert.Equal(t, kind.Number, replicas.Kind)
	assert.Equal(t, "How many replicas?", replicas.Text)
	assert.Equal(t, []string{"1", "10"}, replicas.Extra)

	proceed := pack.Prompts[0]
	assert.Equal(t, kind.Boolean, proceed.Kind)
	assert.Empty(t, proceed.Extra)
}

func TestLoad_ValidPackPassesVet(t *testing.T) {
	pack, err := promptspec.Load(filepath.Join("testdata", "valid"))
	require.NoError(t, err)

	assert.NoError(t, promptspec.Vet(pack.Prompts, kind.NewRegistry()))
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := promptspec.Load(filepath.Join("testdata", "no-such-pack"))
	require.Error(t, err)

	var lerr *promptspec.LoadError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, promptspec.ErrCodeNotFound, lerr.Code)
}

func TestLoad_NoCUEFiles(t *testing.T) {
	_, err := promptspec.Load(filepath.Join("testdata", "nocue"))
	require.Error(t, err)

	var lerr *promptspec.LoadError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, promptspec.ErrCodeNoFiles, lerr.Code)
}

func TestLoad_UnknownKindRejectedBySchema(t *testing.T) {
	_, err := promptspec.Load(filepath.Join("testdata", "badkind"))
	require.Error(t, err)

	var lerr *promptspec.LoadError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, promptspec.ErrCodeInvalid, lerr.Code)
}

func TestLoad_EmptyPackRejected(t *testing.T) {
	_, err := promptspec.Load(filepath.Join("testdata", "emptypack"))
	require.Error(t, err)

	var cerr *promptspec.CompileError
	require.True(t, errors.As(err, &cerr))
}

func TestVet_CatchesBadExtra(t *testing.T) {
	// An unparseable regex is structurally a valid pack; it fails the
	// registry vet, not the schema.
	pack, err := promptspec.Load(filepath.Join("testdata", "badextra"))
	require.NoError(t, err)

	err = promptspec.Vet(pack.Prompts, kind.NewRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}

func TestVet_UnknownKind(t *testing.T) {
	prompts := []promptspec.Prompt{{Name: "weather", Kind: kind.Kind("forecast"), Text: "?"}}

	assert.Error(t, promptspec.Vet(prompts, kind.NewRegistry()))
}
