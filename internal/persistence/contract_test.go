package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/formflow/pkg/api"
)

// runStorageContract checks the behavior every backend shares. Each run
// uses fresh session keys so backends can be shared between runs.
func runStorageContract(t *testing.T, b api.StorageBackend) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty session", func(t *testing.T) {
		s := b.Storage(uuid.NewString())

		cur, err := s.CurrentStep(ctx)
		require.NoError(t, err)
		assert.Equal(t, "", cur)

		data, err := s.StepData(ctx, "0")
		require.NoError(t, err)
		assert.Nil(t, data)

		files, err := s.StepFiles(ctx, "0")
		require.NoError(t, err)
		assert.Nil(t, files)

		extra, err := s.ExtraData(ctx)
		require.NoError(t, err)
		assert.Empty(t, extra)
	})

	t.Run("round trip", func(t *testing.T) {
		s := b.Storage(uuid.NewString())

		require.NoError(t, s.SetCurrentStep(ctx, "page1|step1.2"))
		require.NoError(t, s.SetStepData(ctx, "page1|step1.1", api.Values{"name": {"hurray"}, "thirsty": {"on"}}))
		require.NoError(t, s.SetStepFiles(ctx, "page1|step1.1", api.Files{"cv": {Field: "cv", Name: "cv.pdf", Size: 42, Path: "p/cv.pdf"}}))
		require.NoError(t, s.SetExtraData(ctx, map[string]any{"origin": "test"}))

		cur, err := s.CurrentStep(ctx)
		require.NoError(t, err)
		assert.Equal(t, "page1|step1.2", cur)

		data, err := s.StepData(ctx, "page1|step1.1")
		require.NoError(t, err)
		assert.Equal(t, api.Values{"name": {"hurray"}, "thirsty": {"on"}}, data)

		files, err := s.StepFiles(ctx, "page1|step1.1")
		require.NoError(t, err)
		assert.Equal(t, "cv.pdf", files["cv"].Name)
		assert.Equal(t, int64(42), files["cv"].Size)

		extra, err := s.ExtraData(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"origin": "test"}, extra)
	})

	t.Run("overwrite step", func(t *testing.T) {
		s := b.Storage(uuid.NewString())

		require.NoError(t, s.SetStepData(ctx, "0", api.Values{"name": {"first"}}))
		require.NoError(t, s.SetStepData(ctx, "0", api.Values{"name": {"second"}}))

		data, err := s.StepData(ctx, "0")
		require.NoError(t, err)
		assert.Equal(t, []string{"second"}, data["name"])
	})

	t.Run("empty submission is stored", func(t *testing.T) {
		s := b.Storage(uuid.NewString())

		require.NoError(t, s.SetStepData(ctx, "0", api.Values{}))
		data, err := s.StepData(ctx, "0")
		require.NoError(t, err)
		assert.NotNil(t, data)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		a := b.Storage(uuid.NewString())
		other := b.Storage(uuid.NewString())

		require.NoError(t, a.SetStepData(ctx, "0", api.Values{"name": {"a"}}))
		data, err := other.StepData(ctx, "0")
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("reset", func(t *testing.T) {
		key := uuid.NewString()
		s := b.Storage(key)

		require.NoError(t, s.SetCurrentStep(ctx, "1"))
		require.NoError(t, s.SetStepData(ctx, "0", api.Values{"name": {"x"}}))
		require.NoError(t, s.SetExtraData(ctx, map[string]any{"k": "v"}))
		require.NoError(t, s.Reset(ctx))

		s = b.Storage(key)
		cur, err := s.CurrentStep(ctx)
		require.NoError(t, err)
		assert.Equal(t, "", cur)

		data, err := s.StepData(ctx, "0")
		require.NoError(t, err)
		assert.Nil(t, data)

		extra, err := s.ExtraData(ctx)
		require.NoError(t, err)
		assert.Empty(t, extra)

		require.NoError(t, s.Reset(ctx), "reset is idempotent")
	})
}
