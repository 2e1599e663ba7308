package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadLedger(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	const file = "https://www.aclweb.org/anthology/W18.bib"

	has, err := s.HasDownloaded(ctx, file)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.RegisterDownloaded(ctx, file))
	require.NoError(t, s.RegisterDownloaded(ctx, file), "re-registering is allowed")

	has, err = s.HasDownloaded(ctx, file)
	require.NoError(t, err)
	assert.True(t, has)

	downloads, err := s.Downloads(ctx)
	require.NoError(t, err)
	require.Len(t, downloads, 1)
	assert.Equal(t, file, downloads[0].File)

	require.NoError(t, s.ForgetDownloaded(ctx, file))
	has, err = s.HasDownloaded(ctx, file)
	require.NoError(t, err)
	assert.False(t, has)
}
