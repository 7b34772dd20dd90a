package cloudinary

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)
}

func TestPublicIDKeepsFolderSegments(t *testing.T) {
	require.Equal(t, "evaluations/7/plano-de-aula", publicID("evaluations/7/plano de aula.pdf"))
}

func TestSplitKeyDefaultsToImage(t *testing.T) {
	resourceType, id := splitKey("raw:evaluations/7/plano")
	require.Equal(t, "raw", resourceType)
	require.Equal(t, "evaluations/7/plano", id)

	resourceType, id = splitKey("signatures/3")
	require.Equal(t, "image", resourceType)
	require.Equal(t, "signatures/3", id)
}
