package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapExtToFormat(t *testing.T) {
	assert.Equal(t, PDF, MapExtToFormat("pdf"))
	assert.Equal(t, PDF, MapExtToFormat(".PDF"))
	assert.Equal(t, IMAGE, MapExtToFormat("jpg"))
	assert.Equal(t, IMAGE, MapExtToFormat("JPEG"))
	assert.Equal(t, IMAGE, MapExtToFormat(".png"))
	assert.Equal(t, Format(""), MapExtToFormat("txt"))
	assert.Equal(t, Format(""), MapExtToFormat(""))
}

func TestExtOf(t *testing.T) {
	assert.Equal(t, "pdf", ExtOf("/uploads/Receipt.PDF"))
	assert.Equal(t, "png", ExtOf("scan.png"))
	assert.Equal(t, "", ExtOf("noext"))
}

func TestIsAllowedExt(t *testing.T) {
	assert.True(t, IsAllowedExt("pdf"))
	assert.True(t, IsAllowedExt(".JPG"))
	assert.False(t, IsAllowedExt("gif"))
	assert.False(t, IsAllowedExt(""))
}
