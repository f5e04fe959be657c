package attachments

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCategory_Allows(t *testing.T) {
	req := require.New(t)

	// Images accept only the image extensions, case-insensitive
	req.True(Images.Allows("png"))
	req.True(Images.Allows("JPG"))
	req.True(Images.Allows(".webp"))
	req.False(Images.Allows("mp3"))
	req.False(Images.Allows("pdf"))

	// Audios accept only the audio extensions
	req.True(Audios.Allows("mp3"))
	req.True(Audios.Allows("ogg"))
	req.False(Audios.Allows("png"))

	// Files accept anything, even unknown extensions
	req.True(Files.Allows("pdf"))
	req.True(Files.Allows("png"))
	req.True(Files.Allows("weird"))
	req.True(Files.Allows(""))
}
