package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewPayload_AudioIsExclusive(t *testing.T) {
	req := require.New(t)
	audio := &File{ID: uuid.New(), URL: "https://cdn/voice.mp3"}
	image := File{ID: uuid.New(), URL: "https://cdn/pic.png"}

	// When audio is present, everything else is discarded
	payload := NewPayload("some text", nil, []File{image}, audio)

	req.Equal(PayloadAudio, payload.Kind())
	req.Empty(payload.Text)
	req.Empty(payload.Images)
	req.NotNil(payload.Audio)
}

func TestPayload_Kind(t *testing.T) {
	req := require.New(t)

	req.Equal(PayloadNone, NewPayload("", nil, nil, nil).Kind())
	req.Equal(PayloadText, NewPayload("hi", nil, nil, nil).Kind())
	req.Equal(PayloadMedia, NewPayload("", []File{{}}, nil, nil).Kind())
	req.Equal(PayloadMedia, NewPayload("caption", nil, []File{{}}, nil).Kind())

	req.True(NewPayload("", nil, nil, nil).Empty())
	req.False(NewPayload("hi", nil, nil, nil).Empty())
}

func TestMessage_Public(t *testing.T) {
	req := require.New(t)
	image := File{ID: uuid.New(), URL: "https://cdn/pic.png"}
	attached := File{ID: uuid.New(), Name: "report.pdf", Size: 1024, URL: "https://cdn/report.pdf"}

	message := Message{
		ID:      uuid.New(),
		Sender:  Member{ID: uuid.New(), User: User{ID: uuid.New(), Username: "alice"}},
		Payload: NewPayload("look", []File{attached}, []File{image}, nil),
	}

	public := message.Public()

	req.NotNil(public.Text)
	req.Equal("look", *public.Text)
	req.Equal([]string{image.URL}, public.Images)
	req.Len(public.Files, 1)
	req.Equal("report.pdf", public.Files[0].Name)
	req.Nil(public.Audio)
	req.Equal("alice", public.Sender.User.Username)
}

func TestPairKey_IsOrderIndependent(t *testing.T) {
	req := require.New(t)
	a, b := uuid.New(), uuid.New()

	req.Equal(PairKey(a, b), PairKey(b, a))
	req.NotEqual(PairKey(a, b), PairKey(a, uuid.New()))
}
