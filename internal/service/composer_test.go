package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentwork/internal/model"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestBuildOutgoing_TrimsText(t *testing.T) {
	msg, err := BuildOutgoing("  привет  \n", nil, model.SenderUser, now)
	require.NoError(t, err)
	assert.Equal(t, "привет", msg.Content)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, now, msg.Timestamp)
	assert.Equal(t, model.SenderUser, msg.Sender)
	assert.True(t, msg.Read, "своё сообщение для себя прочитано")
}

func TestBuildOutgoing_EmptyRejected(t *testing.T) {
	_, err := BuildOutgoing("", nil, model.SenderUser, now)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = BuildOutgoing("   \t ", nil, model.SenderUser, now)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestBuildOutgoing_ImageAttachment(t *testing.T) {
	att := &model.Attachment{Kind: model.AttachmentImage, URL: "https://cdn/x.png"}
	msg, err := BuildOutgoing("", att, model.SenderUser, now)
	require.NoError(t, err)
	assert.Equal(t, model.KindImage, model.Classify(msg.Content))
	assert.Equal(t, model.ImageBody{URL: "https://cdn/x.png"}, model.ParseBody(msg.Content))
}

func TestBuildOutgoing_AudioAttachment(t *testing.T) {
	att := &model.Attachment{Kind: model.AttachmentAudio, Descriptor: "voice", Seconds: 42}
	msg, err := BuildOutgoing("", att, model.SenderUser, now)
	require.NoError(t, err)
	body := model.ParseBody(msg.Content)
	require.IsType(t, model.AudioBody{}, body)
	assert.Equal(t, "voice", body.(model.AudioBody).Descriptor)
	assert.Equal(t, 42, body.(model.AudioBody).Seconds)
}

func TestBuildOutgoing_CaptionNotMergedIntoAttachment(t *testing.T) {
	att := &model.Attachment{Kind: model.AttachmentImage, URL: "https://cdn/x.png"}
	msg, err := BuildOutgoing("подпись к фото", att, model.SenderUser, now)
	require.NoError(t, err)
	// содержимое — только вложение, подпись не подмешивается
	assert.Equal(t, model.KindImage, model.Classify(msg.Content))
	assert.NotContains(t, msg.Content, "подпись")
}

func TestBuildOutgoing_IncomingSenderUnread(t *testing.T) {
	msg, err := BuildOutgoing("входящее", nil, model.SenderOther, now)
	require.NoError(t, err)
	assert.False(t, msg.Read)
}
