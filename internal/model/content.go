package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind — вид содержимого сообщения.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// Tagged-кодировка содержимого на границе хранения. Внутренняя логика
// никогда не матчит эти префиксы напрямую — только через ParseBody/Classify.
const (
	imageTag      = "image-message:"
	audioTag      = "audio-message:"
	imageDataURI  = "data:image"
	audioDuration = "(%ds)"
)

// Body — типизированное содержимое сообщения: TextBody | ImageBody | AudioBody.
type Body interface {
	Kind() Kind
}

type TextBody struct {
	Text string
}

func (TextBody) Kind() Kind { return KindText }

type ImageBody struct {
	URL string
}

func (ImageBody) Kind() Kind { return KindImage }

type AudioBody struct {
	Descriptor string
	Seconds    int
}

func (AudioBody) Kind() Kind { return KindAudio }

// EncodeBody сериализует Body в строку для Message.Content.
func EncodeBody(b Body) string {
	switch v := b.(type) {
	case ImageBody:
		return imageTag + v.URL
	case AudioBody:
		return audioTag + v.Descriptor + fmt.Sprintf(audioDuration, v.Seconds)
	case TextBody:
		return v.Text
	default:
		return ""
	}
}

// ParseBody восстанавливает Body из строки Content. Голый data-URI картинки
// тоже считается изображением; всё нераспознанное — текст.
func ParseBody(content string) Body {
	switch {
	case strings.HasPrefix(content, imageTag):
		return ImageBody{URL: content[len(imageTag):]}
	case strings.HasPrefix(content, audioTag):
		desc, secs := parseAudio(content[len(audioTag):])
		return AudioBody{Descriptor: desc, Seconds: secs}
	case strings.HasPrefix(content, imageDataURI):
		return ImageBody{URL: content}
	default:
		return TextBody{Text: content}
	}
}

// parseAudio отделяет хвост "(<seconds>s)" от дескриптора.
// Повреждённый хвост не считается ошибкой: весь остаток — дескриптор.
func parseAudio(s string) (descriptor string, seconds int) {
	open := strings.LastIndex(s, "(")
	if open < 0 || !strings.HasSuffix(s, "s)") {
		return s, 0
	}
	n, err := strconv.Atoi(s[open+1 : len(s)-2])
	if err != nil || n < 0 {
		return s, 0
	}
	return s[:open], n
}

// Classify возвращает вид содержимого: text | image | audio.
func Classify(content string) Kind {
	return ParseBody(content).Kind()
}

// AttachmentKind — вид вложения от сервиса захвата (камера/микрофон).
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentAudio AttachmentKind = "audio"
)

// Attachment — готовый дескриптор вложения от внешнего сервиса захвата.
// Движок не интерпретирует URL/Descriptor, только кодирует их в Content.
type Attachment struct {
	Kind       AttachmentKind `json:"kind"`
	URL        string         `json:"url,omitempty"`
	Descriptor string         `json:"descriptor,omitempty"`
	Seconds    int            `json:"seconds,omitempty"`
}

// Body кодирует вложение в типизированное содержимое сообщения.
func (a Attachment) Body() Body {
	if a.Kind == AttachmentAudio {
		return AudioBody{Descriptor: a.Descriptor, Seconds: a.Seconds}
	}
	return ImageBody{URL: a.URL}
}
