package domain

import "unicode/utf8"

// MaxMessageLength is the longest text Discord accepts in a single message.
const MaxMessageLength = 2000

const (
	NoResponseText       = "No response generated."
	OversizeResponseText = "Response was too long, uploaded as file:"
	ResponseFileName     = "response.txt"
)

type Response struct {
	ChannelID string
	ReplyToID string
	Text      string
	File      *File
}

type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// NewReply builds the reply to a message. Text longer than MaxMessageLength
// characters is moved into an attached file.
func NewReply(channelID, replyToID, text string) Response {
	r := Response{ChannelID: channelID, ReplyToID: replyToID}

	switch {
	case text == "":
		r.Text = NoResponseText
	case FitsInline(text):
		r.Text = text
	default:
		r.Text = OversizeResponseText
		r.File = &File{
			Name:        ResponseFileName,
			ContentType: "text/plain; charset=utf-8",
			Data:        []byte(text),
		}
	}

	return r
}

func FitsInline(text string) bool {
	return utf8.RuneCountInString(text) <= MaxMessageLength
}
