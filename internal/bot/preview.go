package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// previewPlayer is an audio message posted into the chat. Pausing it deletes the
// message so that only one preview is ever left in the conversation.
type previewPlayer struct {
	id     string
	chatID int64
	media  func() tgbotapi.Chattable
	api    telegramAPI

	mu        sync.Mutex
	messageID int
}

func newPreviewPlayer(api telegramAPI, id string, chatID int64, media func() tgbotapi.Chattable) *previewPlayer {
	return &previewPlayer{id: id, chatID: chatID, media: media, api: api}
}

func (p *previewPlayer) ID() string {
	return p.id
}

func (p *previewPlayer) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := p.api.Send(p.media())
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.messageID = m.MessageID
	p.mu.Unlock()
	return nil
}

func (p *previewPlayer) Pause(context.Context) error {
	p.mu.Lock()
	id := p.messageID
	p.messageID = 0
	p.mu.Unlock()
	if id == 0 {
		return nil
	}
	_, err := p.api.Request(tgbotapi.NewDeleteMessage(p.chatID, id))
	return err
}
