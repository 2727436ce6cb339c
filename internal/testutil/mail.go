package testutil

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/dtroode/sessionguard/internal/model"
)

// MailRecorder keeps every message it is asked to send.
type MailRecorder struct {
	mu       sync.Mutex
	messages []model.Message
	// Err, when set, is returned by Send and the message is dropped.
	Err error
}

func (r *MailRecorder) Send(_ context.Context, msg model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.messages = append(r.messages, msg)
	return nil
}

func (r *MailRecorder) Messages() []model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Message(nil), r.messages...)
}

// LastToken returns the token query parameter of the link in the last message.
func (r *MailRecorder) LastToken() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return ""
	}
	body := r.messages[len(r.messages)-1].Body
	i := strings.Index(body, "token=")
	if i < 0 {
		return ""
	}
	tok, err := url.QueryUnescape(strings.Fields(body[i+len("token="):])[0])
	if err != nil {
		return ""
	}
	return tok
}
