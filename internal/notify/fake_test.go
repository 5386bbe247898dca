package notify

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/ElusiveMori/mmhscanner/internal/game"
)

const fakeBotID = "bot-user"

type fakeMessage struct {
	id       string
	authorID string
	content  string
	embed    *discordgo.MessageEmbed
}

// fakeChannel is an in-memory ChannelClient. Messages are stored oldest
// first; History returns them newest first like the platform does.
type fakeChannel struct {
	mu        sync.Mutex
	channelID string
	denied    map[Capability]bool
	nextID    int
	messages  []fakeMessage
	edits     []string
	deletes   []string
	sendErr   error
}

func newFakeChannel(channelID string) *fakeChannel {
	return &fakeChannel{
		channelID: channelID,
		denied:    make(map[Capability]bool),
	}
}

func (f *fakeChannel) ChannelID() string { return f.channelID }
func (f *fakeChannel) BotUserID() string { return fakeBotID }

func (f *fakeChannel) Can(c Capability) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.denied[c]
}

func (f *fakeChannel) deny(c Capability) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.denied[c] = true
}

func (f *fakeChannel) Send(content string, embed *discordgo.MessageEmbed) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.nextID++
	id := fmt.Sprintf("m%d", f.nextID)
	f.messages = append(f.messages, fakeMessage{id: id, authorID: fakeBotID, content: content, embed: embed})
	return id, nil
}

// chatter injects a message from somebody else, burying the bot's.
func (f *fakeChannel) chatter(authorID, content string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("m%d", f.nextID)
	f.messages = append(f.messages, fakeMessage{id: id, authorID: authorID, content: content})
	return id
}

func (f *fakeChannel) Edit(messageID, content string, embed *discordgo.MessageEmbed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.messages {
		if f.messages[i].id == messageID {
			f.messages[i].content = content
			f.messages[i].embed = embed
			f.edits = append(f.edits, messageID)
			return nil
		}
	}
	return fmt.Errorf("unknown message %s", messageID)
}

func (f *fakeChannel) Delete(messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.messages {
		if f.messages[i].id == messageID {
			f.messages = append(f.messages[:i], f.messages[i+1:]...)
			f.deletes = append(f.deletes, messageID)
			return nil
		}
	}
	return fmt.Errorf("unknown message %s", messageID)
}

func (f *fakeChannel) History(limit int) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for i := len(f.messages) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, Message{ID: f.messages[i].id, AuthorID: f.messages[i].authorID})
	}
	return out, nil
}

func (f *fakeChannel) Mention(category game.Category) string { return "@here" }

func (f *fakeChannel) messageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeChannel) snapshotMessages() []fakeMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeMessage, len(f.messages))
	copy(out, f.messages)
	return out
}

func (f *fakeChannel) containing(substr string) []fakeMessage {
	var out []fakeMessage
	for _, m := range f.snapshotMessages() {
		if strings.Contains(m.content, substr) {
			out = append(out, m)
		}
	}
	return out
}

// flush waits until every operation queued so far has run.
func (d *Dispatcher) flush() {
	done := make(chan struct{})
	if d.submit(func() { close(done) }) {
		<-done
	}
}
