package tgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/igolaizola/rapbattle/pkg/storage"
)

// Store uploads artifacts as documents to a telegram chat. Telegram returns
// its own file ids, so the ref of every uploaded name is kept in the database.
type Store struct {
	bot    *tgbot.BotAPI
	chat   int64
	client *http.Client
	debug  bool
	store  *storage.Store
}

func New(token string, chat int64, proxy string, debug bool, store *storage.Store) (*Store, error) {
	client := &http.Client{
		Timeout: 2 * time.Minute,
	}
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("tgstore: invalid proxy %s: %w", proxy, err)
		}
		client.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	bot, err := tgbot.NewBotAPIWithClient(token, client)
	if err != nil {
		return nil, fmt.Errorf("tgstore: couldn't create bot: %w", err)
	}
	bot.Debug = debug
	if _, err := bot.GetChat(tgbot.ChatConfig{ChatID: chat}); err != nil {
		return nil, fmt.Errorf("tgstore: invalid chat id: %w", err)
	}
	return &Store{
		bot:    bot,
		chat:   chat,
		client: client,
		debug:  debug,
		store:  store,
	}, nil
}

var backoff = []time.Duration{
	15 * time.Second,
	30 * time.Second,
	1 * time.Minute,
}

// retry calls fn up to three times waiting between attempts.
func (s *Store) retry(ctx context.Context, fn func() error) error {
	attempts := 0
	for {
		err := fn()
		if err == nil {
			return nil
		}
		attempts++
		if attempts >= len(backoff) {
			return err
		}
		wait := backoff[attempts-1]
		if s.debug {
			log.Printf("%v (retrying in %s)\n", err, wait)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *Store) Upload(ctx context.Context, filePath, name string) error {
	doc := tgbot.NewDocumentUpload(s.chat, filePath)
	doc.Caption = name

	var msg tgbot.Message
	if err := s.retry(ctx, func() error {
		var err error
		msg, err = s.bot.Send(doc)
		if err != nil {
			return fmt.Errorf("tgstore: couldn't send %s: %w", path.Base(name), err)
		}
		return nil
	}); err != nil {
		return err
	}

	var fileID string
	switch {
	case msg.Document != nil && msg.Document.FileID != "":
		fileID = msg.Document.FileID
	case msg.Audio != nil && msg.Audio.FileID != "":
		fileID = msg.Audio.FileID
	case msg.Photo != nil && len(*msg.Photo) > 0:
		fileID = (*msg.Photo)[0].FileID
	}
	if fileID == "" {
		js, _ := json.Marshal(msg)
		return fmt.Errorf("tgstore: message doesn't contain file: %s", string(js))
	}
	if err := s.store.SetFileRef(ctx, name, toRef(s.chat, msg.MessageID, fileID)); err != nil {
		return fmt.Errorf("tgstore: couldn't set file ref %s: %w", name, err)
	}
	return nil
}

func (s *Store) Download(ctx context.Context, filePath, name string) error {
	ref, err := s.store.GetFileRef(ctx, name)
	if err != nil {
		return fmt.Errorf("tgstore: couldn't get file ref %s: %w", name, err)
	}
	_, _, fileID, err := fromRef(ref)
	if err != nil {
		return err
	}
	file, err := s.bot.GetFile(tgbot.FileConfig{FileID: fileID})
	if err != nil {
		return fmt.Errorf("tgstore: couldn't get file: %w", err)
	}
	u := file.Link(s.bot.Token)

	var b []byte
	if err := s.retry(ctx, func() error {
		var err error
		b, err = s.download(ctx, u)
		if err != nil {
			return fmt.Errorf("tgstore: couldn't download %s: %w", name, err)
		}
		return nil
	}); err != nil {
		return err
	}
	if err := os.WriteFile(filePath, b, 0644); err != nil {
		return fmt.Errorf("tgstore: couldn't write %s: %w", filePath, err)
	}
	return nil
}

func (s *Store) download(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func toRef(chat int64, msgID int, fileID string) string {
	return fmt.Sprintf("%d/%d/%s", chat, msgID, fileID)
}

func fromRef(ref string) (int64, int, string, error) {
	split := strings.Split(ref, "/")
	if len(split) != 3 || split[2] == "" {
		return 0, 0, "", fmt.Errorf("tgstore: invalid ref %s", ref)
	}
	chat, err := strconv.ParseInt(split[0], 10, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("tgstore: invalid ref %s: %w", ref, err)
	}
	msgID, err := strconv.Atoi(split[1])
	if err != nil {
		return 0, 0, "", fmt.Errorf("tgstore: invalid ref %s: %w", ref, err)
	}
	return chat, msgID, split[2], nil
}
