// Package telegram wraps the Bot API calls the relay needs.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/socialchef/scribe/internal/errors"
	"github.com/socialchef/scribe/internal/httpclient"
)

const (
	DefaultAPIBase  = "https://api.telegram.org"
	downloadTimeout = 5 * time.Minute
	requestTimeout  = 5 * time.Minute
	pollTimeout     = 30
)

type Client struct {
	bot          *tgbotapi.BotAPI
	http         *http.Client
	fileEndpoint string
	// local is set when talking to a self-hosted Bot API server, which
	// reports absolute paths on its own disk instead of download paths.
	local bool
}

// NewClient connects to the public Bot API, or to localServerURL when set.
func NewClient(token, localServerURL string) (*Client, error) {
	apiBase := DefaultAPIBase
	if localServerURL != "" {
		apiBase = localServerURL
	}
	return newClient(token, apiBase, localServerURL != "",
		httpclient.NewProviderClient("telegram", requestTimeout),
		httpclient.NewProviderClient("telegram", 0))
}

// downloads is used for file transfers, which are bounded by their context.
func newClient(token, apiBase string, local bool, api, downloads *http.Client) (*Client, error) {
	apiBase = strings.TrimRight(apiBase, "/")
	bot, err := tgbotapi.NewBotAPIWithClient(token, apiBase+"/bot%s/%s", api)
	if err != nil {
		return nil, errors.NewConfigurationError(fmt.Sprintf("failed to connect to Telegram: %v", err), "TELEGRAM_CONNECT_ERROR")
	}
	slog.Info("Connected to Telegram", "bot", bot.Self.UserName, "api", apiBase)

	return &Client{
		bot:          bot,
		http:         downloads,
		fileEndpoint: apiBase + "/file/bot%s/%s",
		local:        local,
	}, nil
}

func (c *Client) Username() string {
	return c.bot.Self.UserName
}

// SendText sends an HTML-formatted message and returns its id.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("telegram sendMessage: %w", err)
	}
	return sent.MessageID, nil
}

func (c *Client) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := c.bot.Send(edit); err != nil {
		return fmt.Errorf("telegram editMessageText: %w", err)
	}
	return nil
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("telegram deleteMessage: %w", err)
	}
	return nil
}

// SendDocument uploads the file at path with an HTML caption.
func (c *Client) SendDocument(ctx context.Context, chatID int64, path, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = caption
	doc.ParseMode = tgbotapi.ModeHTML
	if _, err := c.bot.Send(doc); err != nil {
		return fmt.Errorf("telegram sendDocument: %w", err)
	}
	return nil
}

// Download resolves fileID and writes the file to dest.
func (c *Client) Download(ctx context.Context, fileID, dest string) error {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return errors.NewDownloadError("failed to resolve telegram file", "TELEGRAM_GET_FILE_ERROR", err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.NewDownloadError("failed to create download directory", "DOWNLOAD_DIR_ERROR", err)
	}

	if c.local && filepath.IsAbs(file.FilePath) {
		return copyFile(file.FilePath, dest)
	}

	ctx = httpclient.WithProvider(ctx, "telegram-files")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(c.fileEndpoint, c.bot.Token, file.FilePath), nil)
	if err != nil {
		return errors.NewDownloadError("failed to build download request", "TELEGRAM_DOWNLOAD_ERROR", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.NewDownloadError("failed to download telegram file", "TELEGRAM_DOWNLOAD_ERROR", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.NewDownloadError(fmt.Sprintf("telegram file download returned status %d", resp.StatusCode), "TELEGRAM_DOWNLOAD_ERROR", nil)
	}
	return writeFile(dest, resp.Body)
}

// Updates starts long polling. The channel is closed by Stop.
func (c *Client) Updates() tgbotapi.UpdatesChannel {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	return c.bot.GetUpdatesChan(cfg)
}

func (c *Client) Stop() {
	c.bot.StopReceivingUpdates()
}

// DropPendingUpdates discards what queued up while the bot was offline.
func (c *Client) DropPendingUpdates(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true})
	return err
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.NewDownloadError("failed to open local bot api file", "LOCAL_FILE_ERROR", err)
	}
	defer in.Close()
	return writeFile(dest, in)
}

func writeFile(dest string, r io.Reader) error {
	out, err := os.Create(dest)
	if err != nil {
		return errors.NewDownloadError("failed to create download file", "DOWNLOAD_WRITE_ERROR", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return errors.NewDownloadError("failed to write download file", "DOWNLOAD_WRITE_ERROR", err)
	}
	if err := out.Close(); err != nil {
		return errors.NewDownloadError("failed to close download file", "DOWNLOAD_WRITE_ERROR", err)
	}
	return nil
}
