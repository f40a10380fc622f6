package bot

import (
	"fmt"
	"log/slog"
	"strings"

	"codegate/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

const maxTelegramMessageLen = 4096

func (t *TgBot) plainResponse(chatId int64, text string) {
	if text == "" {
		t.log.With("id", chatId).Debug("empty message")
		return
	}

	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message", sl.Err(err))
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending safe message", sl.Err(err))
		}
	}
}

// sendWithKeyboard sends a message with an inline keyboard attached.
func (t *TgBot) sendWithKeyboard(chatId int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if text == "" {
		return
	}
	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode:   "MarkdownV2",
		ReplyMarkup: keyboard,
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message with keyboard", sl.Err(err))
		// Fallback: try without markdown
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
			ReplyMarkup: keyboard,
		})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending message with keyboard fallback", sl.Err(err))
		}
	}
}

func Sanitize(input string) string {
	reservedChars := "\\_{}#+-.!|()[]=*"
	var sb strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}

func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		// Try to split at newline
		cutAt := maxLen
		nlIdx := strings.LastIndex(text[:maxLen], "\n")
		if nlIdx > 0 {
			cutAt = nlIdx + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}

// notifyAdmin sends a message to the configured administrator chat.
func (t *TgBot) notifyAdmin(msg string) {
	if t.config.AdminId == 0 {
		return
	}
	t.plainResponse(t.config.AdminId, msg)
}

// SendToAdmin forwards a message to the admin chat; used by the slog handler
// so warnings and errors reach the operator without leaving Telegram.
func (t *TgBot) SendToAdmin(msg string, level slog.Level) {
	t.notifyAdmin(fmt.Sprintf("*%s*\n%s", level.String(), msg))
}

// reportError logs the error, notifies the admin with details, and sends a
// neutral message to the user.
func (t *TgBot) reportError(chatId int64, operation string, err error) {
	t.log.Error("bot operation failed",
		slog.String("operation", operation),
		slog.Int64("user_id", chatId),
		sl.Err(err),
	)
	t.notifyAdmin(fmt.Sprintf(
		"Operation `%s` failed\nUser: `%d`\nError: `%s`",
		Sanitize(operation), chatId, Sanitize(err.Error()),
	))
	if chatId != t.config.AdminId {
		t.plainResponse(chatId, "Something went wrong\\. Please try again later\\.")
	}
}
