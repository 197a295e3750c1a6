package telegram

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"schedule-assistant/api/internal/chat"
)

const (
	maxReplyRunes = 3900

	helpText = "Спросите о расписании студента, например: «What classes is Alice Johnson in?»\n" +
		"Я отвечаю только на вопросы об именах студентов и их курсах. Оценки не раскрываются.\n" +
		"Команды: /start, /help"
	badLengthText = "Вопрос должен быть от 1 до 500 символов."
	internalText  = "An internal error occurred."
)

// Bot описывает часть tgbotapi.BotAPI, которую использует роутер.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Answerer interface {
	Answer(ctx context.Context, message string) (chat.Reply, error)
}

type Router struct {
	Bot  Bot
	Chat Answerer

	// 0: без дедлайна
	Timeout time.Duration
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	cid := upd.Message.Chat.ID

	if upd.Message.IsCommand() {
		r.HandleCommand(cid, upd.Message.Command())
		return
	}
	if upd.Message.Text == "" {
		r.send(cid, helpText)
		return
	}
	r.answer(ctx, cid, upd.Message.Text)
}

func (r *Router) HandleCommand(cid int64, cmd string) {
	switch cmd {
	case "start", "help":
		r.send(cid, helpText)
	default:
		r.send(cid, "Неизвестная команда")
	}
}

func (r *Router) answer(ctx context.Context, cid int64, text string) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	_, _ = r.Bot.Request(tgbotapi.NewChatAction(cid, tgbotapi.ChatTyping))

	out, err := r.Chat.Answer(ctx, text)
	if err != nil {
		if chat.IsValidation(err) {
			r.send(cid, badLengthText)
			return
		}
		log.Printf("telegram: chat %d: an error occurred: %v", cid, err)
		r.send(cid, internalText)
		return
	}
	// ответ уже экранирован, поэтому отдаём его в HTML-режиме
	msg := tgbotapi.NewMessage(cid, truncateEscaped(out.Message, maxReplyRunes))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := r.Bot.Send(msg); err != nil {
		log.Printf("telegram: send to %d: %v", cid, err)
	}
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	_, _ = r.Bot.Send(msg)
}

// truncateEscaped обрезает по рунам, не разрывая HTML-сущность вида &amp;.
func truncateEscaped(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	cut := []rune(s)[:max]
	out := string(cut)
	if amp := strings.LastIndexByte(out, '&'); amp > strings.LastIndexByte(out, ';') {
		out = out[:amp]
	}
	return out + "…"
}
