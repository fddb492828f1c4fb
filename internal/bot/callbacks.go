package bot

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// callbackAction is the closed set of inline-keyboard commands. Payloads are
// parsed into a typed command up front; unknown payloads are acknowledged and
// dropped.
type callbackAction int

const (
	actionUnknown callbackAction = iota
	actionLocationOK
	actionLocationRetry
	actionOptionEnd
	actionOptionImage
	actionSubmit
	actionApprove
	actionReject
)

type callbackCommand struct {
	action callbackAction

	// chatID is the submitter chat the admin decision applies to; zero for
	// conversation-local actions.
	chatID int64
}

func parseCallback(data string) callbackCommand {
	switch data {
	case "loc:ok":
		return callbackCommand{action: actionLocationOK}
	case "loc:retry":
		return callbackCommand{action: actionLocationRetry}
	case "opt:end":
		return callbackCommand{action: actionOptionEnd}
	case "opt:image":
		return callbackCommand{action: actionOptionImage}
	case "opt:submit":
		return callbackCommand{action: actionSubmit}
	}

	for prefix, action := range map[string]callbackAction{
		"approve:": actionApprove,
		"reject:":  actionReject,
	} {
		if strings.HasPrefix(data, prefix) {
			chatID, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
			if err != nil {
				return callbackCommand{action: actionUnknown}
			}
			return callbackCommand{action: action, chatID: chatID}
		}
	}
	return callbackCommand{action: actionUnknown}
}

// handleCallbackQuery processes inline keyboard button clicks.
func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	cmd := parseCallback(query.Data)
	chatID := query.Message.Chat.ID

	switch cmd.action {
	case actionLocationOK:
		b.answerCallback(query.ID, "")
		b.handleLocationConfirmed(chatID)

	case actionLocationRetry:
		b.answerCallback(query.ID, "")
		b.handleLocationRetry(chatID)

	case actionOptionEnd:
		b.answerCallback(query.ID, "")
		b.handleOptionSelected(chatID, StepEndDate, promptEndDate)

	case actionOptionImage:
		b.answerCallback(query.ID, "")
		b.handleOptionSelected(chatID, StepImage, promptImage)

	case actionSubmit:
		state := b.store.Get(chatID)
		if state == nil {
			b.answerCallback(query.ID, "")
			return
		}
		if state.Submitted {
			// Duplicate tap on the submission control.
			b.answerCallback(query.ID, alreadySubmittedText)
			return
		}
		b.answerCallback(query.ID, "")
		b.submitForApproval(ctx, chatID, state, query.Message.MessageID)

	case actionApprove:
		b.resolveApproval(ctx, cmd.chatID, true, query)

	case actionReject:
		b.resolveApproval(ctx, cmd.chatID, false, query)

	default:
		b.answerCallback(query.ID, "")
	}
}

func (b *Bot) handleLocationConfirmed(chatID int64) {
	state := b.store.Get(chatID)
	if state == nil || state.Step != StepLocationConfirm {
		return
	}

	state.Draft.GeoDisplay = state.PendingGeoDisplay
	state.Draft.GeoLat = state.PendingGeoLat
	state.Draft.GeoLon = state.PendingGeoLon
	state.Draft.GeoOSMType = state.PendingGeoOSMType
	state.Draft.GeoOSMID = state.PendingGeoOSMID
	state.Step = StepDescription
	b.send(chatID, promptDescription)
}

func (b *Bot) handleLocationRetry(chatID int64) {
	state := b.store.Get(chatID)
	if state == nil || state.Step != StepLocationConfirm {
		return
	}

	state.PendingGeoDisplay = ""
	state.PendingGeoLat = ""
	state.PendingGeoLon = ""
	state.PendingGeoOSMType = ""
	state.PendingGeoOSMID = ""
	state.Step = StepLocation
	b.send(chatID, promptLocation)
}

func (b *Bot) handleOptionSelected(chatID int64, next Step, prompt string) {
	state := b.store.Get(chatID)
	if state == nil || state.Step != StepOptions {
		return
	}
	if state.Submitted {
		b.send(chatID, alreadySubmittedText)
		return
	}
	state.Step = next
	b.send(chatID, prompt)
}
