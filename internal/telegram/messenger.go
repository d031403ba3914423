package telegram

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/movielex/movielex-backend/pkg/db/models"
	"github.com/movielex/movielex-backend/pkg/errors"
	"github.com/movielex/movielex-backend/pkg/logger"
)

// MessengerParams configure the outbound message surface.
type MessengerParams struct {
	Bot         *Bot
	AdminUserID int64
	Logger      *logger.Logger
}

// Messenger is the single outbound surface of the transport. It implements
// the resolver's delivery step, the approval workflow's user notifications,
// and the access gate's admin alert.
type Messenger struct {
	bot   *Bot
	admin int64
	logg  *logger.Logger
}

// NewMessenger builds the outbound message surface.
func NewMessenger(params MessengerParams) (*Messenger, error) {
	if params.Bot == nil {
		return nil, fmt.Errorf("bot required")
	}
	if params.AdminUserID == 0 {
		return nil, fmt.Errorf("admin user id required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Messenger{bot: params.Bot, admin: params.AdminUserID, logg: params.Logger}, nil
}

// Deliver sends the item's video to the user with forwarding and saving
// disabled. This is the delivery step the entitlement resolver retries.
func (m *Messenger) Deliver(ctx context.Context, userID int64, item *models.ContentItem) error {
	caption := item.Title
	if caption == "" {
		caption = item.Name
	}
	_, err := m.bot.Raw().SendVideo(ctx, &tgbot.SendVideoParams{
		ChatID:         userID,
		Video:          &tgmodels.InputFileString{Data: item.ContentHandle},
		Caption:        caption,
		ProtectContent: true,
	})
	return wrapSendError(err)
}

// SendTrailers sends every trailer the item has, in registration order.
// Trailers are previews, so they go out without content protection.
func (m *Messenger) SendTrailers(ctx context.Context, userID int64, item *models.ContentItem) error {
	if len(item.TrailerHandles) == 0 {
		return errors.New(errors.CodeNotFound, "no trailers registered").WithDetails(item.Name)
	}
	for i, handle := range item.TrailerHandles {
		_, err := m.bot.Raw().SendVideo(ctx, &tgbot.SendVideoParams{
			ChatID:  userID,
			Video:   &tgmodels.InputFileString{Data: handle},
			Caption: fmt.Sprintf("%s — trailer %d", item.Title, i+1),
		})
		if err != nil {
			return wrapSendError(err)
		}
	}
	return nil
}

// SendText sends a plain text message.
func (m *Messenger) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := m.bot.Raw().SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return wrapSendError(err)
}

// PromptApproval shows the admin a pending submission with approve and
// reject buttons carrying its id.
func (m *Messenger) PromptApproval(ctx context.Context, submission *models.PaymentSubmission) error {
	text := fmt.Sprintf("Payment proof from user %d (submission #%d).", submission.UserID, submission.ID)
	markup := &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{{
			{Text: "Approve", CallbackData: fmt.Sprintf("approve_%d", submission.ID)},
			{Text: "Reject", CallbackData: fmt.Sprintf("reject_%d", submission.ID)},
		}},
	}
	_, err := m.bot.Raw().SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:      m.admin,
		Text:        text,
		ReplyMarkup: markup,
	})
	return wrapSendError(err)
}

// NotifyBlocked alerts the admin that the gate auto-blocked a user, with a
// one-tap unblock button.
func (m *Messenger) NotifyBlocked(ctx context.Context, userID int64, count int64) error {
	text := fmt.Sprintf("User %d blocked after %d requests in the window.", userID, count)
	markup := &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{{
			{Text: "Unblock", CallbackData: fmt.Sprintf("unblock_%d", userID)},
		}},
	}
	_, err := m.bot.Raw().SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:      m.admin,
		Text:        text,
		ReplyMarkup: markup,
	})
	return wrapSendError(err)
}

// NotifyApproved tells the user their payment landed.
func (m *Messenger) NotifyApproved(ctx context.Context, userID int64, amount, balance int) error {
	return m.SendText(ctx, userID, fmt.Sprintf("Payment confirmed: +%d. Your balance is now %d.", amount, balance))
}

// NotifySubscriptionGranted tells the user their subscription is live.
func (m *Messenger) NotifySubscriptionGranted(ctx context.Context, userID int64, subscription *models.Subscription) error {
	return m.SendText(ctx, userID, fmt.Sprintf(
		"Subscription active: %s until %s.",
		subscription.Category,
		subscription.EndAt.Format("2006-01-02"),
	))
}

// NotifyRejected tells the user their payment proof was declined.
func (m *Messenger) NotifyRejected(ctx context.Context, userID int64) error {
	return m.SendText(ctx, userID, "Your payment could not be verified. Contact support if you believe this is a mistake.")
}

// wrapSendError classifies transport failures so the resolver retries the
// transient ones and gives up on the permanent ones.
func wrapSendError(err error) error {
	if err == nil {
		return nil
	}
	if tgbot.IsTooManyRequestsError(err) {
		return errors.Wrap(errors.CodeDependency, err, "telegram rate limited")
	}
	if stderrors.Is(err, tgbot.ErrorForbidden) ||
		stderrors.Is(err, tgbot.ErrorBadRequest) ||
		stderrors.Is(err, tgbot.ErrorNotFound) {
		return errors.Wrap(errors.CodeDeliveryFailed, err, "telegram rejected the send")
	}
	if strings.Contains(err.Error(), "context canceled") {
		return errors.Wrap(errors.CodeDeliveryFailed, err, "send canceled")
	}
	return errors.Wrap(errors.CodeDependency, err, "telegram unavailable")
}
