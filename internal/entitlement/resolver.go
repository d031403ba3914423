package entitlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/movielex/movielex-backend/pkg/db/models"
	"github.com/movielex/movielex-backend/pkg/enums"
	"github.com/movielex/movielex-backend/pkg/errors"
	"github.com/movielex/movielex-backend/pkg/keylock"
	"github.com/movielex/movielex-backend/pkg/logger"
	"github.com/movielex/movielex-backend/pkg/metrics"
)

// Catalog resolves content names to priced items.
type Catalog interface {
	Get(ctx context.Context, name string) (*models.ContentItem, error)
}

// Ledger is the balance surface the resolver charges and refunds through.
type Ledger interface {
	GetBalance(ctx context.Context, userID int64) (int, error)
	Debit(ctx context.Context, userID int64, amount int) (int, error)
	Credit(ctx context.Context, userID int64, amount int) (int, error)
}

// Subscriptions answers whether the user holds an active covering
// subscription.
type Subscriptions interface {
	ActiveFor(ctx context.Context, userID int64, category enums.ContentCategory) (*models.Subscription, error)
}

// Deliveries is the append-only log consulted for already-paid grants and
// written after every successful send.
type Deliveries interface {
	HasDelivered(ctx context.Context, userID int64, contentName string) (bool, error)
	Record(ctx context.Context, userID int64, contentName string, reason enums.GrantReason) error
}

// Deliverer performs the actual content send. Implementations surface
// transient transport failures as retryable codes.
type Deliverer interface {
	Deliver(ctx context.Context, userID int64, item *models.ContentItem) error
}

// Grant is the outcome of a successful resolution: what was delivered,
// which path granted it, and what it cost.
type Grant struct {
	Item    *models.ContentItem
	Reason  enums.GrantReason
	Charged int
	Balance int
}

// ResolverParams groups dependencies for the entitlement resolver.
type ResolverParams struct {
	Catalog       Catalog
	Ledger        Ledger
	Subscriptions Subscriptions
	Deliveries    Deliveries
	Deliverer     Deliverer
	Metrics       *metrics.EntitlementMetrics
	Logger        *logger.Logger
	MaxRetries    int
	RetryBackoff  time.Duration
}

// Resolver decides, per request, which entitlement path grants content:
// an active covering subscription, a prior paid delivery, or a fresh
// pay-per-view debit. The whole decide-charge-deliver sequence runs inside
// a per-user critical section so concurrent requests for the same user
// serialize and a paid delivery can never be charged twice.
type Resolver struct {
	catalog       Catalog
	ledger        Ledger
	subscriptions Subscriptions
	deliveries    Deliveries
	deliverer     Deliverer
	metrics       *metrics.EntitlementMetrics
	logger        *logger.Logger
	locks         *keylock.KeyLock
	maxRetries    int
	retryBackoff  time.Duration
}

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = time.Second
)

// NewResolver builds an entitlement resolver. Metrics are optional.
func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions required")
	}
	if params.Deliveries == nil {
		return nil, fmt.Errorf("deliveries required")
	}
	if params.Deliverer == nil {
		return nil, fmt.Errorf("deliverer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	retryBackoff := params.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = defaultRetryBackoff
	}
	return &Resolver{
		catalog:       params.Catalog,
		ledger:        params.Ledger,
		subscriptions: params.Subscriptions,
		deliveries:    params.Deliveries,
		deliverer:     params.Deliverer,
		metrics:       params.Metrics,
		logger:        params.Logger,
		locks:         keylock.New(),
		maxRetries:    maxRetries,
		retryBackoff:  retryBackoff,
	}, nil
}

// Resolve grants the user the named content through the cheapest valid
// path. Precedence: unknown content fails first, then an active covering
// subscription grants for free, then a prior paid delivery grants for
// free, and only then is the price debited. A delivery failure after a
// debit credits the price straight back.
func (r *Resolver) Resolve(ctx context.Context, userID int64, contentName string) (*Grant, error) {
	if userID == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "user id is required")
	}
	contentName = strings.TrimSpace(contentName)
	if contentName == "" {
		return nil, errors.New(errors.CodeInvalidInput, "content name is required")
	}

	unlock := r.locks.Lock(userID)
	defer unlock()

	ctx = r.logger.WithContent(r.logger.WithUserID(ctx, userID), contentName)

	grant, err := r.resolveLocked(ctx, userID, contentName)
	if err != nil {
		r.incDenial(err)
		return nil, err
	}
	r.incGrant(grant.Reason)
	return grant, nil
}

func (r *Resolver) resolveLocked(ctx context.Context, userID int64, contentName string) (*Grant, error) {
	item, err := r.catalog.Get(ctx, contentName)
	if err != nil {
		return nil, err
	}

	subscription, err := r.subscriptions.ActiveFor(ctx, userID, item.Category)
	if err != nil {
		return nil, err
	}
	if subscription != nil {
		return r.grantFree(ctx, userID, item, enums.GrantReasonSubscription)
	}

	delivered, err := r.deliveries.HasDelivered(ctx, userID, item.Name)
	if err != nil {
		return nil, err
	}
	if delivered {
		return r.grantFree(ctx, userID, item, enums.GrantReasonAlreadyPaid)
	}

	return r.grantPaid(ctx, userID, item)
}

// grantFree delivers without touching the balance. The recorded reason
// distinguishes a subscription send from an already-paid resend.
func (r *Resolver) grantFree(ctx context.Context, userID int64, item *models.ContentItem, reason enums.GrantReason) (*Grant, error) {
	if err := r.deliver(ctx, userID, item); err != nil {
		return nil, errors.Wrap(errors.CodeDeliveryFailed, err, "content delivery failed")
	}
	if err := r.deliveries.Record(ctx, userID, item.Name, reason); err != nil {
		return nil, err
	}
	balance, err := r.ledger.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.logger.Info(r.logger.WithField(ctx, "reason", string(reason)), "content granted")
	return &Grant{Item: item, Reason: reason, Charged: 0, Balance: balance}, nil
}

// grantPaid debits first and delivers second; a failed delivery refunds
// the debit so the user's balance ends where it started.
func (r *Resolver) grantPaid(ctx context.Context, userID int64, item *models.ContentItem) (*Grant, error) {
	balance, err := r.ledger.Debit(ctx, userID, item.PriceAmount)
	if err != nil {
		return nil, err
	}

	if err := r.deliver(ctx, userID, item); err != nil {
		refunded, creditErr := r.ledger.Credit(ctx, userID, item.PriceAmount)
		if creditErr != nil {
			r.logger.Error(ctx, "refund after failed delivery", creditErr)
			return nil, errors.Wrap(errors.CodeInternal, creditErr, "delivery failed and refund did not land")
		}
		if r.metrics != nil {
			r.metrics.IncRefund()
		}
		r.logger.Warn(r.logger.WithField(ctx, "balance", refunded), "delivery failed, price refunded")
		return nil, errors.Wrap(errors.CodeDeliveryFailed, err, "content delivery failed")
	}

	if err := r.deliveries.Record(ctx, userID, item.Name, enums.GrantReasonPayPerView); err != nil {
		return nil, err
	}
	ctx = r.logger.WithFields(ctx, map[string]any{
		"charged": item.PriceAmount,
		"balance": balance,
	})
	r.logger.Info(ctx, "content granted")
	return &Grant{Item: item, Reason: enums.GrantReasonPayPerView, Charged: item.PriceAmount, Balance: balance}, nil
}

// deliver sends the content with bounded fibonacci backoff, retrying only
// codes the transport marked transient.
func (r *Resolver) deliver(ctx context.Context, userID int64, item *models.ContentItem) error {
	backoff := retry.WithMaxRetries(uint64(r.maxRetries), retry.NewFibonacci(r.retryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		deliverErr := r.deliverer.Deliver(ctx, userID, item)
		if deliverErr == nil {
			return nil
		}
		if typed := errors.As(deliverErr); typed != nil && errors.MetadataFor(typed.Code()).Retryable {
			return retry.RetryableError(deliverErr)
		}
		return deliverErr
	})
	if r.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "failed"
		}
		r.metrics.IncDelivery(outcome)
	}
	return err
}

func (r *Resolver) incGrant(reason enums.GrantReason) {
	if r.metrics != nil {
		r.metrics.IncGrant(string(reason))
	}
}

func (r *Resolver) incDenial(err error) {
	if r.metrics == nil {
		return
	}
	code := errors.CodeInternal
	if typed := errors.As(err); typed != nil {
		code = typed.Code()
	}
	r.metrics.IncDenial(string(code))
}
