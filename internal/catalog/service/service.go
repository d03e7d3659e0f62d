package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"marketplace-catalog/internal/catalog"
	"marketplace-catalog/internal/catalog/feed"
	"marketplace-catalog/internal/catalog/filter"
	"marketplace-catalog/internal/currency"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

type FeedRegistry interface {
	Engine(viewerID, session string) *feed.Engine
	Reset(viewerID string) bool
}

type WishlistCounter interface {
	Count(ctx context.Context, session *catalog.Session) int64
}

type Publisher interface {
	Invalidated(ctx context.Context, userID, reason string) error
}

// Viewer is whoever is looking at the feed. Session is nil for signed-out
// viewers. SignedOutID is the feed id the same client uses while signed out;
// it is only set for signed-in viewers.
type Viewer struct {
	ID          string
	SignedOutID string
	Session     *catalog.Session
}

type FeedParams struct {
	Search   string
	Category string
	Currency string
}

type PricedProduct struct {
	catalog.Product
	DisplayPrice decimal.Decimal `json:"display_price" swaggertype:"string" example:"277.5"`
}

type FeedPage struct {
	Index    int             `json:"index" example:"0"`
	Products []PricedProduct `json:"products"`
}

type FeedView struct {
	Search           string           `json:"search" example:"phone"`
	Category         catalog.Category `json:"category" example:"all"`
	Pages            []FeedPage       `json:"pages"`
	HasMore          bool             `json:"has_more" example:"true"`
	NextCursor       int              `json:"next_cursor" example:"1"`
	Error            bool             `json:"error" example:"false"`
	Currency         currency.Code    `json:"currency" swaggertype:"string" example:"USD"`
	CurrencyFallback bool             `json:"currency_fallback" example:"false"`
}

type Conversion struct {
	Amount           decimal.Decimal `json:"amount" swaggertype:"string" example:"1000"`
	Converted        decimal.Decimal `json:"converted" swaggertype:"string" example:"1.5"`
	Currency         currency.Code   `json:"currency" swaggertype:"string" example:"USD"`
	CurrencyFallback bool            `json:"currency_fallback" example:"false"`
}

type engineOp func(*feed.Engine, context.Context, filter.Descriptor) (feed.State, error)

type Service struct {
	composer        *filter.Composer
	feeds           FeedRegistry
	rates           *currency.Table
	wishlist        WishlistCounter
	publisher       Publisher
	logger          *slog.Logger
	unknownCurrency prometheus.Counter
}

func New(
	composer *filter.Composer,
	feeds FeedRegistry,
	rates *currency.Table,
	wishlist WishlistCounter,
	publisher Publisher,
	logger *slog.Logger,
	unknownCurrency prometheus.Counter,
) *Service {
	return &Service{
		composer:        composer,
		feeds:           feeds,
		rates:           rates,
		wishlist:        wishlist,
		publisher:       publisher,
		logger:          logger,
		unknownCurrency: unknownCurrency,
	}
}

func (s *Service) Feed(ctx context.Context, viewer Viewer, params FeedParams) (FeedView, error) {
	return s.run(ctx, viewer, params, (*feed.Engine).Load)
}

func (s *Service) NextPage(ctx context.Context, viewer Viewer, params FeedParams) (FeedView, error) {
	return s.run(ctx, viewer, params, (*feed.Engine).FetchNext)
}

func (s *Service) Restart(ctx context.Context, viewer Viewer, params FeedParams) (FeedView, error) {
	return s.run(ctx, viewer, params, (*feed.Engine).Restart)
}

func (s *Service) run(ctx context.Context, viewer Viewer, params FeedParams, op engineOp) (FeedView, error) {
	desc, err := s.composer.Compose(params.Search, params.Category, viewer.Session != nil)
	if err != nil {
		return FeedView{}, err
	}

	state, err := op(s.engine(viewer), ctx, desc)
	switch {
	case errors.Is(err, catalog.ErrSessionExpired):
		s.SessionInvalidated(ctx, viewer.Session, err)
		return FeedView{}, err
	case errors.Is(err, catalog.ErrStaleFeed):
		return FeedView{}, err
	}

	view := s.present(state, s.displayCurrency(viewer, params.Currency))
	if err != nil {
		s.logger.Warn("feed page fetch failed",
			"viewer_id", viewer.ID,
			"next_cursor", state.NextCursor,
			"error", err,
		)
		return view, fmt.Errorf("load feed: %w", err)
	}
	return view, nil
}

// engine returns the viewer's feed. Feeds never survive a session
// transition: the registry hands out a fresh engine when the token changes,
// and signing in discards the client's signed-out feed.
func (s *Service) engine(viewer Viewer) *feed.Engine {
	if viewer.Session == nil {
		return s.feeds.Engine(viewer.ID, "")
	}
	if viewer.SignedOutID != "" && s.feeds.Reset(viewer.SignedOutID) {
		s.logger.Debug("dropped signed-out feed", "viewer_id", viewer.ID)
	}
	return s.feeds.Engine(viewer.ID, viewer.Session.Token)
}

func (s *Service) present(state feed.State, code currency.Code) FeedView {
	view := FeedView{
		Search:     state.Key.Search,
		Category:   state.Key.Category,
		Pages:      make([]FeedPage, 0, len(state.Pages)),
		HasMore:    state.HasMore,
		NextCursor: state.NextCursor,
		Error:      state.Failed,
		Currency:   code,
	}

	if !s.rates.Supports(code) {
		s.unknownCurrency.Inc()
		view.CurrencyFallback = true
		view.Currency = s.rates.Base()
	}

	for _, page := range state.Pages {
		fp := FeedPage{Index: page.Index, Products: make([]PricedProduct, 0, len(page.Products))}
		for _, p := range page.Products {
			// unknown codes come back unchanged, which is the fallback we want
			price, _ := s.rates.Convert(p.Price, code)
			fp.Products = append(fp.Products, PricedProduct{Product: p, DisplayPrice: price})
		}
		view.Pages = append(view.Pages, fp)
	}

	return view
}

// Convert converts a base-currency amount for the viewer. An unknown currency
// is not an error: the amount comes back unchanged with CurrencyFallback set.
func (s *Service) Convert(viewer Viewer, rawAmount, rawCurrency string) (Conversion, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(rawAmount))
	if err != nil || amount.IsNegative() {
		return Conversion{}, catalog.ErrInvalidAmount
	}

	code := s.displayCurrency(viewer, rawCurrency)
	converted, err := s.rates.Convert(amount, code)
	if errors.Is(err, catalog.ErrUnknownCurrency) {
		s.unknownCurrency.Inc()
		return Conversion{Amount: amount, Converted: amount, Currency: s.rates.Base(), CurrencyFallback: true}, nil
	}

	return Conversion{Amount: amount, Converted: converted, Currency: code}, nil
}

func (s *Service) WishlistCount(ctx context.Context, viewer Viewer) int64 {
	return s.wishlist.Count(ctx, viewer.Session)
}

// SessionInvalidated forwards an auth-token invalidation to the session
// collaborator. Publishing is best effort.
func (s *Service) SessionInvalidated(ctx context.Context, session *catalog.Session, cause error) {
	var userID, reason string
	if session != nil {
		userID = session.UserID
	}
	if cause != nil {
		reason = cause.Error()
	}

	if err := s.publisher.Invalidated(ctx, userID, reason); err != nil {
		s.logger.Error("publish session_invalidated event failed",
			"user_id", userID,
			"error", err,
		)
	}
}

func (s *Service) displayCurrency(viewer Viewer, requested string) currency.Code {
	if code := currency.ParseCode(requested); code != "" {
		return code
	}
	if viewer.Session != nil {
		return s.rates.CurrencyForCountry(viewer.Session.CountryID)
	}
	return s.rates.Fallback()
}
