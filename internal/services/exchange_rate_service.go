package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/currency"
	"github.com/ArowuTest/raffle-backend/internal/metrics"
	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ExchangeRateServiceImpl implements ExchangeRateService on top of the
// system_config collection and the in-process RateBook.
type ExchangeRateServiceImpl struct {
	configRepo repositories.SystemConfigRepository
	book       *currency.RateBook
	metrics    *metrics.Metrics
	log        *zap.Logger
}

// NewExchangeRateService creates a new ExchangeRateService
func NewExchangeRateService(configRepo repositories.SystemConfigRepository, book *currency.RateBook, m *metrics.Metrics, log *zap.Logger) *ExchangeRateServiceImpl {
	s := &ExchangeRateServiceImpl{
		configRepo: configRepo,
		book:       book,
		metrics:    m,
		log:        log.Named("exchange_rate"),
	}
	s.metrics.SetExchangeRate(book.Snapshot().USDToLocal.InexactFloat64())
	return s
}

// GetExchangeRate returns the rate in effect
func (s *ExchangeRateServiceImpl) GetExchangeRate(_ context.Context) currency.Rate {
	return s.book.Snapshot()
}

// SetExchangeRate persists a new USD -> local rate and publishes it. Purchases
// already computing a price keep the snapshot they started with.
func (s *ExchangeRateServiceImpl) SetExchangeRate(ctx context.Context, rate float64, updatedBy string) (currency.Rate, error) {
	value, err := currency.FromFloat(rate)
	if err != nil || !value.IsPositive() {
		return currency.Rate{}, newError(KindInvalidAmount, "exchange rate must be a positive number")
	}
	value = value.Round(currency.RatePlaces)

	if err := s.configRepo.UpsertByKey(ctx, models.ExchangeRateKey, value.String(), "USD to local currency rate", updatedBy); err != nil {
		s.log.Error("persist exchange rate failed", zap.Error(err))
		return currency.Rate{}, internalError(err)
	}
	published, err := s.publish(value)
	if err != nil {
		return currency.Rate{}, err
	}
	s.log.Info("exchange rate updated",
		zap.String("rate", published.USDToLocal.String()),
		zap.Int64("version", published.Version),
		zap.String("updated_by", updatedBy))
	return published, nil
}

// Reload publishes the persisted rate, if any. It lets several instances
// converge on the rate set through any one of them.
func (s *ExchangeRateServiceImpl) Reload(ctx context.Context) error {
	cfg, err := s.configRepo.FindByKey(ctx, models.ExchangeRateKey)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load exchange rate: %w", err)
	}
	value, err := rateValue(cfg.Value)
	if err != nil {
		return fmt.Errorf("stored exchange rate: %w", err)
	}
	before := s.book.Snapshot()
	published, err := s.publish(value)
	if err != nil {
		return err
	}
	if published.Version != before.Version {
		s.log.Info("exchange rate reloaded",
			zap.String("rate", published.USDToLocal.String()),
			zap.Int64("version", published.Version))
	}
	return nil
}

func (s *ExchangeRateServiceImpl) publish(value decimal.Decimal) (currency.Rate, error) {
	published, err := s.book.Publish(value, time.Now().UTC())
	if err != nil {
		return currency.Rate{}, wrapError(KindInvalidAmount, err, "exchange rate must be a positive number")
	}
	s.metrics.SetExchangeRate(published.USDToLocal.InexactFloat64())
	return published, nil
}

// rateValue accepts the representations a stored rate may decode to
func rateValue(v interface{}) (decimal.Decimal, error) {
	switch val := v.(type) {
	case string:
		return decimal.NewFromString(val)
	case float64:
		return currency.FromFloat(val)
	case int32:
		return decimal.NewFromInt32(val), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case decimal.Decimal:
		return val, nil
	case primitive.Decimal128:
		return decimal.NewFromString(val.String())
	default:
		return decimal.Zero, fmt.Errorf("unsupported type %T", v)
	}
}
