package service

import (
	"log/slog"

	"github.com/tixledger/tixledger/internal/bank"
	"github.com/tixledger/tixledger/internal/ledger"
	redisrepo "github.com/tixledger/tixledger/internal/repository/redis"
	"github.com/tixledger/tixledger/internal/service/admin"
	"github.com/tixledger/tixledger/internal/service/query"
	"github.com/tixledger/tixledger/internal/service/submit"
)

type Services struct {
	Submit *submit.Service
	Query  *query.Service
	Admin  *admin.Service
}

type Config struct {
	Submit submit.Config
	Query  query.Config
}

func NewServices(
	l *ledger.Ledger,
	b bank.Bank,
	journal submit.Journal,
	cache *redisrepo.Cache,
	pubsub *redisrepo.EventsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	logger *slog.Logger,
	cfg Config,
) *Services {
	sub := submit.New(l, journal, cache, pubsub, limiter, logger, cfg.Submit)

	return &Services{
		Submit: sub,
		Query:  query.New(l, b, cache, cfg.Query),
		Admin:  admin.New(sub),
	}
}
