package procedure

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"moresql-service/pkg/metrics"
)

// Cache stores encoded responses. *redis.Redisdb implements it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type ServiceDeps struct {
	Invoker *Invoker
	Cache   Cache // optional
	Logger  *logrus.Logger
	// Timeout bounds each call; zero means no bound.
	Timeout time.Duration
}

type Service struct {
	invoker  *Invoker
	cache    Cache
	logger   *logrus.Logger
	timeout  time.Duration
	resolver Resolver
}

func NewService(deps ServiceDeps) *Service {
	s := &Service{
		invoker: deps.Invoker,
		cache:   deps.Cache,
		logger:  deps.Logger,
		timeout: deps.Timeout,
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	s.resolver = Resolver{OnMissing: func(field string) {
		s.logger.WithField("field", field).Debug("request value missing, argument omitted")
	}}
	return s
}

// Execute resolves the arguments of call, invokes it and returns the
// normalized, JSON-encodable result. Explicit values take precedence over
// the request bag when non-nil.
func (s *Service) Execute(ctx context.Context, call Call, explicit map[string]any, bag map[string]string) (any, error) {
	args := s.resolver.Resolve(call.Fields, explicit, bag)
	return s.run(ctx, call, args)
}

// Render is Execute followed by JSON encoding. With ttl > 0 and a cache
// configured, responses are served from and stored into the cache, keyed
// by procedure and arguments.
func (s *Service) Render(ctx context.Context, call Call, ttl time.Duration, explicit map[string]any, bag map[string]string) ([]byte, error) {
	args := s.resolver.Resolve(call.Fields, explicit, bag)

	var key string
	if ttl > 0 && s.cache != nil {
		k, err := cacheKey(call, args)
		if err == nil {
			key = k
		}
	}
	log := s.logger.WithField("procedure", call.Name)

	if key != "" {
		body, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.WithError(err).Warn("cache read failed")
		} else if ok {
			metrics.CacheHits.WithLabelValues(call.Name).Inc()
			return body, nil
		}
	}

	value, err := s.run(ctx, call, args)
	if err != nil {
		return nil, err
	}
	body, err := Marshal(value)
	if err != nil {
		log.WithError(err).Error("result is not JSON encodable")
		return nil, err
	}

	if key != "" {
		if err := s.cache.Set(ctx, key, body, ttl); err != nil {
			log.WithError(err).Warn("cache write failed")
		}
	}
	return body, nil
}

func (s *Service) run(ctx context.Context, call Call, args Args) (any, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.invoker.Invoke(ctx, call, args)
	metrics.ProcedureDuration.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProcedureCalls.WithLabelValues(call.Name, "error").Inc()
		entry := s.logger.WithFields(logrus.Fields{"procedure": call.Name, "mode": call.Mode.String()})
		var dbErr *DatabaseError
		if errors.As(err, &dbErr) {
			entry = entry.WithFields(logrus.Fields{"op": dbErr.Op, "code": dbErr.Code})
		}
		entry.WithError(err).Error("procedure call failed")
		return nil, err
	}
	metrics.ProcedureCalls.WithLabelValues(call.Name, "ok").Inc()

	return Normalize(raw, call.Shape, call.Objects), nil
}

// cacheKey covers the arguments and every option that changes the
// rendered response.
func cacheKey(call Call, args Args) (string, error) {
	b, err := json.Marshal(struct {
		Args    Args   `json:"args"`
		Mode    string `json:"mode"`
		Shape   string `json:"shape"`
		Objects bool   `json:"objects"`
	}{args, call.Mode.String(), call.Shape.String(), call.Objects})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return "moresql:" + call.Name + ":" + hex.EncodeToString(sum[:]), nil
}
