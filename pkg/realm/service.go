package realm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/arc20-me/realm-stack/pkg/records"
	"github.com/arc20-me/realm-stack/pkg/store"
	"github.com/arc20-me/realm-stack/pkg/worker"
)

// CacheKeyPrefix namespaces realm responses in the response cache.
const CacheKeyPrefix = "cache:realm:"

// DefaultCacheTTL is used when ServiceDeps.CacheTTL is unset.
const DefaultCacheTTL = 10 * time.Minute

// ServiceDeps holds dependencies for the service
type ServiceDeps struct {
	Pipeline *Pipeline
	Cache    store.Store // response cache, keys are prefixed with CacheKeyPrefix
	CacheTTL time.Duration
	Records  records.Repository
	Pool     *worker.Pool
	Logger   *slog.Logger
}

// Service wraps the pipeline with the response cache and the durable record store.
type Service struct {
	pipeline *Pipeline
	cache    store.Store
	ttl      time.Duration
	records  records.Repository
	pool     *worker.Pool
	logger   *slog.Logger
}

// NewService creates a new service
func NewService(deps *ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	var cache store.Store
	if deps.Cache != nil {
		cache = store.WithPrefix(deps.Cache, CacheKeyPrefix)
	}
	return &Service{
		pipeline: deps.Pipeline,
		cache:    cache,
		ttl:      ttl,
		records:  deps.Records,
		pool:     deps.Pool,
		logger:   logger,
	}
}

// storedResponse is the reply built from a durable record.
type storedResponse struct {
	Meta    json.RawMessage `json:"meta"`
	Profile json.RawMessage `json:"profile"`
}

// Lookup returns the JSON response document for a realm.
//
// Without the update action the response cache is consulted first, then the durable
// store, then the pipeline. With it the cached response is dropped, the pipeline always
// runs and an existing record is rewritten in place.
func (s *Service) Lookup(ctx context.Context, rawName, action string) ([]byte, error) {
	name, err := Normalize(rawName)
	if err != nil {
		s.logger.Debug("realm name rejected", "realm", rawName, "error", err)
		return json.Marshal(&Response{})
	}
	update := action == ActionUpdate

	if update {
		s.cacheDel(ctx, name)
	} else {
		if body, ok := s.cached(ctx, name); ok {
			return body, nil
		}
		if body, ok := s.stored(ctx, name); ok {
			s.cacheSet(ctx, name, body)
			return body, nil
		}
	}

	resp, stage := s.pipeline.Resolve(ctx, name)
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("realm resolved", "realm", name, "stage", stage.String(), "update", update)

	if stage >= StageIDResolved && !update {
		s.cacheSet(ctx, name, body)
	}
	if stage >= StageProfileIDResolved {
		rec, err := recordOf(name, resp)
		if err != nil {
			s.logger.Warn("record not serializable", "realm", name, "error", err)
			return body, nil
		}
		spawn(ctx, s.pool, s.logger, "persist:"+name, func(ctx context.Context) error {
			return s.persist(ctx, rec, update)
		})
	}
	return body, nil
}

func (s *Service) cached(ctx context.Context, name string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	body, err := s.cache.Get(ctx, []byte(name))
	if err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			s.logger.Warn("response cache read failed", "realm", name, "error", err)
		}
		return nil, false
	}
	return body, true
}

func (s *Service) cacheSet(ctx context.Context, name string, body []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, []byte(name), body, s.ttl); err != nil {
		s.logger.Warn("response cache write failed", "realm", name, "error", err)
	}
}

func (s *Service) cacheDel(ctx context.Context, name string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, []byte(name)); err != nil {
		s.logger.Warn("response cache delete failed", "realm", name, "error", err)
	}
}

func (s *Service) stored(ctx context.Context, name string) ([]byte, bool) {
	if s.records == nil {
		return nil, false
	}
	rec, err := s.records.Get(ctx, name)
	if err != nil {
		if !errors.Is(err, records.ErrNotFound) {
			s.logger.Warn("record read failed", "realm", name, "error", err)
		}
		return nil, false
	}
	body, err := json.Marshal(&storedResponse{Meta: nullable(rec.Meta), Profile: nullable(rec.Profile)})
	if err != nil {
		s.logger.Warn("stored record not encodable", "realm", name, "error", err)
		return nil, false
	}
	return body, true
}

// persist inserts rec if absent. An existing record is only rewritten for updates,
// after which the cached response is dropped.
func (s *Service) persist(ctx context.Context, rec *records.Record, update bool) error {
	if s.records == nil {
		return nil
	}
	exists, err := s.records.Exists(ctx, rec.RealmName)
	if err != nil {
		return err
	}
	if !exists {
		created, err := s.records.Create(ctx, rec)
		if err != nil {
			return err
		}
		if created {
			return nil
		}
	}
	if !update {
		return nil
	}
	if err := s.records.Update(ctx, rec); err != nil {
		return err
	}
	if s.cache != nil {
		return s.cache.Del(ctx, []byte(rec.RealmName))
	}
	return nil
}

func recordOf(name string, resp *Response) (*records.Record, error) {
	meta, err := json.Marshal(&resp.Meta)
	if err != nil {
		return nil, err
	}
	id := deref(resp.Meta.ID)
	if id == "" {
		id = deref(resp.Meta.CID)
	}
	return &records.Record{
		RealmName:     name,
		RealmID:       id,
		RealmNumber:   resp.Meta.Number,
		MinterAddress: resp.Meta.Mint,
		OwnerAddress:  resp.Meta.Owner,
		AvatarURL:     deref(resp.Meta.Image),
		BannerURL:     deref(resp.Meta.Banner),
		Meta:          meta,
		Profile:       nullable(resp.Profile),
	}, nil
}

func nullable(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
