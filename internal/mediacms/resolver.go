package mediacms

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/mediablock/internal/cache"
	"github.com/ManuGH/mediablock/internal/log"
	"github.com/ManuGH/mediablock/internal/metrics"
	"github.com/ManuGH/mediablock/internal/telemetry"
)

// Fetcher loads the detail document for a media reference.
type Fetcher interface {
	Media(ctx context.Context, ref Ref) (*MediaInfo, error)
}

// Resolver turns a MediaCMS page URL into a MediaInfo.
//
// Concurrent lookups of the same media share one upstream call. Successful
// lookups are cached for ttl; a zero ttl disables caching.
type Resolver struct {
	fetcher Fetcher
	cache   cache.Cache
	ttl     time.Duration
	group   singleflight.Group
}

// NewResolver creates a resolver. A nil cache disables caching.
func NewResolver(fetcher Fetcher, c cache.Cache, ttl time.Duration) *Resolver {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	return &Resolver{fetcher: fetcher, cache: c, ttl: ttl}
}

// Resolve extracts the token from rawURL and fetches its media detail.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*MediaInfo, error) {
	ref, ok := ExtractToken(rawURL)
	if !ok {
		metrics.RecordResolve("no_token")
		return nil, &Error{Sentinel: ErrNoToken, URL: rawURL}
	}

	ctx, span := telemetry.Tracer("mediablock/mediacms").Start(ctx, "mediacms.resolve")
	defer span.End()

	key := "media:" + ref.APIURL()
	if info, ok := r.cached(ctx, key); ok {
		span.SetAttributes(telemetry.MediaAttributes(ref.BaseURL, ref.Token, true)...)
		metrics.RecordResolve("cache_hit")
		return info, nil
	}
	span.SetAttributes(telemetry.MediaAttributes(ref.BaseURL, ref.Token, false)...)

	v, err, _ := r.group.Do(key, func() (any, error) {
		// Waiters share this call; detach it from the first caller's cancellation.
		info, err := r.fetcher.Media(context.WithoutCancel(ctx), ref)
		if err != nil {
			return nil, err
		}
		r.store(ctx, key, info)
		return info, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(telemetry.ErrorAttributes(Kind(err))...)
		span.SetStatus(codes.Error, Kind(err))
		metrics.RecordResolve("error")
		return nil, err
	}

	metrics.RecordResolve("success")
	info := *v.(*MediaInfo)
	return &info, nil
}

func (r *Resolver) cached(ctx context.Context, key string) (*MediaInfo, bool) {
	if r.ttl <= 0 {
		return nil, false
	}
	data, ok := r.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var info MediaInfo
	if err := json.Unmarshal(data, &info); err != nil {
		r.cache.Delete(ctx, key)
		return nil, false
	}
	return &info, true
}

func (r *Resolver) store(ctx context.Context, key string, info *MediaInfo) {
	if r.ttl <= 0 {
		return
	}
	data, err := json.Marshal(info)
	if err != nil {
		logger := log.WithComponentFromContext(ctx, "mediacms")
		logger.Warn().Err(fmt.Errorf("encode media info: %w", err)).Msg("media info not cached")
		return
	}
	r.cache.Set(ctx, key, data, r.ttl)
}
