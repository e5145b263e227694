package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/2beens/realestate/internal/telemetry/metrics"
	"github.com/2beens/realestate/internal/telemetry/tracing"
	"github.com/2beens/realestate/pkg"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
	"github.com/ipinfo/go/v2/ipinfo"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	cacheKeyPrefix = "ip-info::"
	localCacheSize = 8 * 1024 * 1024 // bytes
	localCacheTTL  = int(time.Hour / time.Second)
	redisCacheTTL  = 24 * time.Hour
)

// Location is where an IP address resolves to. Fields are empty when unknown.
type Location struct {
	Country string `json:"country"`
	City    string `json:"city"`
}

type ipInfoClient interface {
	GetIPInfo(ip net.IP) (*ipinfo.Core, error)
}

type Api struct {
	// serializes upstream calls so concurrent lookups of one IP hit the API once
	mu          sync.Mutex
	client      ipInfoClient
	localCache  *freecache.Cache
	redisClient *redis.Client
	metrics     *metrics.Manager
}

// NewApi returns a geo locator backed by ipinfo.io. With an empty token the
// locator is disabled and Locate always returns nil.
func NewApi(
	token string,
	httpClient *http.Client,
	redisClient *redis.Client,
	metricsManager *metrics.Manager,
) *Api {
	api := &Api{
		localCache:  freecache.NewCache(localCacheSize),
		redisClient: redisClient,
		metrics:     metricsManager,
	}
	if token != "" {
		api.client = ipinfo.NewClient(httpClient, nil, token)
	}
	return api
}

func (a *Api) Enabled() bool {
	return a.client != nil
}

// Locate resolves ip. Local, private and bogon addresses resolve to nil.
func (a *Api) Locate(ctx context.Context, ip string) (_ *Location, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "geoIp.locate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.ip", ip))

	if a.client == nil || pkg.IPIsLocal(ip) {
		return nil, nil
	}
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return nil, fmt.Errorf("invalid ip address: %s", ip)
	}

	key := cacheKeyPrefix + ip
	if loc := a.fromLocalCache(key); loc != nil {
		a.countLookup("local_cache")
		span.SetAttributes(attribute.String("geo.source", "local_cache"))
		return loc, nil
	}

	if loc := a.fromRedis(ctx, key); loc != nil {
		a.countLookup("redis")
		span.SetAttributes(attribute.String("geo.source", "redis"))
		a.storeLocal(key, loc)
		return loc, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// another goroutine may have resolved it while we waited
	if loc := a.fromLocalCache(key); loc != nil {
		a.countLookup("local_cache")
		return loc, nil
	}

	log.Debugf("will ask ipinfo for ip info: %s", ip)
	core, err := a.client.GetIPInfo(parsedIP)
	if err != nil {
		a.countLookup("error")
		return nil, fmt.Errorf("ipinfo lookup: %w", err)
	}
	a.countLookup("api")
	span.SetAttributes(attribute.String("geo.source", "api"))

	loc := &Location{}
	if core != nil && !core.Bogon {
		loc.City = core.City
		loc.Country = core.CountryName
		if loc.Country == "" {
			loc.Country = core.Country
		}
	}

	a.storeLocal(key, loc)
	a.storeRedis(ctx, key, loc)

	return loc, nil
}

func (a *Api) fromLocalCache(key string) *Location {
	cached, err := a.localCache.Get([]byte(key))
	if err != nil {
		return nil
	}
	loc := &Location{}
	if err := json.Unmarshal(cached, loc); err != nil {
		return nil
	}
	return loc
}

func (a *Api) fromRedis(ctx context.Context, key string) *Location {
	if a.redisClient == nil {
		return nil
	}
	cached, err := a.redisClient.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Errorf("failed to get ip info from redis for [%s]: %s", key, err)
		}
		return nil
	}
	loc := &Location{}
	if err := json.Unmarshal([]byte(cached), loc); err != nil {
		log.Errorf("failed to unmarshal cached ip info from redis for %s: %s", key, err)
		return nil
	}
	return loc
}

func (a *Api) storeLocal(key string, loc *Location) {
	locBytes, err := json.Marshal(loc)
	if err != nil {
		return
	}
	if err := a.localCache.Set([]byte(key), locBytes, localCacheTTL); err != nil {
		log.Debugf("ip info local cache set %s: %s", key, err)
	}
}

func (a *Api) storeRedis(ctx context.Context, key string, loc *Location) {
	if a.redisClient == nil {
		return
	}
	locBytes, err := json.Marshal(loc)
	if err != nil {
		return
	}
	if err := a.redisClient.Set(ctx, key, string(locBytes), redisCacheTTL).Err(); err != nil {
		log.Errorf("failed to cache ip info in redis for %s: %s", key, err)
	}
}

func (a *Api) countLookup(source string) {
	if a.metrics != nil {
		a.metrics.CounterGeoLookups.WithLabelValues(source).Inc()
	}
}
