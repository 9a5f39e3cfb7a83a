package di

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/store/bunstore"
)

// Container owns the shared cache components and builds catalogs on top of them.
// Every catalog built by one container shares its backend, key namespace and metrics.
type Container struct {
	backend       cache.Backend
	keySerializer cache.KeySerializer
	client        *cache.Client
	logger        *zap.Logger
	metrics       *cache.Metrics
	config        Config
}

// Option configures a Container.
type Option func(*containerOptions)

type containerOptions struct {
	logger     *zap.Logger
	registerer prometheus.Registerer
	backend    cache.Backend
}

// WithLogger overrides the logger built from Config.LogLevel.
func WithLogger(logger *zap.Logger) Option {
	return func(o *containerOptions) {
		o.logger = logger
	}
}

// WithRegisterer enables cache metrics registered against reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *containerOptions) {
		o.registerer = reg
	}
}

// WithBackend uses backend instead of building one from Config.Cache.
func WithBackend(backend cache.Backend) Option {
	return func(o *containerOptions) {
		o.backend = backend
	}
}

// NewContainer validates config and wires the backend, key serializer, metrics and client.
func NewContainer(config Config, opts ...Option) (*Container, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := containerOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		if logger, err = newLogger(config.LogLevel); err != nil {
			return nil, err
		}
	}

	backend := o.backend
	if backend == nil {
		var err error
		if backend, err = cache.NewBackend(config.Cache); err != nil {
			return nil, err
		}
	}

	var metrics *cache.Metrics
	if o.registerer != nil {
		metrics = cache.NewMetrics(o.registerer)
	}

	keySerializer := cache.NewKeySerializer(config.Cache.Namespace)
	client := cache.NewClient(backend,
		cache.WithKeySerializer(keySerializer),
		cache.WithLogger(logger),
		cache.WithMetrics(metrics),
	)

	return &Container{
		backend:       backend,
		keySerializer: keySerializer,
		client:        client,
		logger:        logger,
		metrics:       metrics,
		config:        config,
	}, nil
}

// NewContainerWithDefaults creates a container from DefaultConfig.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(DefaultConfig(), opts...)
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// Backend returns the shared cache backend.
func (c *Container) Backend() cache.Backend {
	return c.backend
}

// KeySerializer returns the namespaced key serializer.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Client returns the cache client every catalog service uses.
func (c *Container) Client() *cache.Client {
	return c.client
}

// Logger returns the container logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Metrics returns the cache metrics, or nil when no registerer was given.
func (c *Container) Metrics() *cache.Metrics {
	return c.metrics
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() Config {
	return c.config
}

// NewCatalog builds a catalog over stores with the container client, logger and settings.
func (c *Container) NewCatalog(stores catalog.Stores, opts ...catalog.Option) (*catalog.Catalog, error) {
	opts = append([]catalog.Option{catalog.WithLogger(c.logger)}, opts...)
	return catalog.New(c.client, stores, c.config.Catalog, opts...)
}

// Repositories are the go-repository-bun repositories backing a catalog.
type Repositories struct {
	Djs         repository.Repository[*catalog.Dj]
	Permissions repository.Repository[*catalog.Permission]
	Albums      repository.Repository[*catalog.Album]
	Songs       repository.Repository[*catalog.Song]
	Artists     repository.Repository[*catalog.ArtistName]
}

// RepositoryStores adapts repos to catalog stores.
func RepositoryStores(repos Repositories) catalog.Stores {
	return catalog.Stores{
		Djs:         bunstore.New(repos.Djs),
		Permissions: bunstore.New(repos.Permissions),
		Albums:      bunstore.New(repos.Albums),
		Songs:       bunstore.New(repos.Songs),
		Artists:     bunstore.New(repos.Artists),
	}
}
