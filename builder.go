package authcore

import (
	"errors"

	"github.com/helixmarkets/authcore/password"
	"github.com/helixmarkets/authcore/token"
)

// Builder assembles an Engine from a Config and the injected capabilities:
// an account Store, a RefreshStore, and optionally a Mailer, a mail Throttle,
// and an AuditSink. A Builder is single-use.
type Builder struct {
	config Config

	store        Store
	refreshStore RefreshStore
	mailer       Mailer
	mailThrottle Throttle
	auditSink    AuditSink

	built bool
}

func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

func (b *Builder) WithStore(store Store) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithRefreshStore(store RefreshStore) *Builder {
	b.refreshStore = store
	return b
}

func (b *Builder) WithMailer(mailer Mailer) *Builder {
	b.mailer = mailer
	return b
}

func (b *Builder) WithMailThrottle(throttle Throttle) *Builder {
	b.mailThrottle = throttle
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the crypto managers, and returns
// the ready Engine. Construction is allocation-only; no I/O happens until the
// first Engine method call.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("account store required")
	}
	if b.refreshStore == nil {
		return nil, errors.New("refresh store required")
	}

	engine := &Engine{
		config:       cfg,
		store:        b.store,
		refreshStore: b.refreshStore,
		mailer:       b.mailer,
		mailThrottle: b.mailThrottle,
	}
	if engine.mailer == nil {
		engine.mailer = NoOpMailer{}
	}
	if engine.mailThrottle == nil {
		engine.mailThrottle = NoOpThrottle{}
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.totp = newTOTPManager(cfg.TwoFactor)

	ph, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	tm, err := token.NewManager(token.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: token.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = tm

	b.built = true

	return engine, nil
}
