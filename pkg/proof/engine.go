// Package proof implements the declarative criteria-and-proof generation
// engine: token resolution against a layered context, dependent-field
// criteria-page assembly, conditional proof-specification composition and
// proof-type registration/dispatch.
//
// The engine is synchronous and side-effect-free apart from explicit
// datasource.DataSource calls. Configuration is loaded once and immutable
// afterwards; every request builds its own token context, page array and
// composed specification, so an Engine is safe for unlimited concurrent
// readers.
package proof

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/prooflab/zenproof/pkg/proof/model"
	"github.com/prooflab/zenproof/pkg/proof/runtime"
)

// Settings hold the process-wide tunables of the engine.
type Settings struct {
	// Language is the fallback BCP 47 tag for locale-aware sorting and number
	// formatting when a request carries no user language.
	Language string
	// Timezone is the fallback IANA timezone for date formatting.
	Timezone string
	// MaxTokenPasses bounds the resolver's fixpoint loop.
	MaxTokenPasses int
	// MaxFetchPages bounds pagination loops against a misbehaving data source
	// that never stops returning a cursor.
	MaxFetchPages int
}

// DefaultSettings returns the settings used when none are injected.
func DefaultSettings() Settings {
	return Settings{
		Language:       "en-US",
		Timezone:       "UTC",
		MaxTokenPasses: defaultMaxPasses,
		MaxFetchPages:  1000,
	}
}

type Engine struct {
	name         string
	log          hclog.Logger
	settings     Settings
	env          EnvLookup
	resolver     *TokenResolver
	fieldConfigs map[string]model.FieldConfig
	messages     map[string]string
	constants    map[string]any
	registry     map[string]registryEntry
}

type EngineOption = func(*Engine)

// NewEngine creates a new proof engine over the given declarative
// configuration. Handlers registered afterwards via RegisterHandler must not
// collide with declaratively configured proof types.
func NewEngine(conf *model.Configuration, options ...EngineOption) (*Engine, error) {
	engine := &Engine{
		name:     fmt.Sprintf("Proof-Engine-%d", getGlobalSnowflakeIdGenerator().Generate().Int64()),
		settings: DefaultSettings(),
		registry: map[string]registryEntry{},
	}
	if conf != nil {
		engine.fieldConfigs = conf.CriteriaFields
		engine.messages = conf.Messages
		engine.constants = conf.Constants
		for proofType, entry := range conf.ProofTypes {
			engine.registry[proofType] = registryEntry{
				label:      entry.Label,
				category:   entry.Category,
				criteria:   entry.Criteria,
				definition: entry.Definition,
			}
		}
	}

	for _, option := range options {
		option(engine)
	}

	if engine.log == nil {
		engine.log = hclog.Default().Named("zenproof")
	}
	engine.resolver = NewTokenResolver(engine.env, engine.settings.MaxTokenPasses)
	engine.log.Debug("engine created", "name", engine.name, "proofTypes", len(engine.registry))
	return engine, nil
}

func EngineWithName(name string) EngineOption {
	return func(engine *Engine) {
		engine.name = name
	}
}

func EngineWithLogger(log hclog.Logger) EngineOption {
	return func(engine *Engine) {
		engine.log = log
	}
}

func EngineWithSettings(settings Settings) EngineOption {
	return func(engine *Engine) {
		def := DefaultSettings()
		if settings.Language == "" {
			settings.Language = def.Language
		}
		if settings.Timezone == "" {
			settings.Timezone = def.Timezone
		}
		if settings.MaxTokenPasses <= 0 {
			settings.MaxTokenPasses = def.MaxTokenPasses
		}
		if settings.MaxFetchPages <= 0 {
			settings.MaxFetchPages = def.MaxFetchPages
		}
		engine.settings = settings
	}
}

// EngineWithEnv injects the read-only provider {{env.NAME}} tokens read from.
func EngineWithEnv(env EnvLookup) EngineOption {
	return func(engine *Engine) {
		engine.env = env
	}
}

// Name returns the engine's unique name.
func (engine *Engine) Name() string {
	return engine.name
}

// Resolver exposes the engine's token resolver, e.g. for code-provided proof
// type handlers that want the same template semantics.
func (engine *Engine) Resolver() *TokenResolver {
	return engine.resolver
}

// FieldConfig returns the declarative configuration of one criterion.
func (engine *Engine) FieldConfig(name string) (model.FieldConfig, bool) {
	cfg, ok := engine.fieldConfigs[name]
	return cfg, ok
}

func (engine *Engine) newTokenContext(criteria map[string]any) *runtime.TokenContext {
	return runtime.NewTokenContext(criteria, engine.messages, engine.constants)
}

// collator builds a locale-aware, case-insensitive comparator for the
// requesting user, falling back to the engine's configured language.
func (engine *Engine) collator(user runtime.UserContext) *collate.Collator {
	lang := user.Language
	if lang == "" {
		lang = user.Locale
	}
	if lang == "" {
		lang = engine.settings.Language
	}
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	return collate.New(tag, collate.IgnoreCase)
}

// timezone resolves the user's timezone, falling back to the engine default
// and finally UTC.
func (engine *Engine) timezone(user runtime.UserContext) string {
	if user.Timezone != "" {
		return user.Timezone
	}
	return engine.settings.Timezone
}
