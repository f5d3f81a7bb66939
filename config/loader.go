package config

import (
	"fmt"
	"os"
	"path"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/kbukum/quizgen/logger"
)

// Locations searched, in order, when no explicit file is given. Paths are
// relative to the working directory so the binary works from the repository
// root and from cmd/quizgen alike.
var (
	ConfigSearchPaths = []string{
		"cmd/quizgen/config.yml",
		"../cmd/quizgen/config.yml",
		"config.yml",
	}
	EnvSearchPaths = []string{
		".env",
		"cmd/quizgen/.env",
		"../.env",
	}
)

type loaderOptions struct {
	fs         afero.Fs
	configFile string
	envFile    string
	aliases    map[string]string
	lookupEnv  func(string) (string, bool)
}

// LoaderOption configures Load.
type LoaderOption func(*loaderOptions)

// WithFs reads config.yml and .env from fs instead of the OS filesystem.
func WithFs(fs afero.Fs) LoaderOption {
	return func(o *loaderOptions) { o.fs = fs }
}

// WithConfigFile sets an explicit config file; the search paths are skipped.
func WithConfigFile(path string) LoaderOption {
	return func(o *loaderOptions) { o.configFile = path }
}

// WithEnvFile sets an explicit .env file; the search paths are skipped.
func WithEnvFile(path string) LoaderOption {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvAliases maps config keys to extra flat variable names, e.g.
// "llm.default_provider" to DEFAULT_LLM_PROVIDER. Aliases win over the
// derived LLM_DEFAULT_PROVIDER form.
func WithEnvAliases(aliases map[string]string) LoaderOption {
	return func(o *loaderOptions) {
		if o.aliases == nil {
			o.aliases = make(map[string]string, len(aliases))
		}
		for k, v := range aliases {
			o.aliases[k] = v
		}
	}
}

// WithEnvLookup replaces os.LookupEnv.
func WithEnvLookup(fn func(string) (string, bool)) LoaderOption {
	return func(o *loaderOptions) { o.lookupEnv = fn }
}

// decode fills cfg from, in increasing priority: the YAML file, the .env
// file and the process environment. Every mapstructure key of cfg can be
// set from the environment as its upper-cased underscore form
// (llm.gemini.model is LLM_GEMINI_MODEL). Missing files are not an error.
func decode(cfg any, opts ...LoaderOption) error {
	o := loaderOptions{fs: afero.NewOsFs(), lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}
	log := logger.Get("config")

	v := viper.New()
	v.SetFs(o.fs)
	if file := firstExisting(o.fs, o.configFile, ConfigSearchPaths); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", file, err)
		}
		log.Debug("config file loaded", logger.Fields("path", file))
	}

	dotenv := map[string]string{}
	if file := firstExisting(o.fs, o.envFile, EnvSearchPaths); file != "" {
		vals, err := readDotenv(o.fs, file)
		if err != nil {
			log.Warn("ignoring unreadable .env file", logger.Fields("path", file, logger.FieldError, err.Error()))
		} else {
			dotenv = vals
			log.Debug(".env file loaded", logger.Fields("path", file, "keys", len(vals)))
		}
	}
	lookup := func(name string) (string, bool) {
		if val, ok := o.lookupEnv(name); ok {
			return val, true
		}
		val, ok := dotenv[name]
		return val, ok
	}

	for _, key := range keyPaths(reflect.TypeOf(cfg), "") {
		if val, ok := lookup(envName(key)); ok {
			v.Set(key, val)
		}
	}
	for key, name := range o.aliases {
		if val, ok := lookup(name); ok {
			v.Set(key, val)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: decode: %w", err)
	}
	return nil
}

// firstExisting returns explicit when set, otherwise the first candidate
// that exists on fs. An explicit path that does not exist yields "".
func firstExisting(fs afero.Fs, explicit string, candidates []string) string {
	if explicit != "" {
		candidates = []string{explicit}
	}
	for _, p := range candidates {
		if ok, _ := afero.Exists(fs, p); ok {
			return p
		}
	}
	return ""
}

func readDotenv(fs afero.Fs, file string) (map[string]string, error) {
	f, err := fs.Open(file)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return godotenv.Parse(f)
}

// envName maps a config key to its environment variable name.
func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// keyPaths lists the dotted mapstructure keys of the leaves of t. Squashed
// embedded structs contribute their keys at the parent level.
func keyPaths(t reflect.Type, prefix string) []string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	var keys []string
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if strings.Contains(opts, "squash") {
			keys = append(keys, keyPaths(ft, prefix)...)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		key := path.Join(prefix, name)
		if ft.Kind() == reflect.Struct && ft.PkgPath() != "time" {
			keys = append(keys, keyPaths(ft, key)...)
			continue
		}
		keys = append(keys, strings.ReplaceAll(key, "/", "."))
	}
	return keys
}
