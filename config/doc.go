// Package config loads quizgen configuration and provider secrets.
//
// Load reads config.yml and .env from ConfigSearchPaths and EnvSearchPaths
// (or the files given explicitly), lets the environment override any key as
// LLM_GEMINI_MODEL-style names, applies defaults and validates the result
// with struct tags:
//
//	secrets := config.LoadSecrets()
//	cfg, err := config.Load(secrets)
//
// LoadSecrets resolves API keys and endpoints from overrides, the process
// environment, a .env file and ~/.quizgen/credentials.properties, in that
// order of priority.
package config
