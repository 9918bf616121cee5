// Package config reads the assistant settings from the environment,
// optionally seeded from a .env file, and builds the hosting provider
// and language model they describe.
package config
