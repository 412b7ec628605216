// Package config loads, normalizes, and validates factfetch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment fallbacks such as GMAIL_ADDRESS and MAX_PLAYLIST_VIDEOS. The
// Config type centralizes every knob the pipeline, inbox watcher and CLI need
// so they can be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
