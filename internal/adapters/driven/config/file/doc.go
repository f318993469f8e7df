// Package file persists mailmind settings as TOML in the config directory
// (default ~/.mailmind/config.toml). Dot-notation keys map to nested tables.
package file
