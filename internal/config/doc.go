// Package config manages the persistent user configuration file.
//
// The configuration lives at an OS-appropriate location (XDG config dir on
// Unix-like systems, LOCALAPPDATA on Windows) as a YAML file holding the
// account access token, compile defaults, and client-side device metadata
// such as nicknames. The account password is never written to disk.
//
// Saves are atomic (write to a temp file, then rename) so a crash cannot
// leave a half-written config behind, and the file is created with
// user-only permissions because it contains a bearer token.
package config
