// Package auth stores ClickUp personal API tokens.
//
// A Manager tries its stores in order: the system keyring, an AES-GCM
// encrypted file in the user config directory, then the CLICKUP_TOKEN
// environment variable (read-only). Tokens are grouped by profile; most
// users only ever use DefaultProfile.
package auth
