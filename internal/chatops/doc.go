// Package chatops implements the chat command surface: /start, /help,
// /random, /latest, /stats, /listmodels, /deletemedia and /deleteallmedia.
//
// Handle turns one command message into a Reply with text and optional media
// references; the transport that delivers replies lives outside the vault.
package chatops
