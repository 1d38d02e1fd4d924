// Package workflows implements the feature handlers behind the router: onboarding
// and the main menu, AI chat, document assembly, QR codes, text-to-speech,
// spreadsheet export, image captioning and weather.
//
// Handlers mutate the session they are given and talk to the user through a
// Presenter. Adapter failures are turned into a localized notice and leave the
// session untouched; only presentation failures are returned to the router, which
// then discards the handler's changes.
package workflows
