// Package ui implements the terminal prompts used when the flow needs the user.
//
//  1. [Prompter.ReadLine] : reads a pasted redirect URL (or code) when the redirect listener fails
//  2. [Prompter.SelectPlaylist] : numbered playlist selection
//
// Output is styled with a lipgloss [Palette].
package ui
