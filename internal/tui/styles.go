// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#7D56F4")
	muted  = lipgloss.Color("#888888")
	danger = lipgloss.Color("#E5534B")
	ok     = lipgloss.Color("#3FB950")

	logoStyle     = lipgloss.NewStyle().Bold(true).Foreground(accent)
	titleStyle    = lipgloss.NewStyle().Bold(true).MarginTop(1)
	promptStyle   = lipgloss.NewStyle().Foreground(muted)
	progressStyle = lipgloss.NewStyle().Foreground(muted).Italic(true)
	labelStyle    = lipgloss.NewStyle().Bold(true)
	focusStyle    = lipgloss.NewStyle().Foreground(accent).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(danger)
	successStyle  = lipgloss.NewStyle().Foreground(ok)
	helpStyle     = lipgloss.NewStyle().Foreground(muted).MarginTop(1)
	dialogStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2).
			MarginTop(1)
)
