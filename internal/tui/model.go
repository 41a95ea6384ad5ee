// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

// Package tui is the terminal front-end for the auth flows.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/renegan/campusauth/internal/flow"
	"github.com/renegan/campusauth/internal/validate"
)

// opDoneMsg reports that an engine operation returned. Failures are
// already reflected in the engine state.
type opDoneMsg struct {
	exited bool
}

// Model is the bubbletea model for one flow.
type Model struct {
	ctx    context.Context
	engine *flow.Engine
	def    flow.Definition
	state  flow.State

	built   int
	inputs  []textinput.Model
	focus   int
	choice  int
	spinner spinner.Model
	notice  *flow.Notice

	exited bool
	quit   bool
}

// New creates a model driving engine. ctx bounds every engine call.
func New(ctx context.Context, engine *flow.Engine) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = focusStyle

	m := Model{
		ctx:     ctx,
		engine:  engine,
		def:     engine.Definition(),
		built:   -1,
		spinner: s,
	}
	return m.refresh()
}

// Init starts the flow.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.do(m.engine.Start))
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateChangedMsg:
		return m.settle()

	case noticeMsg:
		n := flow.Notice(msg)
		m.notice = &n
		return m, nil

	case opDoneMsg:
		if msg.exited {
			m.exited = true
			return m, tea.Quit
		}
		return m.settle()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	step := m.step()

	switch msg.String() {
	case "ctrl+c":
		m.quit = true
		return m, tea.Quit

	case "esc":
		if m.state.Pending != nil {
			m.engine.Cancel()
			return m.refresh(), nil
		}
		return m, m.back()

	case "ctrl+r":
		if step.OTP {
			return m, m.do(m.engine.Resend)
		}
		return m, nil

	case "enter":
		if m.state.Pending != nil {
			return m, m.do(m.engine.Confirm)
		}
		if m.state.Loading {
			return m, nil
		}
		if m.choosing() {
			m.engine.FieldChange(flow.FieldUserType, flow.Categories()[m.choice].Value)
			return m, m.do(m.engine.Submit)
		}
		if m.focus < len(m.inputs)-1 {
			return m.setFocus(m.focus + 1)
		}
		return m, m.do(m.engine.Submit)

	case "tab", "down":
		if m.choosing() {
			m.choice = (m.choice + 1) % len(flow.Categories())
			return m, nil
		}
		return m.setFocus(m.focus + 1)

	case "shift+tab", "up":
		if m.choosing() {
			n := len(flow.Categories())
			m.choice = (m.choice + n - 1) % n
			return m, nil
		}
		return m.setFocus(m.focus - 1)
	}

	if m.choosing() || m.state.Pending != nil || len(m.inputs) == 0 {
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	name := step.Fields[m.focus].Name
	if value := m.inputs[m.focus].Value(); value != m.state.Fields[name] {
		m.engine.FieldChange(name, value)
		m.state = m.engine.State()
	}
	return m, cmd
}

// settle re-reads the engine and quits once the flow has finished.
func (m Model) settle() (tea.Model, tea.Cmd) {
	m = m.refresh()
	if m.state.Done != nil {
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) refresh() Model {
	m.state = m.engine.State()
	if m.built != m.state.Step {
		m = m.buildInputs()
	}
	return m
}

func (m Model) buildInputs() Model {
	step := m.step()
	m.inputs = make([]textinput.Model, len(step.Fields))
	for i, f := range step.Fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Cursor.SetMode(cursor.CursorStatic)
		ti.Placeholder = f.Label
		if f.Name == flow.FieldOTP {
			ti.CharLimit = validate.OTPLength
		}
		if f.Secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		ti.SetValue(m.state.Fields[f.Name])
		m.inputs[i] = ti
	}

	m.choice = 0
	for i, c := range flow.Categories() {
		if c.Value == m.state.Fields[flow.FieldUserType] {
			m.choice = i
		}
	}

	m.built = m.state.Step
	m.focus = 0
	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
	}
	return m
}

func (m Model) setFocus(i int) (tea.Model, tea.Cmd) {
	if len(m.inputs) == 0 {
		return m, nil
	}
	i = (i + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Blur()
	m.focus = i
	return m, m.inputs[i].Focus()
}

func (m Model) step() flow.Step {
	return m.def.Step(m.state.Step)
}

// choosing reports whether the current step is the account type picker.
func (m Model) choosing() bool {
	fields := m.step().Fields
	return len(fields) == 1 && fields[0].Name == flow.FieldUserType
}

func (m Model) do(op func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		_ = op(ctx) //nolint:errcheck // surfaced through State
		return opDoneMsg{}
	}
}

func (m Model) back() tea.Cmd {
	ctx, engine := m.ctx, m.engine
	return func() tea.Msg {
		return opDoneMsg{exited: engine.Back(ctx)}
	}
}

// View renders the current step.
func (m Model) View() string {
	var b strings.Builder
	step := m.step()
	text := step.Copy(m.state.Draft)

	b.WriteString(logoStyle.Render("Renegan"))
	b.WriteString("\n")
	b.WriteString(titleStyle.Render(text.Title))
	b.WriteString("\n")
	if m.def.Len() > 1 {
		b.WriteString(progressStyle.Render(fmt.Sprintf("Step %d of %d", m.state.Step+1, m.def.Len())))
		b.WriteString("\n")
	}
	if text.Prompt != "" {
		b.WriteString(promptStyle.Render(text.Prompt))
		b.WriteString("\n")
	}
	if step.OTP && m.state.Draft.Email != "" {
		b.WriteString(focusStyle.Render(m.state.Draft.Email))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.choosing() {
		m.viewChoices(&b)
	} else {
		m.viewInputs(&b, step)
	}

	if p := m.state.Pending; p != nil {
		b.WriteString(dialogStyle.Render(fmt.Sprintf(
			"Is this your college?\n\n%s\n%s\n\nenter confirm • esc cancel",
			labelStyle.Render(p.College.Name), p.College.Country)))
		b.WriteString("\n")
	}

	if otp := m.state.OTP; otp != nil {
		if otp.CanResend() {
			b.WriteString(promptStyle.Render("Didn't get a code? ctrl+r to resend"))
		} else {
			b.WriteString(promptStyle.Render(fmt.Sprintf("Resend code in %ds", otp.ResendCooldown)))
		}
		b.WriteString("\n")
	}

	if m.state.Loading {
		b.WriteString(m.spinner.View())
		b.WriteString(" Please wait...\n")
	}
	if m.state.GlobalError != "" {
		b.WriteString(errorStyle.Render(m.state.GlobalError))
		b.WriteString("\n")
	}
	if n := m.notice; n != nil {
		style := successStyle
		if n.Kind == flow.NoticeError {
			style = errorStyle
		}
		line := n.Title
		if n.Detail != "" {
			line += ": " + n.Detail
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("enter continue • tab next field • esc back • ctrl+c quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) viewChoices(b *strings.Builder) {
	for i, c := range flow.Categories() {
		marker := "  "
		label := c.Label
		if i == m.choice {
			marker = focusStyle.Render("> ")
			label = focusStyle.Render(label)
		}
		b.WriteString(marker + label + "\n")
	}
	if msg := m.state.FieldErrors[flow.FieldUserType]; msg != "" {
		b.WriteString(errorStyle.Render(msg))
		b.WriteString("\n")
	}
}

func (m Model) viewInputs(b *strings.Builder, step flow.Step) {
	for i, f := range step.Fields {
		label := labelStyle.Render(f.Label)
		if i == m.focus {
			label = focusStyle.Render(f.Label)
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
		if msg := m.state.FieldErrors[f.Name]; msg != "" {
			b.WriteString(errorStyle.Render(msg))
			b.WriteString("\n")
		}
	}
}

// Result is how the user left the front-end.
type Result struct {
	// Done is set when the flow completed.
	Done *flow.Completion
	// Exited is set when the user backed out of the first step.
	Exited bool
	// Quit is set when the user interrupted the program.
	Quit bool
}

// Result returns the outcome recorded by the model.
func (m Model) Result() Result {
	return Result{Done: m.state.Done, Exited: m.exited, Quit: m.quit}
}

// Run drives engine in a full-screen terminal program until the flow
// completes or the user leaves it.
func Run(ctx context.Context, engine *flow.Engine, bridge *Bridge, opts ...tea.ProgramOption) (Result, error) {
	p := tea.NewProgram(New(ctx, engine), append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)

	pumpCtx, cancel := context.WithCancel(ctx)
	pumped := make(chan struct{})
	go func() {
		defer close(pumped)
		bridge.pump(pumpCtx, p.Send)
	}()

	final, err := p.Run()
	cancel()
	<-pumped

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return Result{}, err //nolint:wrapcheck // caller adds context
	}
	model, ok := final.(Model)
	if !ok {
		return Result{Quit: true}, nil
	}
	return model.Result(), nil
}
