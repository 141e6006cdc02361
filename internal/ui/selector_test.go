package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(t *testing.T, m Model, msgs ...tea.KeyMsg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

var (
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	all   = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}}
)

func options() []Item {
	return []Item{
		{Value: "example_preset", Tags: []string{"playground"}},
		{Value: "plans"},
		{Value: "users", Tags: []string{"e2e"}},
	}
}

func TestSelector_ToggleAndAccept(t *testing.T) {
	m := NewSelectorModel("Seeds", options())

	m = press(t, m, space, down, down, space, enter)
	assert.Equal(t, []string{"example_preset", "users"}, m.Selected())
	assert.False(t, m.Cancelled())
	assert.Equal(t, "You chose: example_preset, users\n", m.View())
}

func TestSelector_ToggleAll(t *testing.T) {
	m := NewSelectorModel("Seeds", options())

	m = press(t, m, all)
	assert.Len(t, m.Selected(), 3)

	m = press(t, m, all)
	assert.Empty(t, m.Selected())

	m = press(t, m, space, all)
	assert.Len(t, m.Selected(), 3)
}

func TestSelector_CancelSelectsNothing(t *testing.T) {
	m := NewSelectorModel("Seeds", options())

	m = press(t, m, space, esc)
	assert.True(t, m.Cancelled())
	assert.Nil(t, m.Selected())
	assert.Equal(t, "Cancelled.\n", m.View())
}

func TestSelector_EmptySelection(t *testing.T) {
	m := NewSelectorModel("Seeds", options())
	m = press(t, m, enter)
	assert.Empty(t, m.Selected())
	assert.Equal(t, "You didn't select any seed.\n", m.View())
}

func TestSelector_ViewListsSeeds(t *testing.T) {
	m := NewSelectorModel("Pick seeds to export", options())
	view := m.View()
	assert.Contains(t, view, "Pick seeds to export")
	assert.Contains(t, view, "example_preset")
	assert.Contains(t, view, "playground")
}
