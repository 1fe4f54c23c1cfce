// Package replui is an interactive terminal front-end for an Interpreter,
// grounded on hejops-gone/cpu/debugger.go's bubbletea model shape: a status
// line stacked above a memory window, Enter on an empty line to run until
// the interpreter pauses, and a quit path. It
// holds no VSCPU semantics of its own — everything is delegated to the
// Interpreter and Memory it wraps.
package replui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vscpu/vscpu"
	"vscpu/vscpu/memdump"
)

const windowRadius = 8

type model struct {
	vm    *vscpu.Interpreter
	mem   *vscpu.Memory
	input string
	quit  bool
	err   error
}

// New returns a bubbletea program wrapping vm/mem, ready to Run.
func New(vm *vscpu.Interpreter, mem *vscpu.Memory) *tea.Program {
	return tea.NewProgram(model{vm: vm, mem: mem})
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			line := strings.TrimSpace(m.input)
			m.input = ""
			if line == "exit" {
				return m, tea.Quit
			}
			if line != "" {
				m = m.handleLine(line)
			} else if m.vm.State == vscpu.StateRunning {
				m.vm.Run()
			}
			return m, nil

		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
			return m, nil

		case tea.KeyRunes, tea.KeySpace:
			m.input += msg.String()
			return m, nil
		}
	}
	return m, nil
}

// handleLine accepts an "addr value" pair, the same loader-pair grammar
// Memory.Load reads for the run command, writes it into memory, and resumes
// a paused interpreter.
func (m model) handleLine(line string) model {
	fields := strings.Fields(strings.ReplaceAll(line, ":", ""))
	if len(fields) != 2 {
		m.err = fmt.Errorf("expected \"addr value\", got %q", line)
		return m
	}
	parse := func(s string) (uint64, error) {
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			return strconv.ParseUint(s[2:], 16, 32)
		}
		return strconv.ParseUint(s, 10, 32)
	}
	addr, err := parse(fields[0])
	if err != nil {
		m.err = err
		return m
	}
	if addr >= vscpu.MemSize {
		m.err = fmt.Errorf("address %d is outside memory", addr)
		return m
	}
	val, err := parse(fields[1])
	if err != nil {
		m.err = err
		return m
	}
	m.mem.Set(uint32(addr), vscpu.Word(val))
	m.err = nil
	if m.vm.State == vscpu.StatePaused {
		m.vm.Resume()
		m.vm.Run()
	}
	return m
}

func (m model) View() string {
	status := lipgloss.NewStyle().Bold(true).Render(memdump.Summary(m.vm))
	window := memdump.SpewState(m.mem, m.vm, windowRadius)

	errLine := ""
	if m.err != nil {
		errLine = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render(m.err.Error())
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		status,
		window,
		errLine,
		"> "+m.input,
		"(type \"addr value\" to patch memory, \"exit\" to quit)",
	)
}
