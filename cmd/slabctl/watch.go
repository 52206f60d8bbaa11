package main

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/joshuapare/slabkit/internal/logger"
	"github.com/joshuapare/slabkit/slab"
)

var (
	watchInterval time.Duration
	watchOps      int
	watchMaxLive  int
	watchMaxSize  int
	watchSeed     int64
)

func init() {
	cmd := newWatchCmd()
	cmd.Flags().DurationVar(&watchInterval, "interval", 200*time.Millisecond, "Time between workload steps")
	cmd.Flags().IntVar(&watchOps, "ops", 500, "Alloc or free operations per step")
	cmd.Flags().IntVar(&watchMaxLive, "max-live", 20000, "Peak number of live slices")
	cmd.Flags().IntVar(&watchMaxSize, "max-size", 16384, "Largest request size")
	cmd.Flags().Int64Var(&watchSeed, "seed", 1, "Random seed")
	rootCmd.AddCommand(cmd)
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch pool accounting live while a workload runs",
		Long: `The watch command drives a random workload whose live set rises to
--max-live and falls back to zero, and shows pool accounting and per-class
chunk usage as it changes.

Keys: space pauses, r releases unused chunks, q quits.

Example:
  slabctl watch
  slabctl watch --ops 2000 --max-size 200000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch()
		},
	}
	return cmd
}

func runWatch() error {
	m, err := newWatchModel(watchOps, watchMaxLive, watchMaxSize, watchSeed)
	if err != nil {
		return err
	}
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return final.(watchModel).close()
}

type watchKeyMap struct {
	Pause   key.Binding
	Release key.Binding
	Up      key.Binding
	Down    key.Binding
	Quit    key.Binding
}

func defaultWatchKeys() watchKeyMap {
	return watchKeyMap{
		Pause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "pause"),
		),
		Release: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "release unused"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

type tickMsg time.Time

type watchModel struct {
	pool *slab.Pool
	rng  *rand.Rand
	live [][]byte

	ops     int
	maxLive int
	maxSize int
	growing bool

	steps    int
	released int
	paused   bool
	err      error

	stats slab.Stats
	keys  watchKeyMap
	bar   progress.Model
	table viewport.Model
}

func newWatchModel(ops, maxLive, maxSize int, seed int64) (watchModel, error) {
	if ops <= 0 || maxLive <= 0 || maxSize <= 0 {
		return watchModel{}, fmt.Errorf("ops, max-live and max-size must be positive")
	}
	p, err := slab.New(&slab.Options{Logger: logger.L})
	if err != nil {
		return watchModel{}, err
	}
	m := watchModel{
		pool:    p,
		rng:     rand.New(rand.NewSource(seed)),
		ops:     ops,
		maxLive: maxLive,
		maxSize: maxSize,
		growing: true,
		keys:    defaultWatchKeys(),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		table:   viewport.New(72, 16),
	}
	m.refresh()
	return m, nil
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m watchModel) Init() tea.Cmd {
	return tick(watchInterval)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			return m, nil
		case key.Matches(msg, m.keys.Release):
			m.released += m.pool.ReleaseUnused()
			m.refresh()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.table.Width = msg.Width - 4
		m.table.Height = max(msg.Height-14, 4)
		m.refresh()
	case tickMsg:
		if !m.paused && m.err == nil {
			m.step()
			m.refresh()
		}
		return m, tick(watchInterval)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// step runs one batch of operations. The live set grows to maxLive, then
// shrinks to zero, then grows again.
func (m *watchModel) step() {
	for range m.ops {
		if m.growing && len(m.live) >= m.maxLive {
			m.growing = false
		} else if !m.growing && len(m.live) == 0 {
			m.growing = true
		}

		// Mostly move toward the current goal, with some churn.
		alloc := m.rng.Intn(4) != 0
		if !m.growing {
			alloc = !alloc
		}
		if alloc && len(m.live) < m.maxLive {
			b, err := m.pool.Alloc(1 + m.rng.Intn(m.maxSize))
			if err != nil {
				m.err = err
				return
			}
			m.live = append(m.live, b)
			continue
		}
		if len(m.live) == 0 {
			continue
		}
		i := m.rng.Intn(len(m.live))
		if err := m.pool.Recyc(m.live[i]); err != nil {
			m.err = err
			return
		}
		m.live[i] = m.live[len(m.live)-1]
		m.live = m.live[:len(m.live)-1]
	}
	m.steps++
}

func (m *watchModel) refresh() {
	m.stats = m.pool.Stats()
	m.table.SetContent(renderClassTable(m.stats))
}

func renderClassTable(s slab.Stats) string {
	var sb strings.Builder
	sb.WriteString(tableHeaderStyle.Render(
		fmt.Sprintf("%6s %8s %7s %9s %9s", "class", "slice", "chunks", "used", "free")))
	sb.WriteByte('\n')
	for _, c := range s.Classes {
		line := fmt.Sprintf("%6d %8d %7d %9d %9d", c.Index, c.SliceSize, c.Chunks, c.UsedSlices, c.FreeSlices)
		switch {
		case c.FreeSlices == 0:
			line = fullClassStyle.Render(line)
		case c.UsedSlices == 0:
			line = idleClassStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (m watchModel) View() string {
	s := m.stats
	header := headerStyle.Render("slabctl watch")

	totals := lipgloss.JoinVertical(lipgloss.Left,
		labelStyle.Render("cached")+fmt.Sprintf("%d bytes in %d chunks (%d oversized)", s.Cached, s.Chunks, s.Unmanaged),
		labelStyle.Render("valid")+fmt.Sprintf("%d bytes", s.Valid),
		labelStyle.Render("using")+fmt.Sprintf("%d bytes, %d live slices", s.Using, len(m.live)),
		labelStyle.Render("util")+m.bar.ViewAs(s.Utilization()),
	)

	state := "running"
	if m.paused {
		state = "paused"
	}
	if m.err != nil {
		state = "stopped: " + m.err.Error()
	}
	status := statusStyle.Render(fmt.Sprintf(
		"step %d · %s · released %d chunks · space pause · r release · ↑/↓ scroll · q quit",
		m.steps, state, m.released))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		paneStyle.Render(totals),
		paneStyle.Render(m.table.View()),
		status,
	)
}

// close returns every live slice and destroys the pool.
func (m watchModel) close() error {
	for _, b := range m.live {
		if err := m.pool.Recyc(b); err != nil {
			return err
		}
	}
	return m.pool.Destroy()
}
