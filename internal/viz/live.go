package viz

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"toksim/internal/config"
	"toksim/internal/plasma"
	"toksim/internal/sim"
)

// stepMsg carries one accepted step from the simulation goroutine.
type stepMsg struct {
	state *plasma.State
	info  sim.StepInfo
}

// doneMsg reports the end of the run.
type doneMsg struct {
	err error
}

// channelObserver forwards accepted steps into the UI channel, blocking
// the simulation until the UI consumes them. Pausing the UI therefore
// pauses the run.
type channelObserver struct {
	ch chan stepMsg
}

func (o *channelObserver) OnStep(st *plasma.State, info sim.StepInfo) {
	o.ch <- stepMsg{state: st, info: info}
}

// Live is the bubbletea model for watching a run evolve: temperature and
// density profiles redrawn on every accepted step, with step diagnostics
// alongside.
type Live struct {
	cfg    *config.Config
	cancel context.CancelFunc

	steps chan stepMsg
	done  chan doneMsg

	state  *plasma.State
	info   sim.StepInfo
	energy []float64

	paused   bool
	finished bool
	err      error
}

// NewLive assembles the simulation and the model. The run starts when
// bubbletea calls Init.
func NewLive(cfg *config.Config) (*Live, error) {
	s, err := sim.New(cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())

	l := &Live{
		cfg:    cfg,
		cancel: cancel,
		steps:  make(chan stepMsg),
		done:   make(chan doneMsg, 1),
		state:  sim.BuildInitialState(cfg, s.Geometry()),
	}
	s.AddObserver(&channelObserver{ch: l.steps})

	go func() {
		_, err := s.Run(ctx)
		l.done <- doneMsg{err: err}
	}()
	return l, nil
}

func (l *Live) Init() tea.Cmd {
	return l.listen()
}

// listen waits for the next step or the end of the run.
func (l *Live) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-l.steps:
			return msg
		case msg := <-l.done:
			return msg
		}
	}
}

func (l *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			l.cancel()
			return l, tea.Quit
		case " ":
			if l.finished {
				return l, nil
			}
			l.paused = !l.paused
			if !l.paused {
				return l, l.listen()
			}
		}
	case stepMsg:
		l.state = msg.state
		l.info = msg.info
		l.energy = append(l.energy, storedEnergyEstimate(msg.state))
		if len(l.energy) > 600 {
			l.energy = l.energy[1:]
		}
		if !l.paused {
			return l, l.listen()
		}
	case doneMsg:
		l.finished = true
		l.err = msg.err
	}
	return l, nil
}

func (l *Live) View() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("TOKSIM LIVE") + "\n")

	status := StatusRunning.Render("RUNNING")
	switch {
	case l.finished && l.err != nil:
		status = StatusDone.Render(fmt.Sprintf("FAILED: %v", l.err))
	case l.finished:
		status = StatusDone.Render("FINISHED")
	case l.paused:
		status = StatusPaused.Render("PAUSED")
	}
	b.WriteString(status + "\n\n")

	if l.state != nil {
		b.WriteString(GraphStyle.Render(RenderState(l.state)) + "\n\n")

		progress := 0.0
		if l.cfg.TimeStep.TFinal > 0 {
			progress = l.state.Time / l.cfg.TimeStep.TFinal
		}
		b.WriteString(ProgressBar(progress, 40) + "\n\n")

		b.WriteString(LabelStyle.Render("Time") +
			ValueStyle.Render(fmt.Sprintf("%.3f / %.1f s", l.state.Time, l.cfg.TimeStep.TFinal)) + "\n")
		b.WriteString(LabelStyle.Render("dt") +
			ValueStyle.Render(fmt.Sprintf("%.2e s", l.info.Dt)) + "\n")
		b.WriteString(LabelStyle.Render("Iterations") +
			ValueStyle.Render(fmt.Sprintf("%d", l.info.Iterations)) + "\n")
		b.WriteString(LabelStyle.Render("Residual") +
			ValueStyle.Render(fmt.Sprintf("%.2e", l.info.ResidualNorm)) + "\n")
		if len(l.energy) > 1 {
			b.WriteString(LabelStyle.Render("W stored") + Sparkline(l.energy, 30) + "\n")
		}
	}

	b.WriteString(HelpStyle.Render("space: pause/resume   q: quit"))
	return PanelStyle.Render(b.String())
}

// storedEnergyEstimate is a cheap shape-only proxy for the sparkline; the
// exact volume-weighted value lives in the metrics package.
func storedEnergyEstimate(st *plasma.State) float64 {
	sum := 0.0
	for i := range st.TiCell {
		sum += st.NeCell[i] * (st.TiCell[i] + st.TeCell[i])
	}
	return sum
}

var _ tea.Model = (*Live)(nil)
