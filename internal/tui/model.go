// Package tui is the interactive operator dashboard. It renders four
// tabs over the shared resource cache and, on the Live tab, drives a
// telemetry poller for the selected subscriber. The poller exists only
// while the Live tab is visible; leaving the tab tears it down.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/netvigil/ispadm/config"
	"github.com/netvigil/ispadm/internal/api"
	"github.com/netvigil/ispadm/internal/domain"
	"github.com/netvigil/ispadm/internal/query"
	"github.com/netvigil/ispadm/internal/telemetry"
	"github.com/netvigil/ispadm/internal/view"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingLeft(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")).
			Bold(true).
			PaddingLeft(1)

	seriesNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Width(18)

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("57"))
)

type tab int

const (
	tabSubscribers tab = iota
	tabPlans
	tabCdn
	tabLive
	tabCount // sentinel, keep last
)

var tabNames = []string{"Subscribers", "Plans", "CDN Rules", "Live"}

func tabByName(name string) tab {
	for i, n := range tabNames {
		if n == name {
			return tab(i)
		}
	}
	return tabSubscribers
}

const refreshInterval = 2 * time.Second

type tickMsg time.Time

type dataMsg struct {
	subscribers []domain.Subscriber
	plans       []domain.ServicePlan
	rules       []domain.CdnRule
}

type errMsg error

type pollerReadyMsg struct {
	poller *telemetry.Poller
	target int64
}

// Options wires a dashboard model.
type Options struct {
	Client    *api.Client
	Cache     *query.Cache
	Prefs     *config.Preferences
	PrefsPath string
	Interval  time.Duration
	Capacity  int
	Archive   *telemetry.Archive
}

// Model is the top-level bubbletea model.
type Model struct {
	opts Options

	subsHandle  *query.Handle
	plansHandle *query.Handle
	rulesHandle *query.Handle

	subTable  *view.Table[domain.Subscriber]
	planTable *view.Table[domain.ServicePlan]
	ruleTable *view.Table[domain.CdnRule]

	activeTab tab
	selected  int // subscriber row driving the Live tab

	subscribers []domain.Subscriber
	plans       []domain.ServicePlan
	rules       []domain.CdnRule

	poller     *telemetry.Poller
	pollTarget int64

	width     int
	height    int
	err       error
	loading   bool
	lastFetch time.Time
}

// New builds the dashboard, restoring the remembered active tab.
func New(opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = refreshInterval
	}
	if opts.Capacity <= 0 {
		opts.Capacity = 30
	}
	client := opts.Client

	m := Model{opts: opts, loading: true}
	m.subsHandle = opts.Cache.Resource("subscribers", func(ctx context.Context) (interface{}, error) {
		items, _, err := api.List[domain.Subscriber](ctx, client, "/api/v1/subscribers")
		return items, err
	})
	m.plansHandle = opts.Cache.Resource("plans", func(ctx context.Context) (interface{}, error) {
		items, _, err := api.List[domain.ServicePlan](ctx, client, "/api/v1/plans")
		return items, err
	})
	m.rulesHandle = opts.Cache.Resource("cdn-rules", func(ctx context.Context) (interface{}, error) {
		items, _, err := api.List[domain.CdnRule](ctx, client, "/api/v1/cdn/rules")
		return items, err
	})

	m.subTable = view.New("subscribers", view.SubscriberColumns(), opts.Prefs)
	m.planTable = view.New("plans", view.PlanColumns(), opts.Prefs)
	m.ruleTable = view.New("cdn-rules", view.CdnRuleColumns(), opts.Prefs)

	if opts.Prefs != nil && opts.Prefs.ActiveTab != "" {
		m.activeTab = tabByName(opts.Prefs.ActiveTab)
	}
	return m
}

// Init starts the tick loop and the first fetch.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tick(), m.fetchData()}
	if m.activeTab == tabLive {
		cmds = append(cmds, m.startPoller())
	}
	return tea.Batch(cmds...)
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchData() tea.Cmd {
	subs, plans, rules := m.subsHandle, m.plansHandle, m.rulesHandle
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var msg dataMsg
		raw, err := subs.Get(ctx)
		if err != nil && raw == nil {
			return errMsg(err)
		}
		msg.subscribers, _ = raw.([]domain.Subscriber)

		if raw, err := plans.Get(ctx); err == nil || raw != nil {
			msg.plans, _ = raw.([]domain.ServicePlan)
		}
		if raw, err := rules.Get(ctx); err == nil || raw != nil {
			msg.rules, _ = raw.([]domain.CdnRule)
		}
		return msg
	}
}

// startPoller builds a poller for the selected subscriber: an initial
// sample discovers the CDN series and whether each is a gauge or a
// cumulative counter, then the loop starts on the fixed interval.
func (m Model) startPoller() tea.Cmd {
	if len(m.subscribers) == 0 || m.selected >= len(m.subscribers) {
		return nil
	}
	sub := m.subscribers[m.selected]
	if !sub.Online {
		// Live polling only runs for an online subscriber.
		return nil
	}
	if m.poller != nil && m.pollTarget == sub.ID {
		return nil
	}
	client := m.opts.Client
	path := fmt.Sprintf("/api/v1/subscribers/%d/live", sub.ID)
	interval, capacity := m.opts.Interval, m.opts.Capacity
	archive := m.opts.Archive

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sample, err := api.GetOne[domain.LiveSample](ctx, client, path)
		if err != nil {
			return errMsg(err)
		}

		fetch := func(ctx context.Context) (*telemetry.Reading, error) {
			s, err := api.GetOne[domain.LiveSample](ctx, client, path)
			if err != nil {
				return nil, err
			}
			return telemetry.ReadingFromSample(s), nil
		}
		p := telemetry.NewPoller(telemetry.PollerConfig{
			Interval: interval,
			Capacity: capacity,
			Fetch:    fetch,
			Series:   telemetry.SubscriberSeries(sample),
			Archive:  archive,
		})
		p.Start(context.Background())
		return pollerReadyMsg{poller: p, target: sub.ID}
	}
}

func (m Model) subscriberByID(id int64) (domain.Subscriber, bool) {
	for _, sub := range m.subscribers {
		if sub.ID == id {
			return sub, true
		}
	}
	return domain.Subscriber{}, false
}

func (m *Model) stopPoller() {
	if m.poller != nil {
		m.poller.Stop()
		m.poller = nil
		m.pollTarget = 0
	}
}

func (m *Model) setTab(t tab) tea.Cmd {
	if t == m.activeTab {
		return nil
	}
	leaving := m.activeTab
	m.activeTab = t
	if m.opts.Prefs != nil {
		m.opts.Prefs.ActiveTab = tabNames[t]
		if m.opts.PrefsPath != "" {
			_ = m.opts.Prefs.Save(m.opts.PrefsPath)
		}
	}
	if leaving == tabLive {
		m.stopPoller()
	}
	if t == tabLive {
		return m.startPoller()
	}
	return nil
}

// Update processes messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.stopPoller()
			m.subsHandle.Release()
			m.plansHandle.Release()
			m.rulesHandle.Release()
			return m, tea.Quit
		case "tab", "right", "l":
			return m, m.setTab((m.activeTab + 1) % tabCount)
		case "shift+tab", "left", "h":
			return m, m.setTab((m.activeTab - 1 + tabCount) % tabCount)
		case "1":
			return m, m.setTab(tabSubscribers)
		case "2":
			return m, m.setTab(tabPlans)
		case "3":
			return m, m.setTab(tabCdn)
		case "4":
			return m, m.setTab(tabLive)
		case "up", "k":
			if m.selected > 0 {
				m.selected--
				if m.activeTab == tabLive {
					m.stopPoller()
					return m, m.startPoller()
				}
			}
		case "down", "j":
			if m.selected < len(m.subscribers)-1 {
				m.selected++
				if m.activeTab == tabLive {
					m.stopPoller()
					return m, m.startPoller()
				}
			}
		case "r":
			m.loading = true
			m.err = nil
			m.opts.Cache.Invalidate("subscribers", "plans", "cdn-rules")
			return m, m.fetchData()
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(tick(), m.fetchData())

	case dataMsg:
		m.loading = false
		m.err = nil
		m.subscribers = msg.subscribers
		m.plans = msg.plans
		m.rules = msg.rules
		if m.selected >= len(m.subscribers) && len(m.subscribers) > 0 {
			m.selected = len(m.subscribers) - 1
		}
		m.lastFetch = time.Now()
		// A refresh that shows the polled subscriber gone or offline
		// tears the poller down instead of letting it fail every tick.
		if m.poller != nil {
			if sub, ok := m.subscriberByID(m.pollTarget); !ok || !sub.Online {
				m.stopPoller()
			}
		}
		// The Live tab may have been restored before any data existed,
		// or the subscriber may have just come back online.
		if m.activeTab == tabLive && m.poller == nil {
			return m, m.startPoller()
		}
		return m, nil

	case pollerReadyMsg:
		// A stale poller from a superseded selection is discarded.
		if m.activeTab != tabLive {
			msg.poller.Stop()
			return m, nil
		}
		if m.poller != nil && m.pollTarget != msg.target {
			m.poller.Stop()
		}
		m.poller = msg.poller
		m.pollTarget = msg.target
		return m, nil

	case errMsg:
		m.loading = false
		m.err = msg
		return m, nil
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading…"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("  Subscriber Console  "))
	sb.WriteString("\n")

	var tabParts []string
	for i, name := range tabNames {
		label := fmt.Sprintf(" %d: %s ", i+1, name)
		if tab(i) == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
	}
	sb.WriteString(strings.Join(tabParts, ""))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")

	contentHeight := m.height - 5
	if contentHeight < 1 {
		contentHeight = 1
	}
	sb.WriteString(clipLines(m.renderActiveTab(), contentHeight))
	sb.WriteString("\n")

	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	return sb.String()
}

func (m Model) renderActiveTab() string {
	w := m.width - 2
	switch m.activeTab {
	case tabSubscribers:
		return m.subTable.RenderStyled(m.subscribers, w, m.loading && len(m.subscribers) == 0)
	case tabPlans:
		return m.planTable.RenderStyled(m.plans, w, m.loading && len(m.plans) == 0)
	case tabCdn:
		return m.ruleTable.RenderStyled(m.rules, w, m.loading && len(m.rules) == 0)
	case tabLive:
		return m.renderLive()
	default:
		return ""
	}
}

// renderLive shows the selected subscriber and one sparkline per series.
func (m Model) renderLive() string {
	if len(m.subscribers) == 0 {
		return statusBarStyle.Render("No subscribers.")
	}
	var sb strings.Builder
	for i, sub := range m.subscribers {
		line := fmt.Sprintf("  %s (%s)", sub.Username, sub.Status)
		if i == m.selected {
			line = selectedRowStyle.Render("> " + sub.Username + " (" + sub.Status + ")")
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if m.poller == nil {
		if m.selected < len(m.subscribers) && !m.subscribers[m.selected].Online {
			sb.WriteString(statusBarStyle.Render("Subscriber is offline; no live data."))
		} else {
			sb.WriteString(statusBarStyle.Render("starting telemetry…"))
		}
		return sb.String()
	}

	snapshot := m.poller.Snapshot()
	for _, name := range m.poller.SeriesNames() {
		samples := snapshot[name]
		current := "-"
		if v, ok := lastValue(samples); ok {
			current = formatSeriesValue(name, v)
		}
		sb.WriteString(seriesNameStyle.Render(name))
		sb.WriteString(sparkline(samples))
		sb.WriteString("  ")
		sb.WriteString(current)
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatSeriesValue(name string, v float64) string {
	if name == telemetry.SeriesPing {
		return fmt.Sprintf("%.1f ms", v)
	}
	if v >= 1024 {
		return fmt.Sprintf("%.1f Mbps", v/1024)
	}
	return fmt.Sprintf("%.0f Kbps", v)
}

func (m Model) renderStatus() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}
	parts := []string{
		fmt.Sprintf("server: %s", m.opts.Client.Session().BaseURL),
	}
	if !m.lastFetch.IsZero() {
		parts = append(parts, fmt.Sprintf("last refresh: %s", m.lastFetch.Format("15:04:05")))
	}
	if m.loading {
		parts = append(parts, "refreshing…")
	}
	parts = append(parts, "q: quit  tab: next tab  r: refresh")
	return statusBarStyle.Render(strings.Join(parts, "  |  "))
}

func clipLines(s string, maxLines int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= maxLines {
		return s
	}
	return strings.Join(lines[:maxLines], "\n")
}
