package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"candleboard/internal/cache"
	"candleboard/internal/chart"
	"candleboard/internal/config"
	"candleboard/internal/domain"
	"candleboard/internal/provider"
	"candleboard/internal/util"
	"candleboard/internal/watchlist"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Bold(true)
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Background(lipgloss.Color("236"))
	tickerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	periodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	upTextStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	downTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	starStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	newsTitle     = lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true)
	newsSource    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	inputStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62"))
)

const (
	headerH  = 1
	readoutH = 1
	newsH    = 9
	footerH  = 1
)

var periods = []string{"1mo", "3mo", "6mo", "1y", "2y", "5y"}

type chartLoadedMsg struct {
	gen    uint64
	ticker string
	period string
	data   provider.ChartData
	err    error
}

type dayNewsMsg struct {
	gen   uint64
	items []domain.NewsItem
	err   error
}

type watchlistMsg struct {
	symbols []string
	err     error
}

type watchToggleMsg struct {
	symbol string
	added  bool
	err    error
}

type model struct {
	svc   *provider.Service
	lists *watchlist.Store
	chart *chart.Chart

	ticker  string
	period  string
	windows []int
	watch   []string

	width  int
	height int

	typing bool
	input  string

	newsVP    viewport.Model
	newsReady bool
	newsHead  string

	status string
}

func initialModel(svc *provider.Service, lists *watchlist.Store, cfg *config.Config) model {
	ticker := strings.ToUpper(cfg.Chart.DefaultTicker)
	if ticker == "" {
		ticker = "AAPL"
	}
	period := cfg.Chart.DefaultPeriod
	if !provider.ValidPeriod(period) {
		period = "6mo"
	}
	// The linechart draws its own axis gutter inside the frame, so the
	// viewport carries only a right margin.
	vp := chart.Viewport{
		Width:   80,
		Height:  24,
		Margins: chart.Margins{Right: 1},
	}
	return model{
		svc:     svc,
		lists:   lists,
		chart:   chart.New(vp, cfg.Chart.MAWindows(), nil),
		ticker:  ticker,
		period:  period,
		windows: cfg.Chart.MAWindows(),
		status:  "loading",
	}
}

func (m model) Init() tea.Cmd {
	gen, err := m.chart.StartLoad()
	if err != nil {
		return tea.Quit
	}
	return tea.Batch(
		m.loadChartCmd(gen, m.ticker, m.period),
		m.loadWatchlistCmd(),
	)
}

func (m model) loadChartCmd(gen uint64, ticker, period string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		data, err := svc.ChartData(ctx, ticker, period)
		return chartLoadedMsg{gen: gen, ticker: ticker, period: period, data: data, err: err}
	}
}

func (m model) dayNewsCmd(gen uint64, ticker, date string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		items, err := svc.NewsByDate(ctx, ticker, date)
		return dayNewsMsg{gen: gen, items: items, err: err}
	}
}

func (m model) loadWatchlistCmd() tea.Cmd {
	lists := m.lists
	return func() tea.Msg {
		if lists == nil {
			return watchlistMsg{}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		symbols, err := lists.Symbols(ctx, watchlist.DefaultCategory)
		return watchlistMsg{symbols: symbols, err: err}
	}
}

func (m model) toggleWatchCmd(symbol string, onList bool) tea.Cmd {
	lists := m.lists
	return func() tea.Msg {
		if lists == nil {
			return watchToggleMsg{symbol: symbol, err: fmt.Errorf("watchlist unavailable")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var err error
		if onList {
			err = lists.Remove(ctx, watchlist.DefaultCategory, symbol)
		} else {
			err = lists.Add(ctx, watchlist.DefaultCategory, symbol)
		}
		return watchToggleMsg{symbol: symbol, added: !onList, err: err}
	}
}

// switchTicker starts a load for a new ticker or period. The old fetch,
// if still in flight, completes with a stale generation and is dropped.
func (m *model) switchTicker(ticker, period string) tea.Cmd {
	gen, err := m.chart.StartLoad()
	if err != nil {
		return tea.Quit
	}
	m.ticker = ticker
	m.period = period
	m.status = "loading"
	m.clearNews()
	return m.loadChartCmd(gen, ticker, period)
}

func (m *model) clearNews() {
	m.newsHead = ""
	if m.newsReady {
		m.newsVP.SetContent("")
		m.newsVP.GotoTop()
	}
}

func (m *model) onList(symbol string) bool {
	for _, s := range m.watch {
		if s == symbol {
			return true
		}
	}
	return false
}

// neighbor returns the watchlist entry adjacent to the current ticker.
func (m *model) neighbor(delta int) (string, bool) {
	if len(m.watch) == 0 {
		return "", false
	}
	at := -1
	for i, s := range m.watch {
		if s == m.ticker {
			at = i
			break
		}
	}
	if at < 0 {
		// Off-list ticker: jump to the start or end of the list.
		if delta > 0 {
			return m.watch[0], true
		}
		return m.watch[len(m.watch)-1], true
	}
	n := len(m.watch)
	return m.watch[(at+delta+n)%n], true
}

func (m *model) chartHeight() int {
	h := m.height - headerH - readoutH - newsH - footerH
	if h < 8 {
		h = 8
	}
	return h
}

// plotX maps a terminal cell to plot-area coordinates. The chart knows
// where the renderer actually drew the bars, including the axis label
// gutter and the compression onto graph columns, so the column lookup
// is delegated rather than derived from the viewport margins.
func (m *model) plotX(x, y int) (float64, bool) {
	row := y - headerH
	if row < 0 || row >= m.chart.Viewport().PlotHeight() {
		return 0, false
	}
	return m.chart.CellToPlotX(x)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(msg.Width, m.chartHeight())
		m.chart.Flush()
		if !m.newsReady {
			m.newsVP = viewport.New(msg.Width, newsH-1)
			m.newsVP.MouseWheelEnabled = true
			m.newsReady = true
		} else {
			m.newsVP.Width = msg.Width
			m.newsVP.Height = newsH - 1
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case chartLoadedMsg:
		m.chart.CompleteLoad(msg.gen, msg.ticker, msg.period, msg.data.Bars, msg.data.News, msg.err)
		switch {
		case m.chart.Err() != "":
			m.status = "error"
		case m.chart.NoData():
			m.status = "no data"
		default:
			m.status = "ready"
		}
		return m, nil

	case dayNewsMsg:
		if res, ok := m.chart.CompleteNews(msg.gen, msg.items, msg.err); ok {
			m.showNews(res)
		}
		return m, nil

	case watchlistMsg:
		if msg.err == nil {
			m.watch = msg.symbols
		}
		return m, nil

	case watchToggleMsg:
		if msg.err != nil {
			// Revert the optimistic update.
			return m, m.loadWatchlistCmd()
		}
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.typing {
		switch msg.Type {
		case tea.KeyEnter:
			m.typing = false
			sym := strings.ToUpper(strings.TrimSpace(m.input))
			m.input = ""
			if sym != "" && sym != m.ticker {
				return m, m.switchTicker(sym, m.period)
			}
			return m, nil
		case tea.KeyEsc:
			m.typing = false
			m.input = ""
			return m, nil
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
			return m, nil
		case tea.KeyRunes:
			if len(m.input) < 10 {
				m.input += string(msg.Runes)
			}
			return m, nil
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.chart.Dispose()
		return m, tea.Quit

	case "t", "/":
		m.typing = true
		m.input = ""
		return m, nil

	case "p":
		return m, m.switchTicker(m.ticker, nextPeriod(m.period, 1))
	case "P":
		return m, m.switchTicker(m.ticker, nextPeriod(m.period, -1))

	case "right", "l":
		if sym, ok := m.neighbor(1); ok && sym != m.ticker {
			return m, m.switchTicker(sym, m.period)
		}
		return m, nil
	case "left", "h":
		if sym, ok := m.neighbor(-1); ok && sym != m.ticker {
			return m, m.switchTicker(sym, m.period)
		}
		return m, nil

	case "w":
		on := m.onList(m.ticker)
		// Optimistic update; the toggle result reloads on failure.
		if on {
			kept := m.watch[:0]
			for _, s := range m.watch {
				if s != m.ticker {
					kept = append(kept, s)
				}
			}
			m.watch = kept
		} else {
			m.watch = append(m.watch, m.ticker)
		}
		return m, m.toggleWatchCmd(m.ticker, on)

	case "r":
		return m, m.switchTicker(m.ticker, m.period)

	case "esc":
		m.chart.PointerLeave()
		m.clearNews()
		return m, nil
	}

	// Everything else scrolls the news pane.
	if m.newsReady {
		var cmd tea.Cmd
		m.newsVP, cmd = m.newsVP.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Action {
	case tea.MouseActionMotion:
		px, in := m.plotX(msg.X, msg.Y)
		if !in {
			m.chart.PointerLeave()
			return m, nil
		}
		m.chart.PointerMove(px)
		return m, nil

	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown {
			if m.newsReady {
				var cmd tea.Cmd
				m.newsVP, cmd = m.newsVP.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		px, in := m.plotX(msg.X, msg.Y)
		if !in {
			return m, nil
		}
		res, selected, needFetch := m.chart.Click(px)
		if !selected {
			return m, nil
		}
		m.showNews(res)
		if needFetch {
			return m, m.dayNewsCmd(res.Gen, m.ticker, res.Date)
		}
		return m, nil
	}
	return m, nil
}

// showNews renders a news resolution into the bottom pane.
func (m *model) showNews(res chart.Resolution) {
	if !m.newsReady {
		return
	}
	switch res.State {
	case chart.Pending:
		m.newsHead = fmt.Sprintf("News %s", res.Date)
		m.newsVP.SetContent(dimStyle.Render("fetching…"))
	case chart.Failed:
		m.newsHead = fmt.Sprintf("News %s", res.Date)
		m.newsVP.SetContent(dimStyle.Render("no news found"))
	case chart.Resolved:
		m.newsHead = fmt.Sprintf("News %s (%d)", res.Date, len(res.Items))
		if len(res.Items) == 0 {
			m.newsVP.SetContent(dimStyle.Render("no news found"))
		} else {
			m.newsVP.SetContent(renderNews(res.Items, m.width))
		}
	}
	m.newsVP.GotoTop()
}

func renderNews(items []domain.NewsItem, width int) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		head := it.Title
		if it.Source != "" {
			head += " " + newsSource.Render("("+it.Source+")")
		}
		b.WriteString(newsTitle.Render("• ") + head + "\n")
		if it.Summary != "" {
			b.WriteString("  " + wrap(it.Summary, width-4, "  ") + "\n")
		}
		if it.URL != "" {
			b.WriteString("  " + dimStyle.Render(it.URL) + "\n")
		}
	}
	return b.String()
}

// wrap performs a simple greedy word wrap with a hanging indent.
func wrap(s string, width int, indent string) string {
	if width < 20 {
		width = 20
	}
	words := strings.Fields(s)
	var b strings.Builder
	line := 0
	for i, w := range words {
		if i > 0 {
			if line+1+len(w) > width {
				b.WriteString("\n" + indent)
				line = 0
			} else {
				b.WriteString(" ")
				line++
			}
		}
		b.WriteString(w)
		line += len(w)
	}
	return b.String()
}

func nextPeriod(cur string, delta int) string {
	for i, p := range periods {
		if p == cur {
			n := len(periods)
			return periods[(i+delta+n)%n]
		}
	}
	return "6mo"
}

func (m model) View() string {
	if m.width == 0 {
		return "starting…"
	}
	var b strings.Builder
	b.WriteString(m.headerView() + "\n")
	b.WriteString(m.chartView())
	b.WriteString(m.readoutView() + "\n")
	b.WriteString(m.newsView())
	b.WriteString(m.footerView())
	return b.String()
}

func (m model) headerView() string {
	star := "  "
	if m.onList(m.ticker) {
		star = starStyle.Render("★ ")
	}
	left := fmt.Sprintf(" %s%s  %s  %s",
		star, tickerStyle.Render(m.ticker), periodStyle.Render(m.period), m.status)
	if m.typing {
		left += "  " + inputStyle.Render(" ticker: "+m.input+"▏")
	}
	right := fmt.Sprintf("watchlist %d ", len(m.watch))
	return headerStyle.Width(m.width).Render(padBetween(left, right, m.width))
}

func (m model) chartView() string {
	h := m.chartHeight()
	if e := m.chart.Err(); e != "" {
		return centerBlock(errStyle.Render("load failed: "+e), m.width, h)
	}
	if m.chart.NoData() {
		return centerBlock(dimStyle.Render("no data for "+m.ticker), m.width, h)
	}
	frame := m.chart.Frame()
	if frame == "" {
		return centerBlock(dimStyle.Render("loading "+m.ticker+"…"), m.width, h)
	}
	lines := strings.Split(frame, "\n")
	var b strings.Builder
	for _, ln := range lines {
		b.WriteString(ln + "\n")
	}
	for i := len(lines); i < h; i++ {
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) readoutView() string {
	hov := m.chart.Hovered()
	if hov.Hovered == nil {
		return dimStyle.Render(" hover a bar for OHLCV · click a bar for news")
	}
	bar := hov.Hovered
	style := downTextStyle
	if bar.Up() {
		style = upTextStyle
	}
	s := fmt.Sprintf(" %s  O %.2f  H %.2f  L %.2f  C %s  V %s",
		bar.Time, bar.Open, bar.High, bar.Low,
		style.Render(fmt.Sprintf("%.2f", bar.Close)),
		formatVolume(bar.Volume))
	if bar.CloseChangePct != nil {
		s += style.Render(fmt.Sprintf("  %+.2f%%", *bar.CloseChangePct))
	}
	for _, w := range m.windows {
		if v, ok := bar.MAValue(w); ok {
			s += dimStyle.Render(fmt.Sprintf("  MA%d %.2f", w, v))
		}
	}
	return s
}

func (m model) newsView() string {
	head := m.newsHead
	if head == "" {
		head = "News"
	}
	var body string
	if m.newsReady {
		body = m.newsVP.View()
	}
	return newsTitle.Render(" "+head) + "\n" + body + "\n"
}

func (m model) footerView() string {
	keys := " t ticker · p period · ←/→ watchlist · w toggle · r reload · q quit"
	return footerStyle.Width(m.width).Render(keys)
}

func formatVolume(v int64) string {
	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("%.2fB", float64(v)/1e9)
	case v >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(v)/1e6)
	case v >= 1_000:
		return fmt.Sprintf("%.1fK", float64(v)/1e3)
	default:
		return fmt.Sprintf("%d", v)
	}
}

// padBetween spreads left and right text across the full width.
func padBetween(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func centerBlock(s string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, s) + "\n"
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		cfg = &config.Config{}
		config.ApplyEnv(cfg)
	}

	// Log to a file: the terminal belongs to the TUI.
	logPath := fmt.Sprintf("/tmp/candleboard-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := util.NewLoggerTo(logFile, cfg.Logging.Level, "text")
	util.SetDefault(logger)

	dataDir := cfg.Storage.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "data dir: %v\n", err)
		os.Exit(1)
	}

	cachePath := cfg.Storage.CachePath
	if cachePath == "" {
		cachePath = filepath.Join(dataDir, "cache.db")
	}
	sqliteCache, err := cache.NewSQLiteCache(cachePath, cfg.Storage.CacheTTL())
	if err != nil {
		fmt.Fprintf(os.Stderr, "cache: %v\n", err)
		os.Exit(1)
	}
	defer sqliteCache.Close()

	tiers := []provider.ChartCache{}
	if cfg.Redis.Addr != "" {
		if rc, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Storage.CacheTTL()); err != nil {
			logger.Warn("redis unavailable, continuing without it", "error", err)
		} else {
			tiers = append(tiers, rc)
			defer rc.Close()
		}
	}
	tiers = append(tiers, sqliteCache)

	svc := provider.NewService(
		provider.NewAlpacaSource(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL),
		provider.NewYahooSource(),
		cache.NewTiered(tiers...),
		cfg.Chart.MAWindows(),
	)

	watchPath := cfg.Storage.WatchlistPath
	if watchPath == "" {
		watchPath = filepath.Join(dataDir, "watchlist.db")
	}
	lists, err := watchlist.NewStore(watchPath)
	if err != nil {
		logger.Warn("watchlist unavailable", "error", err)
		lists = nil
	} else {
		defer lists.Close()
	}

	p := tea.NewProgram(initialModel(svc, lists, cfg), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
