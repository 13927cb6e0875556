package sync

import (
	"context"
	"slices"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/fetchheaders/internal/model"
	"github.com/nhle/fetchheaders/internal/session"
)

// PollState represents the current state of one account's poll.
type PollState int

const (
	PollPending PollState = iota
	PollRunning
	PollDone
	PollError
)

// PollStatus holds the poll state for a single account.
type PollStatus struct {
	Account  string
	State    PollState
	Duration time.Duration
	Error    error
}

// PollResultMsg is a tea.Msg sent once every account has been polled.
// Results are in configuration order.
type PollResultMsg struct {
	Results []model.AccountResult
}

// Poller polls a fixed set of accounts through the scheduler and tracks
// per-account progress for display.
type Poller struct {
	accounts []model.AccountConfig
	open     session.Factory
	poolSize int
	log      *zap.Logger

	mu       gosync.Mutex
	statuses map[string]*PollStatus
}

// NewPoller creates a Poller for accounts.
func NewPoller(
	accounts []model.AccountConfig, open session.Factory, poolSize int, log *zap.Logger,
) *Poller {
	statuses := make(map[string]*PollStatus, len(accounts))
	for _, a := range accounts {
		statuses[a.Name] = &PollStatus{Account: a.Name}
	}
	return &Poller{
		accounts: accounts,
		open:     open,
		poolSize: poolSize,
		log:      log,
		statuses: statuses,
	}
}

// Run polls every account and returns their results in configuration order.
func (p *Poller) Run(ctx context.Context) []model.AccountResult {
	jobs := make([]Job[model.AccountResult], 0, len(p.accounts))
	for _, acct := range p.accounts {
		jobs = append(jobs, func() model.AccountResult {
			return p.pollAccount(ctx, acct)
		})
	}
	return OrderResults(Run(jobs, p.poolSize), p.accounts)
}

// Start returns a tea.Cmd that runs the poll and delivers a PollResultMsg.
func (p *Poller) Start(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		return PollResultMsg{Results: p.Run(ctx)}
	}
}

// GetStatuses returns the poll status of all accounts in configuration order.
func (p *Poller) GetStatuses() []PollStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]PollStatus, 0, len(p.accounts))
	for _, a := range p.accounts {
		statuses = append(statuses, *p.statuses[a.Name])
	}
	return statuses
}

func (p *Poller) pollAccount(ctx context.Context, acct model.AccountConfig) model.AccountResult {
	p.setStatus(acct.Name, PollRunning, 0, nil)
	start := time.Now()

	res := PollAccount(ctx, acct, p.open, p.log)

	state := PollDone
	if res.Failed {
		state = PollError
	}
	p.setStatus(acct.Name, state, time.Since(start), res.Err)
	return res
}

// setStatus updates the poll status for an account.
func (p *Poller) setStatus(name string, state PollState, d time.Duration, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[name]
	if !ok {
		return
	}
	status.State = state
	status.Duration = d
	status.Error = err
}

// PollAccount connects to one account and builds its message list. It
// never returns an error directly: failures are reported in the result.
func PollAccount(
	ctx context.Context, acct model.AccountConfig, open session.Factory, log *zap.Logger,
) model.AccountResult {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("account", acct.Name))

	if acct.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, acct.Timeout)
		defer cancel()
	}

	failed := func(err error) model.AccountResult {
		log.Warn("poll failed", zap.Error(err))
		return model.AccountResult{Account: acct.Name, Failed: true, Err: err}
	}

	sess := open()
	log.Debug("connecting", zap.String("addr", acct.Address()), zap.String("security", string(acct.Security)))
	if err := sess.Connect(ctx, acct.Host, acct.Port, acct.Security); err != nil {
		return failed(err)
	}
	defer func() {
		if err := sess.Logout(); err != nil {
			log.Warn("logout failed", zap.Error(err))
		}
	}()

	if err := sess.Login(acct.Username, acct.Password); err != nil {
		return failed(err)
	}
	if err := sess.SelectFolder(acct.Folder, true); err != nil {
		return failed(err)
	}

	res := model.AccountResult{Account: acct.Name}

	if acct.ShowCounts {
		total, unseen, err := sess.Status(acct.Folder)
		if err != nil {
			return failed(err)
		}
		res.Counts = &model.Counts{Total: total, Unseen: unseen}
		log.Debug("status", zap.Int("total", total), zap.Int("unseen", unseen))
	}

	if acct.ShowOnlyCounts {
		return res
	}

	criterion := session.CriterionAll
	if acct.ShowUnseenOnly {
		criterion = session.CriterionUnseen
	}
	ids, err := sess.SearchIdentifiers(criterion)
	if err != nil {
		return failed(err)
	}
	log.Debug("search", zap.Stringer("criterion", criterion), zap.Int("matches", len(ids)))
	if len(ids) == 0 {
		return res
	}

	headers, err := sess.FetchHeaderFields(ids, headerFields)
	if err != nil {
		return failed(err)
	}

	var flags map[string]string
	if !acct.ShowUnseenOnly {
		flags, err = sess.FetchFlags(ids)
		if err != nil {
			return failed(err)
		}
	}

	if acct.NewestFirst {
		ids = slices.Clone(ids)
		slices.Reverse(ids)
	}

	res.Messages = make([]model.MessageRecord, 0, len(ids))
	for _, id := range ids {
		h, ok := headers[id]
		if !ok {
			// expunged by another client between SEARCH and FETCH
			log.Warn("no headers returned, skipping message", zap.String("uid", id))
			continue
		}

		seen := false
		if flags != nil {
			seen = IsSeen(flags[id])
		}

		res.Messages = append(res.Messages, model.MessageRecord{
			UID:     id,
			Account: acct.Name,
			From:    ExtractSender(h["from"]),
			Subject: DecodeHeader(h["subject"]),
			Date:    FormatDate(h["date"], time.Local),
			Seen:    seen,
		})
	}

	width := model.SerialWidth(len(res.Messages))
	for i := range res.Messages {
		res.Messages[i].Serial = i + 1
		res.Messages[i].SerialWidth = width
	}

	log.Debug("polled", zap.Int("messages", len(res.Messages)))
	return res
}
