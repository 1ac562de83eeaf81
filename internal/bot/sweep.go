package bot

import (
	"context"
	"time"

	"banguard/internal/config"
	"banguard/internal/modules/notify"
	"banguard/internal/platform"
	"banguard/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// sweeper walks every guild's member list looking for listed ids. One tick
// may spend at most one interval; an unfinished walk resumes from the saved
// cursor on the next tick, starting with the guild it stopped in.
type sweeper struct {
	bot        *Bot
	limiter    *rate.Limiter
	interval   time.Duration
	pageSize   int
	maxBackoff time.Duration
	clock      utils.Clock

	cursors     map[string]string
	resumeGuild string
	backoff     map[string]*guildBackoff
}

type guildBackoff struct {
	failures int
	until    time.Time
}

func newSweeper(b *Bot, cfg config.SweepConfig) *sweeper {
	interval := time.Duration(cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = 1000
	}
	limit := rate.Limit(cfg.ActionsPerSecond)
	if cfg.ActionsPerSecond <= 0 {
		limit = rate.Inf
	}
	maxBackoff := time.Duration(cfg.MaxBackoffSeconds) * time.Second
	if maxBackoff < interval {
		maxBackoff = interval
	}
	return &sweeper{
		bot:        b,
		limiter:    rate.NewLimiter(limit, 1),
		interval:   interval,
		pageSize:   pageSize,
		maxBackoff: maxBackoff,
		clock:      utils.RealClock{},
		cursors:    make(map[string]string),
		backoff:    make(map[string]*guildBackoff),
	}
}

func (s *sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *sweeper) tick(ctx context.Context) {
	ids := s.bot.lists.Load().IdentifierSet()
	if len(ids) == 0 {
		return
	}
	started := time.Now()
	defer func() {
		sweepDuration.Observe(time.Since(started).Seconds())
	}()

	budget, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	for _, guildID := range rotate(s.bot.platform.GuildIDs(), s.resumeGuild) {
		if budget.Err() != nil {
			s.resumeGuild = guildID
			return
		}
		if s.backingOff(guildID) {
			continue
		}
		done, err := s.sweepGuild(ctx, budget, guildID, ids)
		if err != nil {
			s.fail(guildID, err)
			continue
		}
		delete(s.backoff, guildID)
		if !done {
			s.resumeGuild = guildID
			return
		}
	}
	s.resumeGuild = ""
}

// sweepGuild reports done=false when the budget ran out; the cursor then
// points at the last member that was fully handled.
func (s *sweeper) sweepGuild(ctx, budget context.Context, guildID string, ids map[string]struct{}) (bool, error) {
	guild, err := s.bot.platform.Guild(guildID)
	if err != nil {
		return false, err
	}
	after := s.cursors[guildID]
	for {
		if budget.Err() != nil {
			return false, nil
		}
		page, err := s.bot.platform.Members(guildID, after, s.pageSize)
		if err != nil {
			return false, err
		}
		for _, member := range page {
			if member == nil || member.User == nil {
				continue
			}
			sweepMembersScanned.Inc()
			if _, listed := ids[member.User.ID]; listed && !s.bot.admin.IsAdmin(guild, member) {
				if err := s.limiter.Wait(budget); err != nil {
					return false, nil
				}
				if member.GuildID == "" {
					member.GuildID = guildID
				}
				s.bot.enforce(ctx, detection{
					guildID:      guildID,
					user:         member.User,
					member:       member,
					kind:         notify.KindPeriodic,
					reason:       s.bot.t("reason_listed_id"),
					punishReason: s.bot.t("reason_listed_id"),
				})
			}
			after = member.User.ID
			s.cursors[guildID] = after
		}
		if len(page) < s.pageSize {
			delete(s.cursors, guildID)
			return true, nil
		}
	}
}

func (s *sweeper) backingOff(guildID string) bool {
	state := s.backoff[guildID]
	return state != nil && s.clock.Now().Before(state.until)
}

func (s *sweeper) fail(guildID string, err error) {
	state := s.backoff[guildID]
	if state == nil {
		state = &guildBackoff{}
		s.backoff[guildID] = state
	}
	state.failures++
	delay := s.interval
	for i := 1; i < state.failures && delay < s.maxBackoff; i++ {
		delay *= 2
	}
	if delay > s.maxBackoff {
		delay = s.maxBackoff
	}
	state.until = s.clock.Now().Add(delay)

	kind := platform.Classify(err)
	sweepGuildErrors.WithLabelValues(kind.String()).Inc()
	fields := []zap.Field{
		zap.String("guild_id", guildID),
		zap.Int("failures", state.failures),
		zap.Duration("retry_in", delay),
		zap.Error(err),
	}
	if kind == platform.KindForbidden {
		s.bot.logger.Warn("member listing forbidden; enable the Server Members intent and grant the bot access", fields...)
		return
	}
	s.bot.logger.Warn("guild sweep failed", fields...)
}

// rotate returns ids starting at first, or ids unchanged when first is absent.
func rotate(ids []string, first string) []string {
	if first == "" {
		return ids
	}
	for i, id := range ids {
		if id == first {
			out := make([]string, 0, len(ids))
			out = append(out, ids[i:]...)
			return append(out, ids[:i]...)
		}
	}
	return ids
}
