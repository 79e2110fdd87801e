package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ogurtsov/gorodok/internal/chat"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration parses a 5-field cron expression and returns the
// duration until the next fire time. Returns 0 on parse error.
func nextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}

// runDigestScheduler fires the admin digest on the configured cron
// schedule. It returns immediately if the expression does not parse.
func (d *Daemon) runDigestScheduler(ctx context.Context) {
	wait := nextCronDuration(d.cfg.Digest.Cron)
	if wait <= 0 {
		log.Printf("bot: digest: bad cron expression %q, scheduler disabled", d.cfg.Digest.Cron)
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			d.fireDigest(ctx)
			if wait := nextCronDuration(d.cfg.Digest.Cron); wait > 0 {
				timer.Reset(wait)
			} else {
				return
			}
		}
	}
}

// fireDigest builds and sends the daily digest to all admins. A day with
// no activity suppresses the digest.
func (d *Daemon) fireDigest(ctx context.Context) {
	text, err := d.buildDigest(time.Now().Add(-24 * time.Hour))
	if err != nil {
		log.Printf("bot: digest: %v", err)
		return
	}
	if text == "" {
		return
	}
	report := d.router.dispatcher.Deliver(ctx, d.cfg.Telegram.AdminIDs, chat.Outbound{Text: text})
	if report.Failed > 0 || report.Blocked > 0 {
		log.Printf("bot: digest: %s", report.String())
	}
}

// buildDigest summarizes activity since the cutoff, or returns empty
// when there was none.
func (d *Daemon) buildDigest(cutoff time.Time) (string, error) {
	ads, finds, err := d.st.CountSince(cutoff)
	if err != nil {
		return "", err
	}
	if ads == 0 && finds == 0 {
		return "", nil
	}
	return fmt.Sprintf("📊 За сутки: новых объявлений — %d, записей в бюро находок — %d.", ads, finds), nil
}
