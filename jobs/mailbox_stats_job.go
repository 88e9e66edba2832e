package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"sparkshare-api/metrics"
	"sparkshare-api/models"
	"sparkshare-api/repositories"
)

// StatsRecorder receives the counts gathered by MailboxStatsJob.
type StatsRecorder interface {
	SetPendingInvitations(n int64)
	SetPendingEnvelopes(n int64)
}

type gaugeRecorder struct{}

func (gaugeRecorder) SetPendingInvitations(n int64) { metrics.SetPendingInvitations(n) }
func (gaugeRecorder) SetPendingEnvelopes(n int64)   { metrics.SetPendingEnvelopes(n) }

// MailboxStatsJob periodically counts pending invitations and pending shared
// items and publishes them as gauges.
type MailboxStatsJob struct {
	invitations repositories.InvitationRepository
	sharedItems repositories.SharedItemRepository
	recorder    StatsRecorder
	cron        *cron.Cron
	timeout     time.Duration
	log         logrus.FieldLogger
}

// NewMailboxStatsJob creates the job on a cron schedule such as "@every 5m".
// A nil recorder publishes to the process metrics registry.
func NewMailboxStatsJob(store repositories.Store, schedule string, timeout time.Duration, recorder StatsRecorder, log logrus.FieldLogger) (*MailboxStatsJob, error) {
	if recorder == nil {
		recorder = gaugeRecorder{}
	}

	j := &MailboxStatsJob{
		invitations: store.Invitations,
		sharedItems: store.SharedItems,
		recorder:    recorder,
		cron:        cron.New(),
		timeout:     timeout,
		log:         log.WithField("job", "mailbox_stats"),
	}

	if _, err := j.cron.AddFunc(schedule, j.run); err != nil {
		return nil, fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start collects once immediately and then on schedule.
func (j *MailboxStatsJob) Start() {
	j.log.Info("mailbox stats job started")
	j.run()
	j.cron.Start()
}

// Stop waits for a running collection to finish.
func (j *MailboxStatsJob) Stop() {
	<-j.cron.Stop().Done()
	j.log.Info("mailbox stats job stopped")
}

func (j *MailboxStatsJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.Collect(ctx); err != nil {
		j.log.WithError(err).Error("mailbox stats collection failed")
	}
}

// Collect counts the pending records and hands them to the recorder.
func (j *MailboxStatsJob) Collect(ctx context.Context) error {
	invitations, err := j.invitations.CountByStatus(ctx, models.InvitationStatusPending)
	if err != nil {
		return fmt.Errorf("count pending invitations: %w", err)
	}
	envelopes, err := j.sharedItems.CountByStatus(ctx, models.SharedItemStatusPending)
	if err != nil {
		return fmt.Errorf("count pending shared items: %w", err)
	}

	j.recorder.SetPendingInvitations(invitations)
	j.recorder.SetPendingEnvelopes(envelopes)
	j.log.WithFields(logrus.Fields{
		"pending_invitations": invitations,
		"pending_envelopes":   envelopes,
	}).Debug("mailbox stats collected")
	return nil
}
