package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/fumiya-kume/secpatch/internal/types"
)

// AlertProvider plays beeps and posts desktop notifications
type AlertProvider interface {
	Beep(frequency float64, duration int) error
	Notify(title, message string) error
}

// BeeepProvider implements AlertProvider with the beeep library
type BeeepProvider struct{}

func (BeeepProvider) Beep(frequency float64, duration int) error {
	return beeep.Beep(frequency, duration)
}

func (BeeepProvider) Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// FakeAlertProvider records alerts for tests without playing anything.
//
//	fake := &FakeAlertProvider{}
//	n := NewNotifierWithProvider(TestNotifyConfig(), fake)
//	n.RunFinished(report)
//	fake.WaitForCalls(2)
type FakeAlertProvider struct {
	mu            sync.Mutex
	Beeps         []BeepCall
	Notifications []NotificationCall
	doneCh        chan struct{}
}

// BeepCall is one recorded beep
type BeepCall struct {
	Frequency float64
	Duration  int
}

// NotificationCall is one recorded desktop notification
type NotificationCall struct {
	Title   string
	Message string
}

func (f *FakeAlertProvider) Beep(frequency float64, duration int) error {
	f.mu.Lock()
	f.Beeps = append(f.Beeps, BeepCall{Frequency: frequency, Duration: duration})
	f.mu.Unlock()
	f.signal()
	return nil
}

func (f *FakeAlertProvider) Notify(title, message string) error {
	f.mu.Lock()
	f.Notifications = append(f.Notifications, NotificationCall{Title: title, Message: message})
	f.mu.Unlock()
	f.signal()
	return nil
}

func (f *FakeAlertProvider) channel() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.doneCh == nil {
		f.doneCh = make(chan struct{}, 16)
	}
	return f.doneCh
}

func (f *FakeAlertProvider) signal() {
	select {
	case f.channel() <- struct{}{}:
	default:
	}
}

// WaitForCalls waits for n beeps or notifications in total
func (f *FakeAlertProvider) WaitForCalls(n int) {
	ch := f.channel()
	for i := 0; i < n; i++ {
		<-ch
	}
}

// Snapshot returns copies of the recorded calls
func (f *FakeAlertProvider) Snapshot() ([]BeepCall, []NotificationCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]BeepCall(nil), f.Beeps...), append([]NotificationCall(nil), f.Notifications...)
}

// NotifyConfig holds completion alert settings
type NotifyConfig struct {
	Enabled   bool
	Desktop   bool
	BeepDelay time.Duration
}

// DefaultNotifyConfig returns the default alert configuration
func DefaultNotifyConfig() NotifyConfig {
	return NotifyConfig{
		Enabled:   true,
		Desktop:   true,
		BeepDelay: 50 * time.Millisecond,
	}
}

// TestNotifyConfig returns an alert configuration without delays
func TestNotifyConfig() NotifyConfig {
	return NotifyConfig{Enabled: true, Desktop: true}
}

// Notifier alerts the user when a long batch run finishes
type Notifier struct {
	config   NotifyConfig
	provider AlertProvider
	wg       sync.WaitGroup
}

// NewNotifier creates a notifier backed by beeep
func NewNotifier(config NotifyConfig) *Notifier {
	return NewNotifierWithProvider(config, BeeepProvider{})
}

// NewNotifierWithProvider creates a notifier with a custom provider
func NewNotifierWithProvider(config NotifyConfig, provider AlertProvider) *Notifier {
	return &Notifier{config: config, provider: provider}
}

// RunFinished plays a success or failure tone and posts a notification with
// the run's statistics. It returns at once; Wait blocks until the alert is done.
func (n *Notifier) RunFinished(report *types.Report, runErr error) {
	if !n.config.Enabled {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		if runErr != nil || report == nil {
			_ = n.provider.Beep(400.0, 400) //nolint:errcheck // alert errors are not critical
			if n.config.Desktop {
				_ = n.provider.Notify("secpatch run failed", fmt.Sprintf("%v", runErr)) //nolint:errcheck // alert errors are not critical
			}
			return
		}

		_ = n.provider.Beep(1000.0, 100) //nolint:errcheck // alert errors are not critical
		if n.config.BeepDelay > 0 {
			time.Sleep(n.config.BeepDelay)
		}
		_ = n.provider.Beep(1200.0, 100) //nolint:errcheck // alert errors are not critical

		if n.config.Desktop {
			msg := fmt.Sprintf("%d of %d rows modified (%.2f%%), %d failed",
				report.Modified, report.Rows, report.Coverage(), report.Failed)
			_ = n.provider.Notify("secpatch run finished", msg) //nolint:errcheck // alert errors are not critical
		}
	}()
}

// Wait blocks until pending alerts have been delivered
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// SetEnabled enables or disables alerts
func (n *Notifier) SetEnabled(enabled bool) {
	n.config.Enabled = enabled
}

// IsEnabled returns whether alerts are enabled
func (n *Notifier) IsEnabled() bool {
	return n.config.Enabled
}
